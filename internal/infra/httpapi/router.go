package httpapi

import (
	"net/http"
	"time"

	"outreach_tracker/internal/app"
	"outreach_tracker/internal/domain/clock"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Handler serves the JSON API over the application services.
type Handler struct {
	outreach     *app.OutreachService
	settings     *app.SettingsService
	entitlements *app.EntitlementService
	directory    *app.DirectoryService
	clock        clock.Clock
	logger       *logrus.Entry
}

func NewHandler(
	outreachService *app.OutreachService,
	settings *app.SettingsService,
	entitlements *app.EntitlementService,
	directoryService *app.DirectoryService,
	clk clock.Clock,
	logger *logrus.Entry,
) *Handler {
	return &Handler{
		outreach:     outreachService,
		settings:     settings,
		entitlements: entitlements,
		directory:    directoryService,
		clock:        clk,
		logger:       logger,
	}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/tenants", h.createTenant)
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/", h.getTenant)
		r.Put("/telegram", h.linkTelegram)
		r.Get("/entitlement", h.entitlement)
		r.Get("/cadence", h.getCadence)
		r.Put("/cadence", h.updateCadence)

		r.Post("/outreach", h.createRecord)
		r.Get("/outreach", h.board)
		r.Route("/outreach/{recordID}", func(r chi.Router) {
			r.Get("/", h.getRecord)
			r.Patch("/", h.updateRecord)
			r.Delete("/", h.deleteRecord)
			r.Post("/schedule", h.regenerateSchedule)
			r.Put("/status", h.setStatus)
			r.Post("/favorite", h.setFavorite)
			r.Post("/contacts/{contactID}", h.linkContact)
			r.Get("/contacts", h.recordContacts)
			r.Post("/followups/{followUpID}/{action}", h.followUpAction)
		})

		r.Post("/companies", h.createCompany)
		r.Get("/companies", h.listCompanies)
		r.Post("/contacts", h.createContact)
		r.Get("/contacts", h.listContacts)
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"took":       time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}
