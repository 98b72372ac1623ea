package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"outreach_tracker/internal/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeProblem(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, map[string]errorBody{"error": body})
}

// writeError maps application error kinds onto HTTP statuses. Unclassified and corrupt-state
// errors are logged and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *apperrors.QuotaExceededError
	if errors.As(err, &qe) {
		writeProblem(w, http.StatusPaymentRequired, errorBody{
			Code:    string(apperrors.KindQuotaExceeded),
			Message: qe.Error(),
			Details: map[string]any{"resource": qe.Resource, "tier": qe.Tier, "ceiling": qe.Ceiling, "count": qe.Count},
		})
		return
	}

	kind := apperrors.KindOf(err)
	switch kind {
	case apperrors.KindNotFound:
		writeProblem(w, http.StatusNotFound, errorBody{Code: string(kind), Message: err.Error()})
		return
	case apperrors.KindInvalidState:
		writeProblem(w, http.StatusConflict, errorBody{Code: string(kind), Message: err.Error()})
		return
	case apperrors.KindValidation:
		writeProblem(w, http.StatusUnprocessableEntity, errorBody{Code: string(kind), Message: err.Error()})
		return
	}

	h.logger.WithError(err).WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
		"kind":       kind,
	}).Error("Request failed")
	code := "INTERNAL"
	if kind == apperrors.KindCorruptState {
		code = string(kind)
	}
	writeProblem(w, http.StatusInternalServerError, errorBody{
		Code:    code,
		Message: "Something went wrong on our side. Please contact support if it keeps happening.",
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeProblem(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: msg})
}

// decode reads a JSON body. An empty body leaves v untouched when optional is set.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
