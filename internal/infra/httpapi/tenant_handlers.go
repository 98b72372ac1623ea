package httpapi

import (
	"errors"
	"net/http"

	"outreach_tracker/internal/app"
)

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string `json:"name"`
		TelegramChatID *int64 `json:"telegram_chat_id"`
	}
	if !decode(w, r, &body, false) {
		return
	}
	t, err := h.settings.CreateTenant(r.Context(), body.Name, body.TelegramChatID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentTenant(t))
}

func (h *Handler) getTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	t, err := h.settings.GetTenant(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentTenant(t))
}

func (h *Handler) linkTelegram(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	var body struct {
		ChatID int64 `json:"chat_id"`
	}
	if !decode(w, r, &body, false) {
		return
	}
	t, err := h.settings.LinkTelegram(r.Context(), tenantID, body.ChatID)
	if err != nil && !errors.Is(err, app.ErrTelegramAlreadyLinked) {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentTenant(t))
}

func (h *Handler) entitlement(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	if _, err := h.settings.GetTenant(r.Context(), tenantID); err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.entitlements.Summary(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) getCadence(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	c, err := h.settings.Cadence(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentCadence(c))
}

func (h *Handler) updateCadence(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	var body struct {
		Offsets []int `json:"offsets"`
	}
	if !decode(w, r, &body, false) {
		return
	}
	c, err := h.settings.UpdateCadence(r.Context(), tenantID, body.Offsets)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentCadence(c))
}
