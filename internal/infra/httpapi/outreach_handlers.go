package httpapi

import (
	"net/http"
	"time"

	"outreach_tracker/internal/app"
	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/outreach"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation("%s must be a YYYY-MM-DD date, got %q", field, raw)
	}
	return t, nil
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	var body struct {
		Title           string   `json:"title"`
		CounterpartName string   `json:"counterpart_name"`
		AnchorDate      string   `json:"anchor_date"`
		Tags            []string `json:"tags"`
		Status          string   `json:"status"`
		Offsets         []int    `json:"offsets"`
	}
	if !decode(w, r, &body, false) {
		return
	}

	in := app.CreateRecordInput{
		Title:           body.Title,
		CounterpartName: body.CounterpartName,
		Tags:            body.Tags,
		Offsets:         body.Offsets,
	}
	var err error
	if body.AnchorDate != "" {
		if in.AnchorDate, err = parseDate("anchor_date", body.AnchorDate); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if body.Status != "" {
		if in.Status, err = outreach.ParseStatus(body.Status); err != nil {
			h.writeError(w, r, apperrors.Wrap(apperrors.KindValidation, err, "invalid status"))
			return
		}
	}

	entry, err := h.outreach.CreateRecord(r.Context(), tenantID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentEntry(*entry, h.clock.Today()))
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	mode, err := outreach.ParseSortMode(r.URL.Query().Get("sort"))
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.KindValidation, err, "invalid sort"))
		return
	}
	b, err := h.outreach.Board(r.Context(), tenantID, mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentBoard(b, h.clock.Today()))
}

func (h *Handler) recordParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	recordID, ok := uuidParam(w, r, "recordID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, recordID, true
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	entry, err := h.outreach.GetRecord(r.Context(), tenantID, recordID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentEntry(*entry, h.clock.Today()))
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	var body struct {
		Title           *string   `json:"title"`
		CounterpartName *string   `json:"counterpart_name"`
		AnchorDate      *string   `json:"anchor_date"`
		Tags            *[]string `json:"tags"`
	}
	if !decode(w, r, &body, false) {
		return
	}
	in := app.UpdateRecordInput{Title: body.Title, CounterpartName: body.CounterpartName, Tags: body.Tags}
	if body.AnchorDate != nil {
		anchor, err := parseDate("anchor_date", *body.AnchorDate)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		in.AnchorDate = &anchor
	}
	entry, err := h.outreach.UpdateRecord(r.Context(), tenantID, recordID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentEntry(*entry, h.clock.Today()))
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	if err := h.outreach.DeleteRecord(r.Context(), tenantID, recordID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) regenerateSchedule(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	var body struct {
		Offsets []int `json:"offsets"`
	}
	if !decode(w, r, &body, true) {
		return
	}
	entry, err := h.outreach.RegenerateSchedule(r.Context(), tenantID, recordID, body.Offsets)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentEntry(*entry, h.clock.Today()))
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &body, false) {
		return
	}
	status, err := outreach.ParseStatus(body.Status)
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.KindValidation, err, "invalid status"))
		return
	}
	rec, err := h.outreach.SetStatus(r.Context(), tenantID, recordID, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentRecord(rec))
}

func (h *Handler) setFavorite(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	var body struct {
		Favorite bool `json:"favorite"`
	}
	if !decode(w, r, &body, false) {
		return
	}
	rec, err := h.outreach.SetFavorite(r.Context(), tenantID, recordID, body.Favorite)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentRecord(rec))
}

func (h *Handler) followUpAction(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	followUpID, ok := uuidParam(w, r, "followUpID")
	if !ok {
		return
	}

	var (
		res *app.FollowUpResult
		err error
	)
	switch chi.URLParam(r, "action") {
	case "log":
		res, err = h.outreach.LogFollowUp(r.Context(), tenantID, recordID, followUpID)
	case "unlog":
		res, err = h.outreach.UnlogFollowUp(r.Context(), tenantID, recordID, followUpID)
	case "skip":
		res, err = h.outreach.SkipFollowUp(r.Context(), tenantID, recordID, followUpID)
	case "unskip":
		res, err = h.outreach.UnskipFollowUp(r.Context(), tenantID, recordID, followUpID)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentFollowUpResult(res))
}

func (h *Handler) linkContact(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	contactID, ok := uuidParam(w, r, "contactID")
	if !ok {
		return
	}
	rec, err := h.outreach.LinkContact(r.Context(), tenantID, recordID, contactID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentRecord(rec))
}

func (h *Handler) recordContacts(w http.ResponseWriter, r *http.Request) {
	tenantID, recordID, ok := h.recordParams(w, r)
	if !ok {
		return
	}
	ids, err := h.outreach.RecordContacts(r.Context(), tenantID, recordID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uuid.UUID{"contact_ids": ids})
}
