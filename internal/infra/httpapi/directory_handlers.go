package httpapi

import (
	"net/http"

	"outreach_tracker/internal/app"

	"github.com/google/uuid"
)

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	var body struct {
		Name    string `json:"name"`
		Website string `json:"website"`
	}
	if !decode(w, r, &body, false) {
		return
	}
	c, err := h.directory.CreateCompany(r.Context(), tenantID, body.Name, body.Website)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentCompany(c))
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	companies, err := h.directory.ListCompanies(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]companyJSON, 0, len(companies))
	for _, c := range companies {
		out = append(out, presentCompany(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createContact(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	var body struct {
		Name      string     `json:"name"`
		Email     string     `json:"email"`
		CompanyID *uuid.UUID `json:"company_id"`
	}
	if !decode(w, r, &body, false) {
		return
	}
	c, err := h.directory.CreateContact(r.Context(), tenantID, app.CreateContactInput{
		Name:      body.Name,
		Email:     body.Email,
		CompanyID: body.CompanyID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentContact(c))
}

func (h *Handler) listContacts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := uuidParam(w, r, "tenantID")
	if !ok {
		return
	}
	contacts, err := h.directory.ListContacts(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]contactJSON, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, presentContact(c))
	}
	writeJSON(w, http.StatusOK, out)
}
