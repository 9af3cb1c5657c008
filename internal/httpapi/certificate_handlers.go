package httpapi

import (
	"net/http"
	"strings"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/drive"
)

func (a *API) handleCertificatesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.issueCertificate(w, r)
	case http.MethodGet:
		a.listCertificates(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCertificateResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/certificates/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "my-certificates" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.myCertificates(w, r)
		return
	}

	if strings.HasPrefix(path, "donor/") {
		donorID := strings.TrimPrefix(path, "donor/")
		if donorID == "" || strings.Contains(donorID, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.donorCertificates(w, r, donorID)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getCertificate(w, r, path)
	case http.MethodPut:
		a.updateCertificate(w, r, path)
	case http.MethodDelete:
		a.deleteCertificate(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) issueCertificate(w http.ResponseWriter, r *http.Request) {
	_, r, ok := a.requireAccount(w, r, auth.RoleOrganizer, auth.RoleAdmin)
	if !ok {
		return
	}
	var req drive.IssueCertificateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.drives.IssueCertificate(r.Context(), req)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "certificate.issue", map[string]any{
		"certificate_id": c.ID,
		"donation_id":    c.DonationID,
	})
	w.Header().Set("Location", "/api/certificates/"+c.ID)
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) listCertificates(w http.ResponseWriter, r *http.Request) {
	_, r, ok := a.requireAccount(w, r, auth.RoleOrganizer, auth.RoleAdmin)
	if !ok {
		return
	}
	skip, limit, err := parseWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter := drive.CertificateFilter{
		Status: drive.CertificateStatus(r.URL.Query().Get("status")),
		Skip:   skip,
		Limit:  limit,
	}
	certs, err := a.drives.ListCertificates(r.Context(), filter)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, certs)
}

func (a *API) myCertificates(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleDonor)
	if !ok {
		return
	}
	certs, err := a.drives.MyCertificates(r.Context(), acc)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, certs)
}

func (a *API) donorCertificates(w http.ResponseWriter, r *http.Request, donorID string) {
	_, r, ok := a.requireAccount(w, r, auth.RoleOrganizer, auth.RoleAdmin)
	if !ok {
		return
	}
	certs, err := a.drives.DonorCertificates(r.Context(), donorID)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, certs)
}

func (a *API) getCertificate(w http.ResponseWriter, r *http.Request, id string) {
	acc, r, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	c, err := a.drives.GetCertificate(r.Context(), acc, id)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) updateCertificate(w http.ResponseWriter, r *http.Request, id string) {
	_, r, ok := a.requireAccount(w, r, auth.RoleOrganizer, auth.RoleAdmin)
	if !ok {
		return
	}
	var upd drive.UpdateCertificateInput
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.drives.UpdateCertificate(r.Context(), id, upd)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "certificate.update", map[string]any{"certificate_id": id})
	writeJSON(w, http.StatusOK, c)
}

func (a *API) deleteCertificate(w http.ResponseWriter, r *http.Request, id string) {
	_, r, ok := a.requireAccount(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	if err := a.drives.DeleteCertificate(r.Context(), id); err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "certificate.delete", map[string]any{"certificate_id": id})
	w.WriteHeader(http.StatusNoContent)
}
