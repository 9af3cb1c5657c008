package httpapi

import (
	"net/http"
	"strings"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/drive"
)

func (a *API) handleDonationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createDonation(w, r)
	case http.MethodGet:
		a.listDonations(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDonationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/donations/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch path {
	case "my-donations":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.myDonations(w, r)
		return
	case "stats/summary":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.donationStats(w, r)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getDonation(w, r, path)
	case http.MethodPut:
		a.updateDonation(w, r, path)
	case http.MethodDelete:
		a.deleteDonation(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) createDonation(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleDonor)
	if !ok {
		return
	}
	var req drive.CreateDonationInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := a.drives.CreateDonation(r.Context(), acc, req)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "donation.create", map[string]any{"donation_id": d.ID})
	w.Header().Set("Location", "/api/donations/"+d.ID)
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) listDonations(w http.ResponseWriter, r *http.Request) {
	_, r, ok := a.requireAccount(w, r, auth.RoleOrganizer, auth.RoleAdmin)
	if !ok {
		return
	}
	skip, limit, err := parseWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	from, err := parseDateParam(q.Get("from_date"), "from_date")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(q.Get("to_date"), "to_date")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter := drive.DonationFilter{
		Status:   drive.DonationStatus(q.Get("status")),
		FromDate: from,
		ToDate:   to,
		Skip:     skip,
		Limit:    limit,
	}
	donations, err := a.drives.ListDonations(r.Context(), filter)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

func (a *API) myDonations(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleDonor)
	if !ok {
		return
	}
	donations, err := a.drives.MyDonations(r.Context(), acc)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

func (a *API) getDonation(w http.ResponseWriter, r *http.Request, id string) {
	acc, r, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	d, err := a.drives.GetDonation(r.Context(), acc, id)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) updateDonation(w http.ResponseWriter, r *http.Request, id string) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleDonor)
	if !ok {
		return
	}
	var upd drive.UpdateDonationInput
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := a.drives.UpdateDonation(r.Context(), acc, id, upd)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "donation.update", map[string]any{"donation_id": d.ID})
	writeJSON(w, http.StatusOK, d)
}

func (a *API) deleteDonation(w http.ResponseWriter, r *http.Request, id string) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleDonor)
	if !ok {
		return
	}
	if err := a.drives.DeleteDonation(r.Context(), acc, id); err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "donation.delete", map[string]any{"donation_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) donationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.drives.DonationStatsSummary(r.Context())
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
