package httpapi

import (
	"net/http"
	"strings"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/profile"
)

func (a *API) handleDonorsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listDonors(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleDonorResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/donors/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "me" {
		switch r.Method {
		case http.MethodGet:
			a.myDonorProfile(w, r)
		case http.MethodPut:
			a.updateMyDonorProfile(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getDonor(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) listDonors(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parseWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	filter := profile.DonorFilter{
		BloodType: profile.BloodType(q.Get("blood_type")),
		City:      q.Get("city"),
		State:     q.Get("state"),
		Skip:      skip,
		Limit:     limit,
	}
	views, err := a.profiles.ListDonors(r.Context(), filter)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) myDonorProfile(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleDonor)
	if !ok {
		return
	}
	view, err := a.profiles.DonorProfile(r.Context(), acc)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) updateMyDonorProfile(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleDonor)
	if !ok {
		return
	}
	var upd profile.DonorUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	view, err := a.profiles.UpdateDonorProfile(r.Context(), acc, upd)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.audit(r.Context(), "profile.donor.update", nil)
	writeJSON(w, http.StatusOK, view)
}

func (a *API) getDonor(w http.ResponseWriter, r *http.Request, id string) {
	view, err := a.profiles.GetDonorByID(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleOrganizersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listOrganizers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleOrganizerResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/organizers/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "me" {
		switch r.Method {
		case http.MethodGet:
			a.myOrganizerProfile(w, r)
		case http.MethodPut:
			a.updateMyOrganizerProfile(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getOrganizer(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) listOrganizers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parseWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	filter := profile.OrganizerFilter{
		City:  q.Get("city"),
		State: q.Get("state"),
		Skip:  skip,
		Limit: limit,
	}
	if raw := strings.TrimSpace(q.Get("verified")); raw != "" {
		verified := raw == "true" || raw == "1"
		filter.Verified = &verified
	}
	views, err := a.profiles.ListOrganizers(r.Context(), filter)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) myOrganizerProfile(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleOrganizer)
	if !ok {
		return
	}
	view, err := a.profiles.OrganizerProfile(r.Context(), acc)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) updateMyOrganizerProfile(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleOrganizer)
	if !ok {
		return
	}
	var upd profile.OrganizerUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	view, err := a.profiles.UpdateOrganizerProfile(r.Context(), acc, upd)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.audit(r.Context(), "profile.organizer.update", nil)
	writeJSON(w, http.StatusOK, view)
}

func (a *API) getOrganizer(w http.ResponseWriter, r *http.Request, id string) {
	view, err := a.profiles.GetOrganizerByID(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
