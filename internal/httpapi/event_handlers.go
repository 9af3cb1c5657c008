package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/drive"
	"redconnect.org/internal/profile"
)

func (a *API) handleEventsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createEvent(w, r)
	case http.MethodGet:
		a.listEvents(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEventResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/events/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch path {
	case "my-events":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.myEvents(w, r)
		return
	case "upcoming":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.upcomingEvents(w, r)
		return
	case "stats/summary":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.eventStats(w, r)
		return
	}

	if strings.HasSuffix(path, "/register") {
		id := strings.TrimSuffix(path, "/register")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.postOnly(w, r, func(w http.ResponseWriter, r *http.Request) {
			a.registerForEvent(w, r, id)
		})
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getEvent(w, r, path)
	case http.MethodPut:
		a.updateEvent(w, r, path)
	case http.MethodDelete:
		a.deleteEvent(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleOrganizer)
	if !ok {
		return
	}
	var req drive.CreateEventInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, err := a.drives.CreateEvent(r.Context(), acc, req)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "event.create", map[string]any{"event_id": e.ID})
	w.Header().Set("Location", "/api/events/"+e.ID)
	writeJSON(w, http.StatusCreated, e)
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := eventFilterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	events, err := a.drives.ListEvents(r.Context(), filter)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *API) upcomingEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := eventFilterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	events, err := a.drives.UpcomingEvents(r.Context(), filter)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func eventFilterFromQuery(r *http.Request) (drive.EventFilter, error) {
	skip, limit, err := parseWindow(r)
	if err != nil {
		return drive.EventFilter{}, err
	}
	q := r.URL.Query()
	from, err := parseDateParam(q.Get("from_date"), "from_date")
	if err != nil {
		return drive.EventFilter{}, err
	}
	to, err := parseDateParam(q.Get("to_date"), "to_date")
	if err != nil {
		return drive.EventFilter{}, err
	}
	return drive.EventFilter{
		Status:   drive.EventStatus(q.Get("status")),
		City:     q.Get("city"),
		State:    q.Get("state"),
		FromDate: from,
		ToDate:   to,
		Skip:     skip,
		Limit:    limit,
	}, nil
}

func (a *API) myEvents(w http.ResponseWriter, r *http.Request) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleOrganizer)
	if !ok {
		return
	}
	events, err := a.drives.MyEvents(r.Context(), acc)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *API) getEvent(w http.ResponseWriter, r *http.Request, id string) {
	e, err := a.drives.GetEvent(r.Context(), id)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) updateEvent(w http.ResponseWriter, r *http.Request, id string) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleOrganizer, auth.RoleAdmin)
	if !ok {
		return
	}
	var upd drive.UpdateEventInput
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, err := a.drives.UpdateEvent(r.Context(), acc, id, upd)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "event.update", map[string]any{"event_id": e.ID})
	writeJSON(w, http.StatusOK, e)
}

func (a *API) deleteEvent(w http.ResponseWriter, r *http.Request, id string) {
	acc, r, ok := a.requireAccount(w, r, auth.RoleOrganizer, auth.RoleAdmin)
	if !ok {
		return
	}
	if err := a.drives.DeleteEvent(r.Context(), acc, id); err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "event.delete", map[string]any{"event_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) registerForEvent(w http.ResponseWriter, r *http.Request, id string) {
	_, r, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	e, err := a.drives.RegisterForEvent(r.Context(), id)
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	a.audit(r.Context(), "event.register", map[string]any{"event_id": e.ID})
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Successfully registered for event",
		"event_id":    e.ID,
		"event_title": e.Title,
	})
}

func (a *API) eventStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.drives.EventStatsSummary(r.Context())
	if err != nil {
		handleDriveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func handleDriveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, drive.ErrEventFull):
		writeError(w, r, http.StatusBadRequest, "Event is full")
	case errors.Is(err, drive.ErrInvalidInput),
		errors.Is(err, drive.ErrInvalidTransition),
		errors.Is(err, drive.ErrCertificateExists),
		errors.Is(err, profile.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, drive.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
