package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/bank"
	"redconnect.org/internal/drive"
	"redconnect.org/internal/obs"
	"redconnect.org/internal/profile"
)

// ReadyProbe reports whether the service can reach its dependencies. A
// nil DB (in-memory deployments) is always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the domain services.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	profiles   *profile.Service
	banks      *bank.Service
	drives     *drive.Service
	readyProbe ReadyProbe
	version    string
}

func New(authn *auth.Service, profiles *profile.Service, banks *bank.Service, drives *drive.Service, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authn,
		profiles:   profiles,
		banks:      banks,
		drives:     drives,
		readyProbe: rp,
		version:    version,
	}

	// health/ready
	a.mux.HandleFunc("/health", a.Health)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/", a.handleAuth)

	a.mux.HandleFunc("/api/donors", a.handleDonorsCollection)
	a.mux.HandleFunc("/api/donors/", a.handleDonorResource)
	a.mux.HandleFunc("/api/organizers", a.handleOrganizersCollection)
	a.mux.HandleFunc("/api/organizers/", a.handleOrganizerResource)

	a.mux.HandleFunc("/api/blood-banks", a.handleBanksCollection)
	a.mux.HandleFunc("/api/blood-banks/", a.handleBankResource)

	a.mux.HandleFunc("/api/events", a.handleEventsCollection)
	a.mux.HandleFunc("/api/events/", a.handleEventResource)
	a.mux.HandleFunc("/api/donations", a.handleDonationsCollection)
	a.mux.HandleFunc("/api/donations/", a.handleDonationResource)
	a.mux.HandleFunc("/api/certificates", a.handleCertificatesCollection)
	a.mux.HandleFunc("/api/certificates/", a.handleCertificateResource)

	a.mux.HandleFunc("/", a.Root)

	return a
}

// Handler returns the fully wrapped http.Handler for the server. Rate
// limiting is left to the caller so tests stay deterministic.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to Red Connect API",
		"version": a.version,
	})
}
