package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/bank"
	"redconnect.org/internal/drive"
	"redconnect.org/internal/ids"
	"redconnect.org/internal/profile"
	"redconnect.org/internal/store/memory"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
	store   *memory.Store
	auth    *auth.Service
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	store := memory.New()
	issuer, err := auth.NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	authSvc, err := auth.NewService(store, issuer)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	profiles, err := profile.NewService(store, store)
	if err != nil {
		t.Fatalf("profile service: %v", err)
	}
	banks, err := bank.NewService(store)
	if err != nil {
		t.Fatalf("bank service: %v", err)
	}
	drives, err := drive.NewService(store, store)
	if err != nil {
		t.Fatalf("drive service: %v", err)
	}

	api := New(authSvc, profiles, banks, drives, ReadyProbe{}, "test")
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		store:   store,
		auth:    authSvc,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path, token string) *http.Response {
	return c.do(http.MethodGet, path, nil, token)
}

func (c *apiClient) post(path string, body any, token string) *http.Response {
	return c.do(http.MethodPost, path, body, token)
}

func (c *apiClient) put(path string, body any, token string) *http.Response {
	return c.do(http.MethodPut, path, body, token)
}

func (c *apiClient) del(path, token string) *http.Response {
	return c.do(http.MethodDelete, path, nil, token)
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func donorBody(email string) map[string]any {
	return map[string]any{
		"email":      email,
		"password":   "s3cret-pass",
		"full_name":  "Asha Rao",
		"phone":      "9876543210",
		"blood_type": "O+",
		"city":       "Pune",
		"state":      "Maharashtra",
	}
}

func organizerBody(email string) map[string]any {
	return map[string]any{
		"email":             email,
		"password":          "s3cret-pass",
		"organization_name": "Lifeline Trust",
		"contact_person":    "Vikram Shah",
		"phone":             "9123456780",
		"city":              "Mumbai",
		"state":             "Maharashtra",
	}
}

func (c *apiClient) registerDonor(email string) string {
	c.t.Helper()
	resp := c.post("/api/auth/donor/register", donorBody(email), "")
	wantStatus(c.t, resp, http.StatusCreated)
	var tok tokenResponse
	decodeBody(c.t, resp, &tok)
	return tok.AccessToken
}

func (c *apiClient) registerOrganizer(email string) string {
	c.t.Helper()
	resp := c.post("/api/auth/organizer/register", organizerBody(email), "")
	wantStatus(c.t, resp, http.StatusCreated)
	var tok tokenResponse
	decodeBody(c.t, resp, &tok)
	return tok.AccessToken
}

// seedAdmin inserts an admin account directly; there is no registration
// endpoint for admins.
func (c *apiClient) seedAdmin(email, password string) string {
	c.t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		c.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	acc := &auth.Account{
		ID:           ids.New(),
		Email:        auth.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.store.CreateAccount(context.Background(), acc); err != nil {
		c.t.Fatalf("seed admin: %v", err)
	}
	resp := c.post("/api/auth/login", map[string]any{"email": email, "password": password}, "")
	wantStatus(c.t, resp, http.StatusOK)
	var tok tokenResponse
	decodeBody(c.t, resp, &tok)
	if tok.Role != auth.RoleAdmin {
		c.t.Fatalf("expected admin role, got %q", tok.Role)
	}
	return tok.AccessToken
}

func TestHealthAndRoot(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/health", "")
	wantStatus(t, resp, http.StatusOK)
	var health map[string]string
	decodeBody(t, resp, &health)
	if health["status"] != "healthy" {
		t.Fatalf("expected healthy, got %q", health["status"])
	}

	resp = c.get("/", "")
	wantStatus(t, resp, http.StatusOK)
	var root map[string]any
	decodeBody(t, resp, &root)
	if root["message"] != "Welcome to Red Connect API" {
		t.Fatalf("unexpected welcome message %q", root["message"])
	}

	resp = c.get("/no-such-path", "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestReadyWithoutDB(t *testing.T) {
	c := newTestAPI(t)
	resp := c.get("/readyz", "")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestDonorRegisterAndMe(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/api/auth/donor/register", donorBody("asha@example.com"), "")
	wantStatus(t, resp, http.StatusCreated)
	var tok tokenResponse
	decodeBody(t, resp, &tok)
	if tok.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if tok.TokenType != "bearer" {
		t.Fatalf("expected bearer token type, got %q", tok.TokenType)
	}
	if tok.Role != auth.RoleDonor {
		t.Fatalf("expected donor role, got %q", tok.Role)
	}

	resp = c.get("/api/auth/me", tok.AccessToken)
	wantStatus(t, resp, http.StatusOK)
	var me map[string]any
	decodeBody(t, resp, &me)
	if me["email"] != "asha@example.com" {
		t.Fatalf("expected registered email, got %q", me["email"])
	}
	if me["role"] != "donor" {
		t.Fatalf("expected donor role, got %q", me["role"])
	}
	if me["is_active"] != true {
		t.Fatalf("expected active account")
	}

	resp = c.get("/api/auth/me", "")
	wantStatus(t, resp, http.StatusUnauthorized)
	if resp.Header.Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}
	resp.Body.Close()
}

func TestDuplicateEmailNamesRole(t *testing.T) {
	c := newTestAPI(t)
	c.registerDonor("shared@example.com")

	resp := c.post("/api/auth/organizer/register", organizerBody("shared@example.com"), "")
	wantStatus(t, resp, http.StatusBadRequest)
	var body map[string]any
	decodeBody(t, resp, &body)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "already registered as donor") {
		t.Fatalf("expected conflicting role in error, got %q", msg)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	c := newTestAPI(t)
	c.registerDonor("asha@example.com")

	resp := c.post("/api/auth/donor/login", map[string]any{
		"email":    "asha@example.com",
		"password": "wrong",
	}, "")
	wantStatus(t, resp, http.StatusUnauthorized)
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["error"] != "Incorrect email or password" {
		t.Fatalf("unexpected error message %q", body["error"])
	}
}

func TestLoginRoleScoped(t *testing.T) {
	c := newTestAPI(t)
	c.registerDonor("asha@example.com")

	// donor credentials against the organizer endpoint fail
	resp := c.post("/api/auth/organizer/login", map[string]any{
		"email":    "asha@example.com",
		"password": "s3cret-pass",
	}, "")
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = c.post("/api/auth/donor/login", map[string]any{
		"email":    "asha@example.com",
		"password": "s3cret-pass",
	}, "")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestLogout(t *testing.T) {
	c := newTestAPI(t)
	token := c.registerDonor("asha@example.com")

	resp := c.post("/api/auth/logout", nil, token)
	wantStatus(t, resp, http.StatusOK)
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["message"] != "Successfully logged out" {
		t.Fatalf("unexpected logout message %q", body["message"])
	}

	// logout is stateless, the token still works afterwards
	resp = c.get("/api/auth/me", token)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// no token required either
	resp = c.post("/api/auth/logout", nil, "")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = c.post("/api/auth/logout", nil, "not-a-jwt")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestDonorProfileRoundTrip(t *testing.T) {
	c := newTestAPI(t)
	donorToken := c.registerDonor("asha@example.com")
	orgToken := c.registerOrganizer("org@example.com")

	resp := c.get("/api/donors/me", donorToken)
	wantStatus(t, resp, http.StatusOK)
	var view profile.DonorView
	decodeBody(t, resp, &view)
	if view.FullName != "Asha Rao" || view.Email != "asha@example.com" {
		t.Fatalf("unexpected profile %+v", view)
	}

	resp = c.put("/api/donors/me", map[string]any{"city": "Nagpur"}, donorToken)
	wantStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &view)
	if view.City != "Nagpur" {
		t.Fatalf("expected updated city, got %q", view.City)
	}

	// organizers are not donors
	resp = c.get("/api/donors/me", orgToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// public read by id
	resp = c.get("/api/donors/"+view.ID, "")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// public list with filter
	resp = c.get("/api/donors?city=Nagpur", "")
	wantStatus(t, resp, http.StatusOK)
	var list []profile.DonorView
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 donor, got %d", len(list))
	}
}

func TestBloodBankFlow(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/api/blood-banks", map[string]any{
		"name":     "City Blood Bank",
		"address":  "12 MG Road",
		"phone":    "020-1234567",
		"category": "Government",
		"city":     "Pune",
		"state":    "Maharashtra",
	}, "")
	wantStatus(t, resp, http.StatusCreated)
	var b bank.BloodBank
	decodeBody(t, resp, &b)
	if b.ID == "" {
		t.Fatalf("expected bank id")
	}

	resp = c.post("/api/blood-banks/inventory", map[string]any{
		"blood_bank_id":   b.ID,
		"blood_type":      "O+",
		"units_available": 12,
	}, "")
	wantStatus(t, resp, http.StatusCreated)
	var inv bank.Inventory
	decodeBody(t, resp, &inv)

	resp = c.get("/api/blood-banks/inventory/"+b.ID, "")
	wantStatus(t, resp, http.StatusOK)
	var rows []bank.Inventory
	decodeBody(t, resp, &rows)
	if len(rows) != 1 || rows[0].UnitsAvailable != 12 {
		t.Fatalf("unexpected inventory %+v", rows)
	}

	resp = c.put("/api/blood-banks/inventory/"+inv.ID, map[string]any{
		"units_available": 7,
	}, "")
	wantStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &inv)
	if inv.UnitsAvailable != 7 {
		t.Fatalf("expected 7 units, got %d", inv.UnitsAvailable)
	}

	resp = c.get("/api/blood-banks/states/list", "")
	wantStatus(t, resp, http.StatusOK)
	var states map[string][]string
	decodeBody(t, resp, &states)
	if len(states["states"]) != 1 || states["states"][0] != "Maharashtra" {
		t.Fatalf("unexpected states %+v", states)
	}

	resp = c.get("/api/blood-banks/cities/Maharashtra", "")
	wantStatus(t, resp, http.StatusOK)
	var cities map[string][]string
	decodeBody(t, resp, &cities)
	if len(cities["cities"]) != 1 || cities["cities"][0] != "Pune" {
		t.Fatalf("unexpected cities %+v", cities)
	}

	resp = c.del("/api/blood-banks/"+b.ID, "")
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = c.get("/api/blood-banks/"+b.ID, "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func eventBody(title string) map[string]any {
	return map[string]any{
		"title":            title,
		"event_date":       time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
		"venue":            "Town Hall",
		"city":             "Pune",
		"state":            "Maharashtra",
		"max_participants": 1,
	}
}

func TestEventRegistrationCapacity(t *testing.T) {
	c := newTestAPI(t)
	orgToken := c.registerOrganizer("org@example.com")
	donorToken := c.registerDonor("asha@example.com")
	otherToken := c.registerDonor("ravi@example.com")

	// donors cannot create events
	resp := c.post("/api/events", eventBody("Camp"), donorToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = c.post("/api/events", eventBody("Camp"), orgToken)
	wantStatus(t, resp, http.StatusCreated)
	var e drive.Event
	decodeBody(t, resp, &e)

	resp = c.post("/api/events/"+e.ID+"/register", nil, donorToken)
	wantStatus(t, resp, http.StatusOK)
	var reg map[string]any
	decodeBody(t, resp, &reg)
	if reg["message"] != "Successfully registered for event" {
		t.Fatalf("unexpected register message %q", reg["message"])
	}
	if reg["event_title"] != "Camp" {
		t.Fatalf("unexpected event title %q", reg["event_title"])
	}

	resp = c.post("/api/events/"+e.ID+"/register", nil, otherToken)
	wantStatus(t, resp, http.StatusBadRequest)
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["error"] != "Event is full" {
		t.Fatalf("expected capacity error, got %q", body["error"])
	}

	// registration requires a token
	resp = c.post("/api/events/"+e.ID+"/register", nil, "")
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestEventOwnershipGuards(t *testing.T) {
	c := newTestAPI(t)
	ownerToken := c.registerOrganizer("owner@example.com")
	otherToken := c.registerOrganizer("other@example.com")
	adminToken := c.seedAdmin("admin@example.com", "admin-pass")

	resp := c.post("/api/events", eventBody("Camp"), ownerToken)
	wantStatus(t, resp, http.StatusCreated)
	var e drive.Event
	decodeBody(t, resp, &e)

	resp = c.put("/api/events/"+e.ID, map[string]any{"title": "Hijack"}, otherToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = c.put("/api/events/"+e.ID, map[string]any{"title": "Renamed"}, adminToken)
	wantStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &e)
	if e.Title != "Renamed" {
		t.Fatalf("expected admin update to apply, got %q", e.Title)
	}

	resp = c.get("/api/events/my-events", ownerToken)
	wantStatus(t, resp, http.StatusOK)
	var mine []drive.Event
	decodeBody(t, resp, &mine)
	if len(mine) != 1 {
		t.Fatalf("expected 1 owned event, got %d", len(mine))
	}

	resp = c.del("/api/events/"+e.ID, ownerToken)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
}

func TestDonationLifecycleAndCertificate(t *testing.T) {
	c := newTestAPI(t)
	donorToken := c.registerDonor("asha@example.com")
	orgToken := c.registerOrganizer("org@example.com")
	adminToken := c.seedAdmin("admin@example.com", "admin-pass")

	resp := c.post("/api/donations", map[string]any{
		"donation_date": time.Now().UTC().Format(time.RFC3339),
		"blood_type":    "O+",
		"units":         1.5,
	}, donorToken)
	wantStatus(t, resp, http.StatusCreated)
	var d drive.Donation
	decodeBody(t, resp, &d)
	if d.Status != drive.DonationScheduled {
		t.Fatalf("expected scheduled donation, got %q", d.Status)
	}

	// donor totals were bumped
	resp = c.get("/api/donors/me", donorToken)
	wantStatus(t, resp, http.StatusOK)
	var view profile.DonorView
	decodeBody(t, resp, &view)
	if view.TotalDonations != 1 {
		t.Fatalf("expected 1 total donation, got %d", view.TotalDonations)
	}

	resp = c.put("/api/donations/"+d.ID, map[string]any{"status": "completed"}, donorToken)
	wantStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &d)
	if d.Status != drive.DonationCompleted {
		t.Fatalf("expected completed donation, got %q", d.Status)
	}

	// completed is terminal
	resp = c.put("/api/donations/"+d.ID, map[string]any{"status": "scheduled"}, donorToken)
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	// donation listing is staff only
	resp = c.get("/api/donations", donorToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
	resp = c.get("/api/donations?status=completed", orgToken)
	wantStatus(t, resp, http.StatusOK)
	var listed []drive.Donation
	decodeBody(t, resp, &listed)
	if len(listed) != 1 {
		t.Fatalf("expected 1 completed donation, got %d", len(listed))
	}

	// donors cannot issue certificates
	certBody := map[string]any{
		"donation_id": d.ID,
		"blood_units": 1.5,
		"blood_type":  "O+",
		"issued_by":   "Lifeline Trust",
	}
	resp = c.post("/api/certificates", certBody, donorToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = c.post("/api/certificates", certBody, orgToken)
	wantStatus(t, resp, http.StatusCreated)
	var cert drive.Certificate
	decodeBody(t, resp, &cert)
	if !strings.HasPrefix(cert.CertificateNumber, "CERT-") {
		t.Fatalf("unexpected certificate number %q", cert.CertificateNumber)
	}

	// one certificate per donation
	resp = c.post("/api/certificates", certBody, orgToken)
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = c.get("/api/certificates/my-certificates", donorToken)
	wantStatus(t, resp, http.StatusOK)
	var mine []drive.Certificate
	decodeBody(t, resp, &mine)
	if len(mine) != 1 {
		t.Fatalf("expected 1 certificate, got %d", len(mine))
	}

	// deletion is admin only
	resp = c.del("/api/certificates/"+cert.ID, orgToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
	resp = c.del("/api/certificates/"+cert.ID, adminToken)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
}

func TestDonationOwnership(t *testing.T) {
	c := newTestAPI(t)
	ownerToken := c.registerDonor("asha@example.com")
	otherToken := c.registerDonor("ravi@example.com")
	orgToken := c.registerOrganizer("org@example.com")

	resp := c.post("/api/donations", map[string]any{
		"donation_date": time.Now().UTC().Format(time.RFC3339),
		"blood_type":    "O+",
	}, ownerToken)
	wantStatus(t, resp, http.StatusCreated)
	var d drive.Donation
	decodeBody(t, resp, &d)

	resp = c.get("/api/donations/"+d.ID, otherToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// staff bypass the ownership check
	resp = c.get("/api/donations/"+d.ID, orgToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = c.get("/api/donations/"+d.ID, ownerToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestStatsSummaries(t *testing.T) {
	c := newTestAPI(t)
	orgToken := c.registerOrganizer("org@example.com")
	donorToken := c.registerDonor("asha@example.com")

	resp := c.post("/api/events", eventBody("Camp"), orgToken)
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = c.post("/api/donations", map[string]any{
		"donation_date": time.Now().UTC().Format(time.RFC3339),
		"blood_type":    "O+",
		"units":         2.0,
	}, donorToken)
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = c.get("/api/events/stats/summary", "")
	wantStatus(t, resp, http.StatusOK)
	var es drive.EventStats
	decodeBody(t, resp, &es)
	if es.TotalEvents != 1 || es.UpcomingEvents != 1 {
		t.Fatalf("unexpected event stats %+v", es)
	}

	resp = c.get("/api/donations/stats/summary", "")
	wantStatus(t, resp, http.StatusOK)
	var ds drive.DonationStats
	decodeBody(t, resp, &ds)
	if ds.TotalDonations != 1 || ds.ScheduledDonations != 1 {
		t.Fatalf("unexpected donation stats %+v", ds)
	}
	if ds.TotalUnitsCollected != 2.0 {
		t.Fatalf("expected 2.0 units, got %v", ds.TotalUnitsCollected)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	c := newTestAPI(t)
	resp := c.del("/api/blood-banks", "")
	wantStatus(t, resp, http.StatusMethodNotAllowed)
	if allow := resp.Header.Get("Allow"); !strings.Contains(allow, http.MethodGet) {
		t.Fatalf("expected Allow header, got %q", allow)
	}
	resp.Body.Close()
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	c := newTestAPI(t)
	resp := c.post("/api/auth/donor/register", map[string]any{
		"email":      "asha@example.com",
		"password":   "s3cret-pass",
		"full_name":  "Asha Rao",
		"blood_type": "O+",
		"bogus":      true,
	}, "")
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestListPaginationValidation(t *testing.T) {
	c := newTestAPI(t)
	resp := c.get("/api/donors?"+url.Values{"limit": {"0"}}.Encode(), "")
	wantStatus(t, resp, http.StatusBadRequest)
	var body map[string]any
	decodeBody(t, resp, &body)
	if !strings.Contains(fmt.Sprint(body["error"]), "limit") {
		t.Fatalf("expected limit error, got %v", body["error"])
	}
}
