// Package memory provides an in-process implementation of every store
// interface. It backs tests and the no-database development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/bank"
	"redconnect.org/internal/drive"
	"redconnect.org/internal/profile"
)

// Store holds the whole dataset behind one lock. It implements
// auth.AccountStore, profile.Store, bank.Store, and drive.Store.
type Store struct {
	mu sync.RWMutex

	accounts   map[string]*auth.Account
	donors     map[string]*profile.Donor
	organizers map[string]*profile.Organizer

	banks     map[string]*bank.BloodBank
	inventory map[string]*bank.Inventory

	events       map[string]*drive.Event
	donations    map[string]*drive.Donation
	certificates map[string]*drive.Certificate
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]*auth.Account),
		donors:       make(map[string]*profile.Donor),
		organizers:   make(map[string]*profile.Organizer),
		banks:        make(map[string]*bank.BloodBank),
		inventory:    make(map[string]*bank.Inventory),
		events:       make(map[string]*drive.Event),
		donations:    make(map[string]*drive.Donation),
		certificates: make(map[string]*drive.Certificate),
	}
}

// --- auth.AccountStore ---

// CreateAccount inserts a bare account with no profile row. Admin
// accounts are seeded this way.
func (s *Store) CreateAccount(ctx context.Context, acc *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAccountLocked(acc)
}

func (s *Store) FindAccount(ctx context.Context, id string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return cloneAccount(acc), nil
}

func (s *Store) FindAccountsByEmail(ctx context.Context, email string) ([]*auth.Account, error) {
	email = auth.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*auth.Account
	for _, acc := range s.accounts {
		if acc.Email == email {
			out = append(out, cloneAccount(acc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindAccountByEmailRole(ctx context.Context, email string, role auth.Role) (*auth.Account, error) {
	email = auth.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.Email == email && acc.Role == role {
			return cloneAccount(acc), nil
		}
	}
	return nil, auth.ErrNotFound
}

// --- profile.Store ---

func (s *Store) CreateDonorAccount(ctx context.Context, acc *auth.Account, d *profile.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertAccountLocked(acc); err != nil {
		return err
	}
	s.donors[d.ID] = cloneDonor(d)
	return nil
}

func (s *Store) CreateOrganizerAccount(ctx context.Context, acc *auth.Account, o *profile.Organizer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertAccountLocked(acc); err != nil {
		return err
	}
	s.organizers[o.ID] = cloneOrganizer(o)
	return nil
}

func (s *Store) insertAccountLocked(acc *auth.Account) error {
	for _, existing := range s.accounts {
		if existing.Email == acc.Email {
			return profile.ErrConflict
		}
	}
	if _, ok := s.accounts[acc.ID]; ok {
		return profile.ErrConflict
	}
	s.accounts[acc.ID] = cloneAccount(acc)
	return nil
}

func (s *Store) DonorByAccount(ctx context.Context, accountID string) (*profile.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.donors {
		if d.AccountID == accountID {
			return cloneDonor(d), nil
		}
	}
	return nil, profile.ErrNotFound
}

func (s *Store) OrganizerByAccount(ctx context.Context, accountID string) (*profile.Organizer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.organizers {
		if o.AccountID == accountID {
			return cloneOrganizer(o), nil
		}
	}
	return nil, profile.ErrNotFound
}

func (s *Store) GetDonor(ctx context.Context, id string) (*profile.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return cloneDonor(d), nil
}

func (s *Store) GetOrganizer(ctx context.Context, id string) (*profile.Organizer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.organizers[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return cloneOrganizer(o), nil
}

func (s *Store) ListDonors(ctx context.Context, filter profile.DonorFilter) ([]*profile.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.Donor
	for _, d := range s.donors {
		if filter.BloodType != "" && d.BloodType != filter.BloodType {
			continue
		}
		if filter.City != "" && !strings.EqualFold(d.City, filter.City) {
			continue
		}
		if filter.State != "" && !strings.EqualFold(d.State, filter.State) {
			continue
		}
		out = append(out, cloneDonor(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, filter.Skip, filter.Limit), nil
}

func (s *Store) ListOrganizers(ctx context.Context, filter profile.OrganizerFilter) ([]*profile.Organizer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.Organizer
	for _, o := range s.organizers {
		if filter.Verified != nil && o.Verified != *filter.Verified {
			continue
		}
		if filter.City != "" && !strings.EqualFold(o.City, filter.City) {
			continue
		}
		if filter.State != "" && !strings.EqualFold(o.State, filter.State) {
			continue
		}
		out = append(out, cloneOrganizer(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, filter.Skip, filter.Limit), nil
}

func (s *Store) UpdateDonor(ctx context.Context, d *profile.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[d.ID]; !ok {
		return profile.ErrNotFound
	}
	s.donors[d.ID] = cloneDonor(d)
	return nil
}

func (s *Store) UpdateOrganizer(ctx context.Context, o *profile.Organizer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.organizers[o.ID]; !ok {
		return profile.ErrNotFound
	}
	s.organizers[o.ID] = cloneOrganizer(o)
	return nil
}

func (s *Store) AdjustDonorDonationCount(ctx context.Context, donorID string, delta int, lastDonation *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[donorID]
	if !ok {
		return profile.ErrNotFound
	}
	d.TotalDonations += delta
	if d.TotalDonations < 0 {
		d.TotalDonations = 0
	}
	if lastDonation != nil {
		date := *lastDonation
		d.LastDonationDate = &date
	}
	return nil
}

// --- bank.Store ---

func (s *Store) CreateBank(ctx context.Context, b *bank.BloodBank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[b.ID] = cloneBank(b)
	return nil
}

func (s *Store) GetBank(ctx context.Context, id string) (*bank.BloodBank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.banks[id]
	if !ok {
		return nil, bank.ErrNotFound
	}
	return cloneBank(b), nil
}

func (s *Store) ListBanks(ctx context.Context, filter bank.Filter) ([]*bank.BloodBank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*bank.BloodBank
	for _, b := range s.banks {
		if filter.State != "" && !strings.EqualFold(b.State, filter.State) {
			continue
		}
		if filter.City != "" && !strings.EqualFold(b.City, filter.City) {
			continue
		}
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if filter.BloodType != "" && !strings.Contains(b.AvailableBloodTypes, string(filter.BloodType)) {
			continue
		}
		out = append(out, cloneBank(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, filter.Skip, filter.Limit), nil
}

func (s *Store) UpdateBank(ctx context.Context, b *bank.BloodBank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.banks[b.ID]; !ok {
		return bank.ErrNotFound
	}
	s.banks[b.ID] = cloneBank(b)
	return nil
}

func (s *Store) DeleteBank(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.banks[id]; !ok {
		return bank.ErrNotFound
	}
	delete(s.banks, id)
	return nil
}

func (s *Store) UpsertInventory(ctx context.Context, inv *bank.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.inventory {
		if existing.BloodBankID == inv.BloodBankID && existing.BloodType == inv.BloodType {
			existing.UnitsAvailable = inv.UnitsAvailable
			existing.LastUpdated = inv.LastUpdated
			*inv = *existing
			return nil
		}
	}
	s.inventory[inv.ID] = cloneInventory(inv)
	return nil
}

func (s *Store) GetInventory(ctx context.Context, id string) (*bank.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.inventory[id]
	if !ok {
		return nil, bank.ErrNotFound
	}
	return cloneInventory(inv), nil
}

func (s *Store) BankInventory(ctx context.Context, bankID string) ([]*bank.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*bank.Inventory
	for _, inv := range s.inventory {
		if inv.BloodBankID == bankID {
			out = append(out, cloneInventory(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BloodType < out[j].BloodType })
	return out, nil
}

func (s *Store) UpdateInventoryUnits(ctx context.Context, id string, units int, at time.Time) (*bank.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.inventory[id]
	if !ok {
		return nil, bank.ErrNotFound
	}
	inv.UnitsAvailable = units
	inv.LastUpdated = at
	return cloneInventory(inv), nil
}

func (s *Store) ListStates(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, b := range s.banks {
		if b.State == "" {
			continue
		}
		if _, ok := seen[b.State]; ok {
			continue
		}
		seen[b.State] = struct{}{}
		out = append(out, b.State)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListCities(ctx context.Context, state string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, b := range s.banks {
		if b.City == "" || !strings.EqualFold(b.State, state) {
			continue
		}
		if _, ok := seen[b.City]; ok {
			continue
		}
		seen[b.City] = struct{}{}
		out = append(out, b.City)
	}
	sort.Strings(out)
	return out, nil
}

// --- drive.Store ---

func (s *Store) CreateEvent(ctx context.Context, e *drive.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = cloneEvent(e)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*drive.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, drive.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s *Store) ListEvents(ctx context.Context, filter drive.EventFilter) ([]*drive.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*drive.Event
	for _, e := range s.events {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.City != "" && !strings.EqualFold(e.City, filter.City) {
			continue
		}
		if filter.State != "" && !strings.EqualFold(e.State, filter.State) {
			continue
		}
		if filter.FromDate != nil && e.EventDate.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && e.EventDate.After(*filter.ToDate) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	return window(out, filter.Skip, filter.Limit), nil
}

func (s *Store) EventsByOrganizer(ctx context.Context, organizerID string) ([]*drive.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*drive.Event
	for _, e := range s.events {
		if e.OrganizerID == organizerID {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.After(out[j].EventDate) })
	return out, nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *drive.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return drive.ErrNotFound
	}
	s.events[e.ID] = cloneEvent(e)
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return drive.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *Store) RegisterParticipant(ctx context.Context, eventID string, at time.Time) (*drive.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, drive.ErrNotFound
	}
	if e.MaxParticipants > 0 && e.RegisteredParticipants >= e.MaxParticipants {
		return nil, drive.ErrEventFull
	}
	e.RegisteredParticipants++
	e.UpdatedAt = at
	return cloneEvent(e), nil
}

func (s *Store) EventStats(ctx context.Context, today time.Time) (drive.EventStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats drive.EventStats
	for _, e := range s.events {
		stats.TotalEvents++
		stats.TotalParticipants += e.RegisteredParticipants
		switch {
		case e.Status == drive.EventUpcoming && !e.EventDate.Before(today):
			stats.UpcomingEvents++
		case e.Status == drive.EventCompleted:
			stats.CompletedEvents++
		}
	}
	stats.OngoingEvents = stats.TotalEvents - stats.UpcomingEvents - stats.CompletedEvents
	return stats, nil
}

func (s *Store) CreateDonation(ctx context.Context, d *drive.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donations[d.ID] = cloneDonation(d)
	return nil
}

func (s *Store) GetDonation(ctx context.Context, id string) (*drive.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, drive.ErrNotFound
	}
	return cloneDonation(d), nil
}

func (s *Store) DonationsByDonor(ctx context.Context, donorID string) ([]*drive.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*drive.Donation
	for _, d := range s.donations {
		if d.DonorID == donorID {
			out = append(out, cloneDonation(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DonationDate.After(out[j].DonationDate) })
	return out, nil
}

func (s *Store) ListDonations(ctx context.Context, filter drive.DonationFilter) ([]*drive.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*drive.Donation
	for _, d := range s.donations {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.FromDate != nil && d.DonationDate.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && d.DonationDate.After(*filter.ToDate) {
			continue
		}
		out = append(out, cloneDonation(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DonationDate.After(out[j].DonationDate) })
	return window(out, filter.Skip, filter.Limit), nil
}

func (s *Store) UpdateDonation(ctx context.Context, d *drive.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[d.ID]; !ok {
		return drive.ErrNotFound
	}
	s.donations[d.ID] = cloneDonation(d)
	return nil
}

func (s *Store) DeleteDonation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[id]; !ok {
		return drive.ErrNotFound
	}
	delete(s.donations, id)
	return nil
}

func (s *Store) DonationStats(ctx context.Context) (drive.DonationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats drive.DonationStats
	for _, d := range s.donations {
		stats.TotalDonations++
		stats.TotalUnitsCollected += d.Units
		if d.Status == drive.DonationCompleted {
			stats.CompletedDonations++
		}
	}
	stats.ScheduledDonations = stats.TotalDonations - stats.CompletedDonations
	return stats, nil
}

func (s *Store) CreateCertificate(ctx context.Context, c *drive.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.certificates {
		if existing.DonationID == c.DonationID {
			return drive.ErrCertificateExists
		}
	}
	s.certificates[c.ID] = cloneCertificate(c)
	return nil
}

func (s *Store) GetCertificate(ctx context.Context, id string) (*drive.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certificates[id]
	if !ok {
		return nil, drive.ErrNotFound
	}
	return cloneCertificate(c), nil
}

func (s *Store) CertificateByDonation(ctx context.Context, donationID string) (*drive.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.certificates {
		if c.DonationID == donationID {
			return cloneCertificate(c), nil
		}
	}
	return nil, drive.ErrNotFound
}

func (s *Store) CertificatesByDonor(ctx context.Context, donorID string) ([]*drive.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*drive.Certificate
	for _, c := range s.certificates {
		if c.DonorID == donorID {
			out = append(out, cloneCertificate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueDate.After(out[j].IssueDate) })
	return out, nil
}

func (s *Store) ListCertificates(ctx context.Context, filter drive.CertificateFilter) ([]*drive.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*drive.Certificate
	for _, c := range s.certificates {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, cloneCertificate(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, filter.Skip, filter.Limit), nil
}

func (s *Store) UpdateCertificate(ctx context.Context, c *drive.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certificates[c.ID]; !ok {
		return drive.ErrNotFound
	}
	s.certificates[c.ID] = cloneCertificate(c)
	return nil
}

func (s *Store) DeleteCertificate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certificates[id]; !ok {
		return drive.ErrNotFound
	}
	delete(s.certificates, id)
	return nil
}

// --- helpers ---

func window[T any](items []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(items) {
			return nil
		}
		items = items[skip:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneAccount(a *auth.Account) *auth.Account {
	cp := *a
	return &cp
}

func cloneDonor(d *profile.Donor) *profile.Donor {
	cp := *d
	if d.DateOfBirth != nil {
		dob := *d.DateOfBirth
		cp.DateOfBirth = &dob
	}
	if d.LastDonationDate != nil {
		last := *d.LastDonationDate
		cp.LastDonationDate = &last
	}
	return &cp
}

func cloneOrganizer(o *profile.Organizer) *profile.Organizer {
	cp := *o
	return &cp
}

func cloneBank(b *bank.BloodBank) *bank.BloodBank {
	cp := *b
	if b.Latitude != nil {
		lat := *b.Latitude
		cp.Latitude = &lat
	}
	if b.Longitude != nil {
		lon := *b.Longitude
		cp.Longitude = &lon
	}
	return &cp
}

func cloneInventory(i *bank.Inventory) *bank.Inventory {
	cp := *i
	return &cp
}

func cloneEvent(e *drive.Event) *drive.Event {
	cp := *e
	return &cp
}

func cloneDonation(d *drive.Donation) *drive.Donation {
	cp := *d
	return &cp
}

func cloneCertificate(c *drive.Certificate) *drive.Certificate {
	cp := *c
	return &cp
}
