package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/ids"
	"redconnect.org/internal/profile"
)

// Service owns donation camps, donation records, and certificates. It
// resolves callers to their donor or organizer profiles for ownership
// checks and keeps donor donation counters in step with the records.
type Service struct {
	store    Store
	profiles profile.Store
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the drive service.
func NewService(store Store, profiles profile.Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("drive: store is required")
	}
	if profiles == nil {
		return nil, errors.New("drive: profile store is required")
	}
	s := &Service{store: store, profiles: profiles, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateEventInput carries the fields of a new donation camp.
type CreateEventInput struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	EventDate       time.Time `json:"event_date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	Venue           string    `json:"venue"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	MaxParticipants int       `json:"max_participants"`
	BannerImage     string    `json:"banner_image"`
}

// CreateEvent creates a camp owned by the caller's organizer profile.
func (s *Service) CreateEvent(ctx context.Context, acc *auth.Account, in CreateEventInput) (*Event, error) {
	org, err := s.profiles.OrganizerByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Venue) == "" {
		return nil, fmt.Errorf("%w: venue is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.State) == "" {
		return nil, fmt.Errorf("%w: city and state are required", ErrInvalidInput)
	}
	if in.EventDate.IsZero() {
		return nil, fmt.Errorf("%w: event_date is required", ErrInvalidInput)
	}
	if in.MaxParticipants < 0 {
		return nil, fmt.Errorf("%w: max_participants cannot be negative", ErrInvalidInput)
	}
	now := s.now().UTC()
	e := &Event{
		ID:              ids.New(),
		OrganizerID:     org.ID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		EventDate:       in.EventDate,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Venue:           in.Venue,
		City:            strings.TrimSpace(in.City),
		State:           strings.TrimSpace(in.State),
		MaxParticipants: in.MaxParticipants,
		Status:          EventUpcoming,
		BannerImage:     in.BannerImage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// MyEvents lists camps owned by the caller's organizer profile, newest
// event date first.
func (s *Service) MyEvents(ctx context.Context, acc *auth.Account) ([]*Event, error) {
	org, err := s.profiles.OrganizerByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return s.store.EventsByOrganizer(ctx, org.ID)
}

// ListEvents returns camps matching the filter, soonest first.
func (s *Service) ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown event status %q", ErrInvalidInput, filter.Status)
	}
	return s.store.ListEvents(ctx, filter)
}

// UpcomingEvents returns camps still marked upcoming with an event date
// of today or later.
func (s *Service) UpcomingEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	today := truncateToDay(s.now().UTC())
	filter.Status = EventUpcoming
	filter.FromDate = &today
	return s.store.ListEvents(ctx, filter)
}

// GetEvent returns one camp by id.
func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	return s.store.GetEvent(ctx, id)
}

// UpdateEventInput carries partial event changes; nil fields are left
// untouched.
type UpdateEventInput struct {
	Title           *string      `json:"title"`
	Description     *string      `json:"description"`
	EventDate       *time.Time   `json:"event_date"`
	StartTime       *string      `json:"start_time"`
	EndTime         *string      `json:"end_time"`
	Venue           *string      `json:"venue"`
	City            *string      `json:"city"`
	State           *string      `json:"state"`
	MaxParticipants *int         `json:"max_participants"`
	Status          *EventStatus `json:"status"`
	BannerImage     *string      `json:"banner_image"`
}

// UpdateEvent applies a partial update. Organizers may only touch their
// own camps; admins may touch any.
func (s *Service) UpdateEvent(ctx context.Context, acc *auth.Account, id string, upd UpdateEventInput) (*Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeEventOwner(ctx, acc, e); err != nil {
		return nil, err
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be blank", ErrInvalidInput)
		}
		e.Title = title
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown event status %q", ErrInvalidInput, *upd.Status)
		}
		e.Status = *upd.Status
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.EventDate != nil {
		e.EventDate = *upd.EventDate
	}
	if upd.StartTime != nil {
		e.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		e.EndTime = *upd.EndTime
	}
	if upd.Venue != nil {
		e.Venue = *upd.Venue
	}
	if upd.City != nil {
		e.City = strings.TrimSpace(*upd.City)
	}
	if upd.State != nil {
		e.State = strings.TrimSpace(*upd.State)
	}
	if upd.MaxParticipants != nil {
		if *upd.MaxParticipants < 0 {
			return nil, fmt.Errorf("%w: max_participants cannot be negative", ErrInvalidInput)
		}
		e.MaxParticipants = *upd.MaxParticipants
	}
	if upd.BannerImage != nil {
		e.BannerImage = *upd.BannerImage
	}
	e.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEvent removes a camp under the same ownership rule as UpdateEvent.
func (s *Service) DeleteEvent(ctx context.Context, acc *auth.Account, id string) error {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeEventOwner(ctx, acc, e); err != nil {
		return err
	}
	return s.store.DeleteEvent(ctx, id)
}

func (s *Service) authorizeEventOwner(ctx context.Context, acc *auth.Account, e *Event) error {
	if acc.Role == auth.RoleAdmin {
		return nil
	}
	org, err := s.profiles.OrganizerByAccount(ctx, acc.ID)
	if err != nil {
		return err
	}
	if e.OrganizerID != org.ID {
		return fmt.Errorf("%w: not the event owner", auth.ErrForbidden)
	}
	return nil
}

// RegisterForEvent bumps the participant counter for the caller. The
// bump is atomic against the cap, so concurrent registrations cannot
// overfill a camp.
func (s *Service) RegisterForEvent(ctx context.Context, eventID string) (*Event, error) {
	return s.store.RegisterParticipant(ctx, eventID, s.now().UTC())
}

// EventStatsSummary returns aggregate event counts.
func (s *Service) EventStatsSummary(ctx context.Context) (EventStats, error) {
	return s.store.EventStats(ctx, truncateToDay(s.now().UTC()))
}

// CreateDonationInput carries the fields of a new donation record.
type CreateDonationInput struct {
	EventID      string            `json:"event_id"`
	DonationDate time.Time         `json:"donation_date"`
	BloodType    profile.BloodType `json:"blood_type"`
	Units        float64           `json:"units"`
	Notes        string            `json:"notes"`
}

// CreateDonation records a donation for the caller's donor profile and
// bumps the donor's totals.
func (s *Service) CreateDonation(ctx context.Context, acc *auth.Account, in CreateDonationInput) (*Donation, error) {
	donor, err := s.profiles.DonorByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if !in.BloodType.Valid() {
		return nil, fmt.Errorf("%w: unknown blood type %q", ErrInvalidInput, in.BloodType)
	}
	if in.DonationDate.IsZero() {
		return nil, fmt.Errorf("%w: donation_date is required", ErrInvalidInput)
	}
	if in.Units <= 0 {
		in.Units = 1.0
	}
	if in.EventID != "" {
		if _, err := s.store.GetEvent(ctx, in.EventID); err != nil {
			return nil, err
		}
	}
	now := s.now().UTC()
	d := &Donation{
		ID:           ids.New(),
		DonorID:      donor.ID,
		EventID:      in.EventID,
		DonationDate: in.DonationDate,
		BloodType:    in.BloodType,
		Units:        in.Units,
		Status:       DonationScheduled,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateDonation(ctx, d); err != nil {
		return nil, err
	}
	if err := s.profiles.AdjustDonorDonationCount(ctx, donor.ID, 1, &in.DonationDate); err != nil {
		return nil, err
	}
	return d, nil
}

// MyDonations lists the caller's donation records, newest first.
func (s *Service) MyDonations(ctx context.Context, acc *auth.Account) ([]*Donation, error) {
	donor, err := s.profiles.DonorByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return s.store.DonationsByDonor(ctx, donor.ID)
}

// GetDonation returns one donation. Donors may only read their own;
// organizers and admins may read any.
func (s *Service) GetDonation(ctx context.Context, acc *auth.Account, id string) (*Donation, error) {
	d, err := s.store.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Role == auth.RoleDonor {
		donor, err := s.profiles.DonorByAccount(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		if d.DonorID != donor.ID {
			return nil, fmt.Errorf("%w: not the donation owner", auth.ErrForbidden)
		}
	}
	return d, nil
}

// UpdateDonationInput carries partial donation changes.
type UpdateDonationInput struct {
	DonationDate   *time.Time         `json:"donation_date"`
	BloodType      *profile.BloodType `json:"blood_type"`
	Units          *float64           `json:"units"`
	Status         *DonationStatus    `json:"status"`
	Notes          *string            `json:"notes"`
	CertificateURL *string            `json:"certificate_url"`
}

// UpdateDonation applies a partial update to the caller's own donation.
// Status changes follow the transition rules: scheduled may complete or
// cancel, completed and cancelled are terminal.
func (s *Service) UpdateDonation(ctx context.Context, acc *auth.Account, id string, upd UpdateDonationInput) (*Donation, error) {
	d, err := s.store.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	donor, err := s.profiles.DonorByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if d.DonorID != donor.ID {
		return nil, fmt.Errorf("%w: not the donation owner", auth.ErrForbidden)
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown donation status %q", ErrInvalidInput, *upd.Status)
		}
		if !d.Status.CanTransitionTo(*upd.Status) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, d.Status, *upd.Status)
		}
		d.Status = *upd.Status
	}
	if upd.BloodType != nil {
		if !upd.BloodType.Valid() {
			return nil, fmt.Errorf("%w: unknown blood type %q", ErrInvalidInput, *upd.BloodType)
		}
		d.BloodType = *upd.BloodType
	}
	if upd.DonationDate != nil {
		d.DonationDate = *upd.DonationDate
	}
	if upd.Units != nil {
		if *upd.Units <= 0 {
			return nil, fmt.Errorf("%w: units must be positive", ErrInvalidInput)
		}
		d.Units = *upd.Units
	}
	if upd.Notes != nil {
		d.Notes = *upd.Notes
	}
	if upd.CertificateURL != nil {
		d.CertificateURL = *upd.CertificateURL
	}
	d.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDonation(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDonation removes the caller's own donation and decrements the
// donor's total.
func (s *Service) DeleteDonation(ctx context.Context, acc *auth.Account, id string) error {
	d, err := s.store.GetDonation(ctx, id)
	if err != nil {
		return err
	}
	donor, err := s.profiles.DonorByAccount(ctx, acc.ID)
	if err != nil {
		return err
	}
	if d.DonorID != donor.ID {
		return fmt.Errorf("%w: not the donation owner", auth.ErrForbidden)
	}
	if err := s.store.DeleteDonation(ctx, id); err != nil {
		return err
	}
	return s.profiles.AdjustDonorDonationCount(ctx, donor.ID, -1, nil)
}

// ListDonations returns donation records matching the filter, newest
// first. Callers are expected to be organizers or admins.
func (s *Service) ListDonations(ctx context.Context, filter DonationFilter) ([]*Donation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown donation status %q", ErrInvalidInput, filter.Status)
	}
	return s.store.ListDonations(ctx, filter)
}

// DonationStatsSummary returns aggregate donation counts.
func (s *Service) DonationStatsSummary(ctx context.Context) (DonationStats, error) {
	return s.store.DonationStats(ctx)
}

// IssueCertificateInput carries the fields of a new certificate.
type IssueCertificateInput struct {
	DonationID string            `json:"donation_id"`
	BloodUnits float64           `json:"blood_units"`
	BloodType  profile.BloodType `json:"blood_type"`
	IssuedBy   string            `json:"issued_by"`
	Notes      string            `json:"notes"`
}

// IssueCertificate mints a certificate for a donation. Each donation can
// carry at most one certificate; the number is unique and dated.
func (s *Service) IssueCertificate(ctx context.Context, in IssueCertificateInput) (*Certificate, error) {
	if !in.BloodType.Valid() {
		return nil, fmt.Errorf("%w: unknown blood type %q", ErrInvalidInput, in.BloodType)
	}
	if in.BloodUnits <= 0 {
		return nil, fmt.Errorf("%w: blood_units must be positive", ErrInvalidInput)
	}
	d, err := s.store.GetDonation(ctx, in.DonationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.CertificateByDonation(ctx, in.DonationID); err == nil {
		return nil, ErrCertificateExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := s.now().UTC()
	c := &Certificate{
		ID:                ids.New(),
		DonationID:        d.ID,
		DonorID:           d.DonorID,
		CertificateNumber: s.certificateNumber(),
		IssueDate:         truncateToDay(now),
		BloodUnits:        in.BloodUnits,
		BloodType:         in.BloodType,
		Status:            CertificateIssued,
		IssuedBy:          in.IssuedBy,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateCertificate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) certificateNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CERT-%s-%s", s.now().UTC().Format("20060102"), suffix)
}

// MyCertificates lists the caller's certificates, newest issue date
// first.
func (s *Service) MyCertificates(ctx context.Context, acc *auth.Account) ([]*Certificate, error) {
	donor, err := s.profiles.DonorByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return s.store.CertificatesByDonor(ctx, donor.ID)
}

// GetCertificate returns one certificate. Donors may only read their
// own; organizers and admins may read any.
func (s *Service) GetCertificate(ctx context.Context, acc *auth.Account, id string) (*Certificate, error) {
	c, err := s.store.GetCertificate(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Role == auth.RoleDonor {
		donor, err := s.profiles.DonorByAccount(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		if c.DonorID != donor.ID {
			return nil, fmt.Errorf("%w: not the certificate owner", auth.ErrForbidden)
		}
	}
	return c, nil
}

// UpdateCertificateInput carries partial certificate changes.
type UpdateCertificateInput struct {
	Status         *CertificateStatus `json:"status"`
	CertificateURL *string            `json:"certificate_url"`
	IssuedBy       *string            `json:"issued_by"`
	Notes          *string            `json:"notes"`
}

// UpdateCertificate applies a partial update. Callers are expected to be
// organizers or admins.
func (s *Service) UpdateCertificate(ctx context.Context, id string, upd UpdateCertificateInput) (*Certificate, error) {
	c, err := s.store.GetCertificate(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown certificate status %q", ErrInvalidInput, *upd.Status)
		}
		c.Status = *upd.Status
	}
	if upd.CertificateURL != nil {
		c.CertificateURL = *upd.CertificateURL
	}
	if upd.IssuedBy != nil {
		c.IssuedBy = *upd.IssuedBy
	}
	if upd.Notes != nil {
		c.Notes = *upd.Notes
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCertificate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCertificate removes a certificate. Callers are expected to be
// admins.
func (s *Service) DeleteCertificate(ctx context.Context, id string) error {
	return s.store.DeleteCertificate(ctx, id)
}

// DonorCertificates lists certificates of one donor for staff callers.
func (s *Service) DonorCertificates(ctx context.Context, donorID string) ([]*Certificate, error) {
	return s.store.CertificatesByDonor(ctx, donorID)
}

// ListCertificates returns certificates matching the filter, newest
// first.
func (s *Service) ListCertificates(ctx context.Context, filter CertificateFilter) ([]*Certificate, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown certificate status %q", ErrInvalidInput, filter.Status)
	}
	return s.store.ListCertificates(ctx, filter)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
