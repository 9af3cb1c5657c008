package drive

import (
	"context"
	"errors"
	"time"

	"redconnect.org/internal/profile"
)

var (
	// ErrNotFound is returned when an event, donation, or certificate
	// does not exist.
	ErrNotFound = errors.New("drive: not found")
	// ErrInvalidInput is returned for malformed input.
	ErrInvalidInput = errors.New("drive: invalid input")
	// ErrEventFull is returned when registration would exceed an event's
	// participant cap.
	ErrEventFull = errors.New("drive: event is full")
	// ErrInvalidTransition is returned when a donation status change is
	// not allowed from its current status.
	ErrInvalidTransition = errors.New("drive: invalid status transition")
	// ErrCertificateExists is returned when a donation already has a
	// certificate.
	ErrCertificateExists = errors.New("drive: certificate already exists for this donation")
)

// EventStatus is the lifecycle state of a donation camp.
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventUpcoming, EventOngoing, EventCompleted, EventCancelled:
		return true
	}
	return false
}

// DonationStatus is the lifecycle state of a donation record.
type DonationStatus string

const (
	DonationScheduled DonationStatus = "scheduled"
	DonationCompleted DonationStatus = "completed"
	DonationCancelled DonationStatus = "cancelled"
)

// Valid reports whether s is a known donation status.
func (s DonationStatus) Valid() bool {
	switch s {
	case DonationScheduled, DonationCompleted, DonationCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a donation may move from s to next.
// Scheduled donations can complete or cancel; completed and cancelled
// are terminal.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	if s == next {
		return true
	}
	return s == DonationScheduled && (next == DonationCompleted || next == DonationCancelled)
}

// CertificateStatus is the lifecycle state of a donation certificate.
type CertificateStatus string

const (
	CertificatePending CertificateStatus = "pending"
	CertificateIssued  CertificateStatus = "issued"
	CertificateRevoked CertificateStatus = "revoked"
)

// Valid reports whether s is a known certificate status.
func (s CertificateStatus) Valid() bool {
	switch s {
	case CertificatePending, CertificateIssued, CertificateRevoked:
		return true
	}
	return false
}

// Event is a blood donation camp run by an organizer.
type Event struct {
	ID                     string      `json:"id"`
	OrganizerID            string      `json:"organizer_id"`
	Title                  string      `json:"title"`
	Description            string      `json:"description,omitempty"`
	EventDate              time.Time   `json:"event_date"`
	StartTime              string      `json:"start_time,omitempty"`
	EndTime                string      `json:"end_time,omitempty"`
	Venue                  string      `json:"venue"`
	City                   string      `json:"city"`
	State                  string      `json:"state"`
	MaxParticipants        int         `json:"max_participants,omitempty"`
	RegisteredParticipants int         `json:"registered_participants"`
	Status                 EventStatus `json:"status"`
	BannerImage            string      `json:"banner_image,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// Donation is a single donation record, optionally tied to an event.
type Donation struct {
	ID             string            `json:"id"`
	DonorID        string            `json:"donor_id"`
	EventID        string            `json:"event_id,omitempty"`
	DonationDate   time.Time         `json:"donation_date"`
	BloodType      profile.BloodType `json:"blood_type"`
	Units          float64           `json:"units"`
	Status         DonationStatus    `json:"status"`
	Notes          string            `json:"notes,omitempty"`
	CertificateURL string            `json:"certificate_url,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Certificate attests a completed donation. At most one exists per
// donation.
type Certificate struct {
	ID                string            `json:"id"`
	DonationID        string            `json:"donation_id"`
	DonorID           string            `json:"donor_id"`
	CertificateNumber string            `json:"certificate_number"`
	IssueDate         time.Time         `json:"issue_date"`
	BloodUnits        float64           `json:"blood_units"`
	BloodType         profile.BloodType `json:"blood_type"`
	Status            CertificateStatus `json:"status"`
	CertificateURL    string            `json:"certificate_url,omitempty"`
	IssuedBy          string            `json:"issued_by,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// EventFilter narrows event listings. Zero-value fields are ignored.
type EventFilter struct {
	Status   EventStatus
	City     string
	State    string
	FromDate *time.Time
	ToDate   *time.Time
	Skip     int
	Limit    int
}

// DonationFilter narrows donation listings.
type DonationFilter struct {
	Status   DonationStatus
	FromDate *time.Time
	ToDate   *time.Time
	Skip     int
	Limit    int
}

// CertificateFilter narrows certificate listings.
type CertificateFilter struct {
	Status CertificateStatus
	Skip   int
	Limit  int
}

// EventStats summarizes the event table.
type EventStats struct {
	TotalEvents       int `json:"total_events"`
	UpcomingEvents    int `json:"upcoming_events"`
	CompletedEvents   int `json:"completed_events"`
	OngoingEvents     int `json:"ongoing_events"`
	TotalParticipants int `json:"total_participants"`
}

// DonationStats summarizes the donation table.
type DonationStats struct {
	TotalDonations      int     `json:"total_donations"`
	CompletedDonations  int     `json:"completed_donations"`
	ScheduledDonations  int     `json:"scheduled_donations"`
	TotalUnitsCollected float64 `json:"total_units_collected"`
}

// Store is the persistence contract for events, donations, and
// certificates.
type Store interface {
	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
	EventsByOrganizer(ctx context.Context, organizerID string) ([]*Event, error)
	UpdateEvent(ctx context.Context, e *Event) error
	DeleteEvent(ctx context.Context, id string) error
	// RegisterParticipant atomically bumps the participant counter,
	// failing with ErrEventFull at the cap.
	RegisterParticipant(ctx context.Context, eventID string, at time.Time) (*Event, error)
	EventStats(ctx context.Context, today time.Time) (EventStats, error)

	CreateDonation(ctx context.Context, d *Donation) error
	GetDonation(ctx context.Context, id string) (*Donation, error)
	DonationsByDonor(ctx context.Context, donorID string) ([]*Donation, error)
	ListDonations(ctx context.Context, filter DonationFilter) ([]*Donation, error)
	UpdateDonation(ctx context.Context, d *Donation) error
	DeleteDonation(ctx context.Context, id string) error
	DonationStats(ctx context.Context) (DonationStats, error)

	CreateCertificate(ctx context.Context, c *Certificate) error
	GetCertificate(ctx context.Context, id string) (*Certificate, error)
	CertificateByDonation(ctx context.Context, donationID string) (*Certificate, error)
	CertificatesByDonor(ctx context.Context, donorID string) ([]*Certificate, error)
	ListCertificates(ctx context.Context, filter CertificateFilter) ([]*Certificate, error)
	UpdateCertificate(ctx context.Context, c *Certificate) error
	DeleteCertificate(ctx context.Context, id string) error
}
