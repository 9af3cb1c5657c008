package profile

import (
	"context"
	"errors"
	"time"

	"redconnect.org/internal/auth"
)

var (
	ErrNotFound     = errors.New("profile: not found")
	ErrConflict     = errors.New("profile: already exists")
	ErrInvalidInput = errors.New("profile: invalid input")
)

// BloodType is one of the eight ABO/Rh groups.
type BloodType string

const (
	BloodAPositive  BloodType = "A+"
	BloodANegative  BloodType = "A-"
	BloodBPositive  BloodType = "B+"
	BloodBNegative  BloodType = "B-"
	BloodABPositive BloodType = "AB+"
	BloodABNegative BloodType = "AB-"
	BloodOPositive  BloodType = "O+"
	BloodONegative  BloodType = "O-"
)

// Valid reports whether the blood type is a known group.
func (b BloodType) Valid() bool {
	switch b {
	case BloodAPositive, BloodANegative, BloodBPositive, BloodBNegative,
		BloodABPositive, BloodABNegative, BloodOPositive, BloodONegative:
		return true
	}
	return false
}

// Donor is the role-specific profile attached 1:1 to a donor account.
type Donor struct {
	ID                string     `json:"id"`
	AccountID         string     `json:"account_id"`
	FullName          string     `json:"full_name"`
	Phone             string     `json:"phone,omitempty"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	BloodType         BloodType  `json:"blood_type"`
	Address           string     `json:"address,omitempty"`
	City              string     `json:"city,omitempty"`
	State             string     `json:"state,omitempty"`
	Pincode           string     `json:"pincode,omitempty"`
	LastDonationDate  *time.Time `json:"last_donation_date,omitempty"`
	TotalDonations    int        `json:"total_donations"`
	WeightKG          float64    `json:"weight,omitempty"`
	MedicalConditions string     `json:"medical_conditions,omitempty"`
	EmergencyContact  string     `json:"emergency_contact,omitempty"`
	ProfileImage      string     `json:"profile_image,omitempty"`
}

// Organizer is the role-specific profile attached 1:1 to an organizer
// account.
type Organizer struct {
	ID                 string `json:"id"`
	AccountID          string `json:"account_id"`
	OrganizationName   string `json:"organization_name"`
	ContactPerson      string `json:"contact_person"`
	Phone              string `json:"phone"`
	Address            string `json:"address,omitempty"`
	City               string `json:"city,omitempty"`
	State              string `json:"state,omitempty"`
	Pincode            string `json:"pincode,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	Website            string `json:"website,omitempty"`
	Description        string `json:"description,omitempty"`
	Verified           bool   `json:"verified"`
}

// DonorFilter narrows donor listings.
type DonorFilter struct {
	BloodType BloodType
	City      string
	State     string
	Skip      int
	Limit     int
}

// OrganizerFilter narrows organizer listings.
type OrganizerFilter struct {
	Verified *bool
	City     string
	State    string
	Skip     int
	Limit    int
}

// Store persists profiles. The two Create methods write the account row
// and the profile row in a single transaction so a failed profile insert
// never leaves a loginable account behind.
type Store interface {
	CreateDonorAccount(ctx context.Context, acc *auth.Account, d *Donor) error
	CreateOrganizerAccount(ctx context.Context, acc *auth.Account, o *Organizer) error

	DonorByAccount(ctx context.Context, accountID string) (*Donor, error)
	OrganizerByAccount(ctx context.Context, accountID string) (*Organizer, error)
	GetDonor(ctx context.Context, id string) (*Donor, error)
	GetOrganizer(ctx context.Context, id string) (*Organizer, error)
	ListDonors(ctx context.Context, filter DonorFilter) ([]*Donor, error)
	ListOrganizers(ctx context.Context, filter OrganizerFilter) ([]*Organizer, error)
	UpdateDonor(ctx context.Context, d *Donor) error
	UpdateOrganizer(ctx context.Context, o *Organizer) error

	// AdjustDonorDonationCount shifts the denormalized donation counter,
	// flooring at zero, and optionally records the latest donation date.
	AdjustDonorDonationCount(ctx context.Context, donorID string, delta int, lastDonation *time.Time) error
}
