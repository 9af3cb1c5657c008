package profile

import (
	"time"

	"redconnect.org/internal/auth"
)

// DonorView is the donor profile enriched with the owning account's email
// and creation time. Building it through an explicit constructor keeps
// account fields from leaking into profile payloads by accident.
type DonorView struct {
	Donor
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// OrganizerView mirrors DonorView for organizer profiles.
type OrganizerView struct {
	Organizer
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDonorView assembles the response payload from the two source records.
func NewDonorView(d *Donor, acc *auth.Account) DonorView {
	return DonorView{
		Donor:     *d,
		Email:     acc.Email,
		CreatedAt: acc.CreatedAt,
	}
}

// NewOrganizerView assembles the response payload from the two source
// records.
func NewOrganizerView(o *Organizer, acc *auth.Account) OrganizerView {
	return OrganizerView{
		Organizer: *o,
		Email:     acc.Email,
		CreatedAt: acc.CreatedAt,
	}
}
