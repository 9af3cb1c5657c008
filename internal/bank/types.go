package bank

import (
	"context"
	"errors"
	"time"

	"redconnect.org/internal/profile"
)

var (
	// ErrNotFound is returned when a blood bank or inventory row does
	// not exist.
	ErrNotFound = errors.New("bank: not found")
	// ErrInvalidInput is returned for malformed bank or inventory data.
	ErrInvalidInput = errors.New("bank: invalid input")
)

// Category classifies who runs a blood bank.
type Category string

const (
	CategoryGovernment Category = "Government"
	CategoryPrivate    Category = "Private"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGovernment, CategoryPrivate:
		return true
	}
	return false
}

// BloodBank is a physical blood bank location.
type BloodBank struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Address             string    `json:"address"`
	Phone               string    `json:"phone"`
	Email               string    `json:"email,omitempty"`
	Category            Category  `json:"category"`
	City                string    `json:"city"`
	State               string    `json:"state"`
	Pincode             string    `json:"pincode,omitempty"`
	AvailableBloodTypes string    `json:"available_blood_types,omitempty"`
	OperatingHours      string    `json:"operating_hours,omitempty"`
	Latitude            *float64  `json:"latitude,omitempty"`
	Longitude           *float64  `json:"longitude,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Inventory tracks available units of one blood type at one bank.
type Inventory struct {
	ID             string            `json:"id"`
	BloodBankID    string            `json:"blood_bank_id"`
	BloodType      profile.BloodType `json:"blood_type"`
	UnitsAvailable int               `json:"units_available"`
	LastUpdated    time.Time         `json:"last_updated"`
}

// Filter narrows bank listings. Zero-value fields are ignored.
type Filter struct {
	State     string
	City      string
	Category  Category
	BloodType profile.BloodType
	Skip      int
	Limit     int
}

// Store is the persistence contract for blood banks and their inventory.
type Store interface {
	CreateBank(ctx context.Context, b *BloodBank) error
	GetBank(ctx context.Context, id string) (*BloodBank, error)
	ListBanks(ctx context.Context, filter Filter) ([]*BloodBank, error)
	UpdateBank(ctx context.Context, b *BloodBank) error
	DeleteBank(ctx context.Context, id string) error

	// UpsertInventory inserts the row, or replaces units_available when a
	// row for the same bank and blood type already exists.
	UpsertInventory(ctx context.Context, inv *Inventory) error
	GetInventory(ctx context.Context, id string) (*Inventory, error)
	BankInventory(ctx context.Context, bankID string) ([]*Inventory, error)
	UpdateInventoryUnits(ctx context.Context, id string, units int, at time.Time) (*Inventory, error)

	ListStates(ctx context.Context) ([]string, error)
	ListCities(ctx context.Context, state string) ([]string, error)
}
