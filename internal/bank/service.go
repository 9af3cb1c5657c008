package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"redconnect.org/internal/ids"
	"redconnect.org/internal/profile"
)

// Service owns blood bank directory and inventory operations.
type Service struct {
	store Store
	now   func() time.Time
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

// NewService constructs the bank service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("bank: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput carries the fields of a new blood bank.
type CreateInput struct {
	Name                string   `json:"name"`
	Address             string   `json:"address"`
	Phone               string   `json:"phone"`
	Email               string   `json:"email"`
	Category            Category `json:"category"`
	City                string   `json:"city"`
	State               string   `json:"state"`
	Pincode             string   `json:"pincode"`
	AvailableBloodTypes string   `json:"available_blood_types"`
	OperatingHours      string   `json:"operating_hours"`
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
}

// Create registers a new blood bank.
func (s *Service) Create(ctx context.Context, in CreateInput) (*BloodBank, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Address) == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.State) == "" {
		return nil, fmt.Errorf("%w: city and state are required", ErrInvalidInput)
	}
	now := s.now().UTC()
	b := &BloodBank{
		ID:                  ids.New(),
		Name:                strings.TrimSpace(in.Name),
		Address:             in.Address,
		Phone:               strings.TrimSpace(in.Phone),
		Email:               strings.TrimSpace(in.Email),
		Category:            in.Category,
		City:                strings.TrimSpace(in.City),
		State:               strings.TrimSpace(in.State),
		Pincode:             strings.TrimSpace(in.Pincode),
		AvailableBloodTypes: in.AvailableBloodTypes,
		OperatingHours:      in.OperatingHours,
		Latitude:            in.Latitude,
		Longitude:           in.Longitude,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.store.CreateBank(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns one blood bank by id.
func (s *Service) Get(ctx context.Context, id string) (*BloodBank, error) {
	return s.store.GetBank(ctx, id)
}

// List returns banks matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*BloodBank, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, filter.Category)
	}
	return s.store.ListBanks(ctx, filter)
}

// UpdateInput carries partial bank changes; nil fields are left untouched.
type UpdateInput struct {
	Name                *string   `json:"name"`
	Address             *string   `json:"address"`
	Phone               *string   `json:"phone"`
	Email               *string   `json:"email"`
	Category            *Category `json:"category"`
	City                *string   `json:"city"`
	State               *string   `json:"state"`
	Pincode             *string   `json:"pincode"`
	AvailableBloodTypes *string   `json:"available_blood_types"`
	OperatingHours      *string   `json:"operating_hours"`
	Latitude            *float64  `json:"latitude"`
	Longitude           *float64  `json:"longitude"`
}

// Update applies a partial update to a blood bank.
func (s *Service) Update(ctx context.Context, id string, upd UpdateInput) (*BloodBank, error) {
	b, err := s.store.GetBank(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be blank", ErrInvalidInput)
		}
		b.Name = name
	}
	if upd.Category != nil {
		if !upd.Category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *upd.Category)
		}
		b.Category = *upd.Category
	}
	if upd.Address != nil {
		b.Address = *upd.Address
	}
	if upd.Phone != nil {
		b.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Email != nil {
		b.Email = strings.TrimSpace(*upd.Email)
	}
	if upd.City != nil {
		b.City = strings.TrimSpace(*upd.City)
	}
	if upd.State != nil {
		b.State = strings.TrimSpace(*upd.State)
	}
	if upd.Pincode != nil {
		b.Pincode = strings.TrimSpace(*upd.Pincode)
	}
	if upd.AvailableBloodTypes != nil {
		b.AvailableBloodTypes = *upd.AvailableBloodTypes
	}
	if upd.OperatingHours != nil {
		b.OperatingHours = *upd.OperatingHours
	}
	if upd.Latitude != nil {
		b.Latitude = upd.Latitude
	}
	if upd.Longitude != nil {
		b.Longitude = upd.Longitude
	}
	b.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateBank(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a blood bank.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteBank(ctx, id)
}

// InventoryInput creates or replaces the unit count for one blood type at
// one bank.
type InventoryInput struct {
	BloodBankID    string            `json:"blood_bank_id"`
	BloodType      profile.BloodType `json:"blood_type"`
	UnitsAvailable int               `json:"units_available"`
}

// PutInventory creates the inventory row, or replaces the unit count if a
// row for the same bank and blood type already exists.
func (s *Service) PutInventory(ctx context.Context, in InventoryInput) (*Inventory, error) {
	if !in.BloodType.Valid() {
		return nil, fmt.Errorf("%w: unknown blood type %q", ErrInvalidInput, in.BloodType)
	}
	if in.UnitsAvailable < 0 {
		return nil, fmt.Errorf("%w: units_available cannot be negative", ErrInvalidInput)
	}
	if _, err := s.store.GetBank(ctx, in.BloodBankID); err != nil {
		return nil, err
	}
	inv := &Inventory{
		ID:             ids.New(),
		BloodBankID:    in.BloodBankID,
		BloodType:      in.BloodType,
		UnitsAvailable: in.UnitsAvailable,
		LastUpdated:    s.now().UTC(),
	}
	if err := s.store.UpsertInventory(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// BankInventory returns all inventory rows for one bank.
func (s *Service) BankInventory(ctx context.Context, bankID string) ([]*Inventory, error) {
	if _, err := s.store.GetBank(ctx, bankID); err != nil {
		return nil, err
	}
	return s.store.BankInventory(ctx, bankID)
}

// SetInventoryUnits replaces the unit count of an existing inventory row.
func (s *Service) SetInventoryUnits(ctx context.Context, inventoryID string, units int) (*Inventory, error) {
	if units < 0 {
		return nil, fmt.Errorf("%w: units_available cannot be negative", ErrInvalidInput)
	}
	return s.store.UpdateInventoryUnits(ctx, inventoryID, units, s.now().UTC())
}

// States returns the distinct states with at least one bank.
func (s *Service) States(ctx context.Context) ([]string, error) {
	return s.store.ListStates(ctx)
}

// Cities returns the distinct cities of one state.
func (s *Service) Cities(ctx context.Context, state string) ([]string, error) {
	if strings.TrimSpace(state) == "" {
		return nil, fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	return s.store.ListCities(ctx, state)
}
