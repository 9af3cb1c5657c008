package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/ids"
)

// Service owns registration and profile CRUD for donors and organizers.
type Service struct {
	store    Store
	accounts auth.AccountStore
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

// NewService constructs the profile service.
func NewService(store Store, accounts auth.AccountStore, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("profile: store is required")
	}
	if accounts == nil {
		return nil, errors.New("profile: account store is required")
	}
	s := &Service{store: store, accounts: accounts, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterDonorInput carries everything needed to create a donor account
// and its profile.
type RegisterDonorInput struct {
	Email             string     `json:"email"`
	Password          string     `json:"password"`
	FullName          string     `json:"full_name"`
	Phone             string     `json:"phone"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	BloodType         BloodType  `json:"blood_type"`
	Address           string     `json:"address"`
	City              string     `json:"city"`
	State             string     `json:"state"`
	Pincode           string     `json:"pincode"`
	WeightKG          float64    `json:"weight"`
	MedicalConditions string     `json:"medical_conditions"`
	EmergencyContact  string     `json:"emergency_contact"`
}

// RegisterOrganizerInput carries everything needed to create an organizer
// account and its profile.
type RegisterOrganizerInput struct {
	Email              string `json:"email"`
	Password           string `json:"password"`
	OrganizationName   string `json:"organization_name"`
	ContactPerson      string `json:"contact_person"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	City               string `json:"city"`
	State              string `json:"state"`
	Pincode            string `json:"pincode"`
	RegistrationNumber string `json:"registration_number"`
	Website            string `json:"website"`
	Description        string `json:"description"`
}

// RegisterDonor creates a donor account plus profile atomically. The email
// must not exist under any role; the conflicting role is named in the
// error, matching the public API contract.
func (s *Service) RegisterDonor(ctx context.Context, in RegisterDonorInput) (*auth.Account, *Donor, error) {
	email := auth.NormalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, nil, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if !in.BloodType.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown blood type %q", ErrInvalidInput, in.BloodType)
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	acc := &auth.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleDonor,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	donor := &Donor{
		ID:                ids.New(),
		AccountID:         acc.ID,
		FullName:          strings.TrimSpace(in.FullName),
		Phone:             strings.TrimSpace(in.Phone),
		DateOfBirth:       in.DateOfBirth,
		BloodType:         in.BloodType,
		Address:           in.Address,
		City:              strings.TrimSpace(in.City),
		State:             strings.TrimSpace(in.State),
		Pincode:           strings.TrimSpace(in.Pincode),
		WeightKG:          in.WeightKG,
		MedicalConditions: in.MedicalConditions,
		EmergencyContact:  strings.TrimSpace(in.EmergencyContact),
	}
	if err := s.store.CreateDonorAccount(ctx, acc, donor); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, nil, fmt.Errorf("%w as %s", auth.ErrDuplicateEmail, auth.RoleDonor)
		}
		return nil, nil, err
	}
	return acc, donor, nil
}

// RegisterOrganizer creates an organizer account plus profile atomically.
func (s *Service) RegisterOrganizer(ctx context.Context, in RegisterOrganizerInput) (*auth.Account, *Organizer, error) {
	email := auth.NormalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(in.OrganizationName) == "" {
		return nil, nil, fmt.Errorf("%w: organization_name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ContactPerson) == "" {
		return nil, nil, fmt.Errorf("%w: contact_person is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, nil, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	acc := &auth.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleOrganizer,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	org := &Organizer{
		ID:                 ids.New(),
		AccountID:          acc.ID,
		OrganizationName:   strings.TrimSpace(in.OrganizationName),
		ContactPerson:      strings.TrimSpace(in.ContactPerson),
		Phone:              strings.TrimSpace(in.Phone),
		Address:            in.Address,
		City:               strings.TrimSpace(in.City),
		State:              strings.TrimSpace(in.State),
		Pincode:            strings.TrimSpace(in.Pincode),
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
		Website:            strings.TrimSpace(in.Website),
		Description:        in.Description,
	}
	if err := s.store.CreateOrganizerAccount(ctx, acc, org); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, nil, fmt.Errorf("%w as %s", auth.ErrDuplicateEmail, auth.RoleOrganizer)
		}
		return nil, nil, err
	}
	return acc, org, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	existing, err := s.accounts.FindAccountsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w as %s", auth.ErrDuplicateEmail, existing[0].Role)
	}
	return nil
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return nil
}

// DonorProfile returns the caller's donor profile view.
func (s *Service) DonorProfile(ctx context.Context, acc *auth.Account) (DonorView, error) {
	donor, err := s.store.DonorByAccount(ctx, acc.ID)
	if err != nil {
		return DonorView{}, err
	}
	return NewDonorView(donor, acc), nil
}

// OrganizerProfile returns the caller's organizer profile view.
func (s *Service) OrganizerProfile(ctx context.Context, acc *auth.Account) (OrganizerView, error) {
	org, err := s.store.OrganizerByAccount(ctx, acc.ID)
	if err != nil {
		return OrganizerView{}, err
	}
	return NewOrganizerView(org, acc), nil
}

// DonorUpdate carries partial donor profile changes; nil fields are left
// untouched.
type DonorUpdate struct {
	FullName          *string    `json:"full_name"`
	Phone             *string    `json:"phone"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	BloodType         *BloodType `json:"blood_type"`
	Address           *string    `json:"address"`
	City              *string    `json:"city"`
	State             *string    `json:"state"`
	Pincode           *string    `json:"pincode"`
	WeightKG          *float64   `json:"weight"`
	MedicalConditions *string    `json:"medical_conditions"`
	EmergencyContact  *string    `json:"emergency_contact"`
	ProfileImage      *string    `json:"profile_image"`
}

// UpdateDonorProfile applies a partial update to the caller's own profile.
func (s *Service) UpdateDonorProfile(ctx context.Context, acc *auth.Account, upd DonorUpdate) (DonorView, error) {
	donor, err := s.store.DonorByAccount(ctx, acc.ID)
	if err != nil {
		return DonorView{}, err
	}
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return DonorView{}, fmt.Errorf("%w: full_name cannot be blank", ErrInvalidInput)
		}
		donor.FullName = name
	}
	if upd.BloodType != nil {
		if !upd.BloodType.Valid() {
			return DonorView{}, fmt.Errorf("%w: unknown blood type %q", ErrInvalidInput, *upd.BloodType)
		}
		donor.BloodType = *upd.BloodType
	}
	if upd.Phone != nil {
		donor.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.DateOfBirth != nil {
		donor.DateOfBirth = upd.DateOfBirth
	}
	if upd.Address != nil {
		donor.Address = *upd.Address
	}
	if upd.City != nil {
		donor.City = strings.TrimSpace(*upd.City)
	}
	if upd.State != nil {
		donor.State = strings.TrimSpace(*upd.State)
	}
	if upd.Pincode != nil {
		donor.Pincode = strings.TrimSpace(*upd.Pincode)
	}
	if upd.WeightKG != nil {
		donor.WeightKG = *upd.WeightKG
	}
	if upd.MedicalConditions != nil {
		donor.MedicalConditions = *upd.MedicalConditions
	}
	if upd.EmergencyContact != nil {
		donor.EmergencyContact = strings.TrimSpace(*upd.EmergencyContact)
	}
	if upd.ProfileImage != nil {
		donor.ProfileImage = strings.TrimSpace(*upd.ProfileImage)
	}
	if err := s.store.UpdateDonor(ctx, donor); err != nil {
		return DonorView{}, err
	}
	return NewDonorView(donor, acc), nil
}

// OrganizerUpdate carries partial organizer profile changes.
type OrganizerUpdate struct {
	OrganizationName   *string `json:"organization_name"`
	ContactPerson      *string `json:"contact_person"`
	Phone              *string `json:"phone"`
	Address            *string `json:"address"`
	City               *string `json:"city"`
	State              *string `json:"state"`
	Pincode            *string `json:"pincode"`
	RegistrationNumber *string `json:"registration_number"`
	Website            *string `json:"website"`
	Description        *string `json:"description"`
}

// UpdateOrganizerProfile applies a partial update to the caller's own
// profile. The verified flag is not updatable through this path.
func (s *Service) UpdateOrganizerProfile(ctx context.Context, acc *auth.Account, upd OrganizerUpdate) (OrganizerView, error) {
	org, err := s.store.OrganizerByAccount(ctx, acc.ID)
	if err != nil {
		return OrganizerView{}, err
	}
	if upd.OrganizationName != nil {
		name := strings.TrimSpace(*upd.OrganizationName)
		if name == "" {
			return OrganizerView{}, fmt.Errorf("%w: organization_name cannot be blank", ErrInvalidInput)
		}
		org.OrganizationName = name
	}
	if upd.ContactPerson != nil {
		org.ContactPerson = strings.TrimSpace(*upd.ContactPerson)
	}
	if upd.Phone != nil {
		org.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Address != nil {
		org.Address = *upd.Address
	}
	if upd.City != nil {
		org.City = strings.TrimSpace(*upd.City)
	}
	if upd.State != nil {
		org.State = strings.TrimSpace(*upd.State)
	}
	if upd.Pincode != nil {
		org.Pincode = strings.TrimSpace(*upd.Pincode)
	}
	if upd.RegistrationNumber != nil {
		org.RegistrationNumber = strings.TrimSpace(*upd.RegistrationNumber)
	}
	if upd.Website != nil {
		org.Website = strings.TrimSpace(*upd.Website)
	}
	if upd.Description != nil {
		org.Description = *upd.Description
	}
	if err := s.store.UpdateOrganizer(ctx, org); err != nil {
		return OrganizerView{}, err
	}
	return NewOrganizerView(org, acc), nil
}

// GetDonorByID returns the public view of a donor profile.
func (s *Service) GetDonorByID(ctx context.Context, id string) (DonorView, error) {
	donor, err := s.store.GetDonor(ctx, id)
	if err != nil {
		return DonorView{}, err
	}
	acc, err := s.accounts.FindAccount(ctx, donor.AccountID)
	if err != nil {
		return DonorView{}, err
	}
	return NewDonorView(donor, acc), nil
}

// GetOrganizerByID returns the public view of an organizer profile.
func (s *Service) GetOrganizerByID(ctx context.Context, id string) (OrganizerView, error) {
	org, err := s.store.GetOrganizer(ctx, id)
	if err != nil {
		return OrganizerView{}, err
	}
	acc, err := s.accounts.FindAccount(ctx, org.AccountID)
	if err != nil {
		return OrganizerView{}, err
	}
	return NewOrganizerView(org, acc), nil
}

// ListDonors returns donor views matching the filter.
func (s *Service) ListDonors(ctx context.Context, filter DonorFilter) ([]DonorView, error) {
	donors, err := s.store.ListDonors(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]DonorView, 0, len(donors))
	for _, donor := range donors {
		acc, err := s.accounts.FindAccount(ctx, donor.AccountID)
		if err != nil {
			return nil, err
		}
		views = append(views, NewDonorView(donor, acc))
	}
	return views, nil
}

// ListOrganizers returns organizer views matching the filter.
func (s *Service) ListOrganizers(ctx context.Context, filter OrganizerFilter) ([]OrganizerView, error) {
	orgs, err := s.store.ListOrganizers(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]OrganizerView, 0, len(orgs))
	for _, org := range orgs {
		acc, err := s.accounts.FindAccount(ctx, org.AccountID)
		if err != nil {
			return nil, err
		}
		views = append(views, NewOrganizerView(org, acc))
	}
	return views, nil
}
