package profile_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/profile"
	"redconnect.org/internal/store/memory"
)

func newTestService(t *testing.T) (*profile.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc, err := profile.NewService(store, store, profile.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func donorInput(email string) profile.RegisterDonorInput {
	return profile.RegisterDonorInput{
		Email:     email,
		Password:  "s3cret-pass",
		FullName:  "Asha Rao",
		Phone:     "9876543210",
		BloodType: profile.BloodOPositive,
		City:      "Pune",
		State:     "Maharashtra",
	}
}

func organizerInput(email string) profile.RegisterOrganizerInput {
	return profile.RegisterOrganizerInput{
		Email:            email,
		Password:         "s3cret-pass",
		OrganizationName: "Red Cross Pune",
		ContactPerson:    "Vikram Shah",
		Phone:            "020-555-0101",
		City:             "Pune",
		State:            "Maharashtra",
	}
}

func TestRegisterDonor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	acc, donor, err := svc.RegisterDonor(ctx, donorInput("Asha@Example.com"))
	if err != nil {
		t.Fatalf("RegisterDonor: %v", err)
	}
	if acc.Email != "asha@example.com" {
		t.Fatalf("email not normalized: %q", acc.Email)
	}
	if acc.Role != auth.RoleDonor {
		t.Fatalf("role = %q, want donor", acc.Role)
	}
	if !acc.Active {
		t.Fatal("new account should be active")
	}
	if err := auth.VerifyPassword(acc.PasswordHash, "s3cret-pass"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
	if donor.AccountID != acc.ID {
		t.Fatalf("donor.AccountID = %q, want %q", donor.AccountID, acc.ID)
	}
	if donor.TotalDonations != 0 {
		t.Fatalf("fresh donor TotalDonations = %d", donor.TotalDonations)
	}
}

func TestRegisterDonorValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := donorInput("asha@example.com")
	in.BloodType = "X+"
	if _, _, err := svc.RegisterDonor(ctx, in); !errors.Is(err, profile.ErrInvalidInput) {
		t.Fatalf("bad blood type: err = %v, want ErrInvalidInput", err)
	}

	in = donorInput("not-an-email")
	if _, _, err := svc.RegisterDonor(ctx, in); !errors.Is(err, profile.ErrInvalidInput) {
		t.Fatalf("bad email: err = %v, want ErrInvalidInput", err)
	}

	in = donorInput("asha@example.com")
	in.FullName = "   "
	if _, _, err := svc.RegisterDonor(ctx, in); !errors.Is(err, profile.ErrInvalidInput) {
		t.Fatalf("blank name: err = %v, want ErrInvalidInput", err)
	}
}

func TestDuplicateEmailNamesExistingRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterDonor(ctx, donorInput("shared@example.com")); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	_, _, err := svc.RegisterOrganizer(ctx, organizerInput("shared@example.com"))
	if !errors.Is(err, auth.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
	if !strings.Contains(err.Error(), "as donor") {
		t.Fatalf("error should name the existing role, got %q", err)
	}

	// Same role also conflicts; one account per email.
	_, _, err = svc.RegisterDonor(ctx, donorInput("shared@example.com"))
	if !errors.Is(err, auth.ErrDuplicateEmail) {
		t.Fatalf("same-role duplicate: err = %v, want ErrDuplicateEmail", err)
	}
}

func TestUpdateDonorProfilePartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	acc, _, err := svc.RegisterDonor(ctx, donorInput("asha@example.com"))
	if err != nil {
		t.Fatalf("RegisterDonor: %v", err)
	}

	phone := "9000000000"
	view, err := svc.UpdateDonorProfile(ctx, acc, profile.DonorUpdate{Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateDonorProfile: %v", err)
	}
	if view.Phone != phone {
		t.Fatalf("phone = %q, want %q", view.Phone, phone)
	}
	if view.FullName != "Asha Rao" {
		t.Fatalf("untouched field changed: full name = %q", view.FullName)
	}

	blank := "  "
	if _, err := svc.UpdateDonorProfile(ctx, acc, profile.DonorUpdate{FullName: &blank}); !errors.Is(err, profile.ErrInvalidInput) {
		t.Fatalf("blank name update: err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateOrganizerCannotSelfVerify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	acc, _, err := svc.RegisterOrganizer(ctx, organizerInput("org@example.com"))
	if err != nil {
		t.Fatalf("RegisterOrganizer: %v", err)
	}

	site := "https://redcrosspune.example"
	view, err := svc.UpdateOrganizerProfile(ctx, acc, profile.OrganizerUpdate{Website: &site})
	if err != nil {
		t.Fatalf("UpdateOrganizerProfile: %v", err)
	}
	if view.Website != site {
		t.Fatalf("website = %q, want %q", view.Website, site)
	}
	if view.Verified {
		t.Fatal("organizer must not become verified through profile update")
	}
}

func TestListDonorsFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := donorInput("a@example.com")
	a.BloodType = profile.BloodOPositive
	b := donorInput("b@example.com")
	b.BloodType = profile.BloodABNegative
	for _, in := range []profile.RegisterDonorInput{a, b} {
		if _, _, err := svc.RegisterDonor(ctx, in); err != nil {
			t.Fatalf("RegisterDonor(%s): %v", in.Email, err)
		}
	}

	views, err := svc.ListDonors(ctx, profile.DonorFilter{BloodType: profile.BloodABNegative})
	if err != nil {
		t.Fatalf("ListDonors: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d donors, want 1", len(views))
	}
	if views[0].Email != "b@example.com" {
		t.Fatalf("wrong donor: %q", views[0].Email)
	}
}

func TestGetDonorByID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, donor, err := svc.RegisterDonor(ctx, donorInput("asha@example.com"))
	if err != nil {
		t.Fatalf("RegisterDonor: %v", err)
	}

	view, err := svc.GetDonorByID(ctx, donor.ID)
	if err != nil {
		t.Fatalf("GetDonorByID: %v", err)
	}
	if view.Email != "asha@example.com" {
		t.Fatalf("view email = %q", view.Email)
	}

	if _, err := svc.GetDonorByID(ctx, "missing"); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("missing donor: err = %v, want ErrNotFound", err)
	}
}
