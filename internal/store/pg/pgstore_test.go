package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/drive"
	"redconnect.org/internal/profile"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestFindAccountByEmailRole(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "active", "created_at", "updated_at"}).
		AddRow("acct-1", "asha@example.com", "hash", "donor", true, now, now)
	mock.ExpectQuery("select (.+) from accounts where email = \\$1 and role = \\$2").
		WithArgs("asha@example.com", auth.RoleDonor).
		WillReturnRows(rows)

	acc, err := store.FindAccountByEmailRole(context.Background(), "Asha@Example.com", auth.RoleDonor)
	if err != nil {
		t.Fatalf("FindAccountByEmailRole: %v", err)
	}
	if acc.ID != "acct-1" || acc.Role != auth.RoleDonor {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindAccountNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select (.+) from accounts where id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "active", "created_at", "updated_at"}))

	_, err := store.FindAccount(context.Background(), "missing")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateDonorAccountTransactional(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("insert into accounts").
		WithArgs("acct-1", "asha@example.com", "hash", auth.RoleDonor, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into donors").
		WithArgs("donor-1", "acct-1", "Asha Rao", "9876543210", sqlmock.AnyArg(), profile.BloodOPositive,
			"", "Pune", "Maharashtra", "", sqlmock.AnyArg(), 0, 0.0, "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acc := &auth.Account{
		ID: "acct-1", Email: "asha@example.com", PasswordHash: "hash",
		Role: auth.RoleDonor, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	donor := &profile.Donor{
		ID: "donor-1", AccountID: "acct-1", FullName: "Asha Rao", Phone: "9876543210",
		BloodType: profile.BloodOPositive, City: "Pune", State: "Maharashtra",
	}
	if err := store.CreateDonorAccount(context.Background(), acc, donor); err != nil {
		t.Fatalf("CreateDonorAccount: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateDonorAccountRollsBackOnProfileFailure(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("insert into accounts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into donors").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg()).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	acc := &auth.Account{ID: "acct-1", Email: "asha@example.com", Role: auth.RoleDonor, Active: true, CreatedAt: now, UpdatedAt: now}
	donor := &profile.Donor{ID: "donor-1", AccountID: "acct-1", FullName: "Asha Rao", BloodType: profile.BloodOPositive}
	if err := store.CreateDonorAccount(context.Background(), acc, donor); err == nil {
		t.Fatal("expected error from profile insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRegisterParticipantFullEvent(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Conditional update misses, then the existence probe finds the row:
	// the event is full rather than missing.
	mock.ExpectQuery("update events").
		WithArgs("evt-1", now).
		WillReturnRows(sqlmock.NewRows(nil))
	eventRows := sqlmock.NewRows([]string{"id", "organizer_id", "title", "description", "event_date",
		"start_time", "end_time", "venue", "city", "state", "max_participants", "registered_participants",
		"status", "banner_image", "created_at", "updated_at"}).
		AddRow("evt-1", "org-1", "Camp", "", now, "", "", "Hall", "Pune", "MH", 1, 1, "upcoming", "", now, now)
	mock.ExpectQuery("select (.+) from events where id = \\$1").
		WithArgs("evt-1").
		WillReturnRows(eventRows)

	_, err := store.RegisterParticipant(context.Background(), "evt-1", now)
	if !errors.Is(err, drive.ErrEventFull) {
		t.Fatalf("err = %v, want ErrEventFull", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAdjustDonorDonationCount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update donors").
		WithArgs("donor-1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := store.AdjustDonorDonationCount(context.Background(), "donor-1", 1, &last); err != nil {
		t.Fatalf("AdjustDonorDonationCount: %v", err)
	}

	mock.ExpectExec("update donors").
		WithArgs("missing", -1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.AdjustDonorDonationCount(context.Background(), "missing", -1, nil); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("missing donor: err = %v, want ErrNotFound", err)
	}
}

func TestListDonationsFilterBuildsQuery(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "donor_id", "event_id", "donation_date", "blood_type", "units",
		"status", "notes", "certificate_url", "created_at", "updated_at"}).
		AddRow("don-1", "donor-1", nil, now, "O+", 1.0, "completed", "", "", now, now)
	mock.ExpectQuery("select (.+) from donations where 1=1 and status = \\$1 (.+) limit \\$2 offset \\$3").
		WithArgs(drive.DonationCompleted, 10, 5).
		WillReturnRows(rows)

	out, err := store.ListDonations(context.Background(), drive.DonationFilter{
		Status: drive.DonationCompleted,
		Skip:   5,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("ListDonations: %v", err)
	}
	if len(out) != 1 || out[0].EventID != "" {
		t.Fatalf("unexpected donations: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
