package pg

import (
	"context"
	"database/sql"
	"errors"

	"time"

	"redconnect.org/internal/auth"
	"redconnect.org/internal/profile"
)

var _ profile.Store = (*Store)(nil)

const donorColumns = `id, account_id, full_name, phone, date_of_birth, blood_type, address, city, state, pincode,
	last_donation_date, total_donations, weight, medical_conditions, emergency_contact, profile_image`

func scanDonor(row interface{ Scan(...any) error }) (*profile.Donor, error) {
	var (
		d    profile.Donor
		dob  sql.NullTime
		last sql.NullTime
	)
	err := row.Scan(&d.ID, &d.AccountID, &d.FullName, &d.Phone, &dob, &d.BloodType, &d.Address, &d.City,
		&d.State, &d.Pincode, &last, &d.TotalDonations, &d.WeightKG, &d.MedicalConditions,
		&d.EmergencyContact, &d.ProfileImage)
	if err != nil {
		return nil, err
	}
	d.DateOfBirth = timePtr(dob)
	d.LastDonationDate = timePtr(last)
	return &d, nil
}

const organizerColumns = `id, account_id, organization_name, contact_person, phone, address, city, state, pincode,
	registration_number, website, description, verified`

func scanOrganizer(row interface{ Scan(...any) error }) (*profile.Organizer, error) {
	var o profile.Organizer
	err := row.Scan(&o.ID, &o.AccountID, &o.OrganizationName, &o.ContactPerson, &o.Phone, &o.Address,
		&o.City, &o.State, &o.Pincode, &o.RegistrationNumber, &o.Website, &o.Description, &o.Verified)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) insertAccountTx(ctx context.Context, tx *sql.Tx, acc *auth.Account) error {
	_, err := tx.ExecContext(ctx, `
		insert into accounts (id, email, password_hash, role, active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, acc.ID, acc.Email, acc.PasswordHash, acc.Role, acc.Active, acc.CreatedAt, acc.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return profile.ErrConflict
	}
	return err
}

func (s *Store) CreateDonorAccount(ctx context.Context, acc *auth.Account, d *profile.Donor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertAccountTx(ctx, tx, acc); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into donors (id, account_id, full_name, phone, date_of_birth, blood_type, address, city, state,
			pincode, last_donation_date, total_donations, weight, medical_conditions, emergency_contact, profile_image)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, d.ID, d.AccountID, d.FullName, d.Phone, nullTime(d.DateOfBirth), d.BloodType, d.Address, d.City,
		d.State, d.Pincode, nullTime(d.LastDonationDate), d.TotalDonations, d.WeightKG,
		d.MedicalConditions, d.EmergencyContact, d.ProfileImage); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) CreateOrganizerAccount(ctx context.Context, acc *auth.Account, o *profile.Organizer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertAccountTx(ctx, tx, acc); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into organizers (id, account_id, organization_name, contact_person, phone, address, city, state,
			pincode, registration_number, website, description, verified)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, o.ID, o.AccountID, o.OrganizationName, o.ContactPerson, o.Phone, o.Address, o.City, o.State,
		o.Pincode, o.RegistrationNumber, o.Website, o.Description, o.Verified); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DonorByAccount(ctx context.Context, accountID string) (*profile.Donor, error) {
	row := s.db.QueryRowContext(ctx, `select `+donorColumns+` from donors where account_id = $1`, accountID)
	d, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) OrganizerByAccount(ctx context.Context, accountID string) (*profile.Organizer, error) {
	row := s.db.QueryRowContext(ctx, `select `+organizerColumns+` from organizers where account_id = $1`, accountID)
	o, err := scanOrganizer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) GetDonor(ctx context.Context, id string) (*profile.Donor, error) {
	row := s.db.QueryRowContext(ctx, `select `+donorColumns+` from donors where id = $1`, id)
	d, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) GetOrganizer(ctx context.Context, id string) (*profile.Organizer, error) {
	row := s.db.QueryRowContext(ctx, `select `+organizerColumns+` from organizers where id = $1`, id)
	o, err := scanOrganizer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) ListDonors(ctx context.Context, filter profile.DonorFilter) ([]*profile.Donor, error) {
	query := `select ` + donorColumns + ` from donors where 1=1`
	var args []any
	if filter.BloodType != "" {
		args = append(args, filter.BloodType)
		query += ` and blood_type = ` + placeholder(len(args))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		query += ` and lower(city) = lower(` + placeholder(len(args)) + `)`
	}
	if filter.State != "" {
		args = append(args, filter.State)
		query += ` and lower(state) = lower(` + placeholder(len(args)) + `)`
	}
	query += ` order by id`
	query, args = withWindow(query, args, filter.Skip, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*profile.Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListOrganizers(ctx context.Context, filter profile.OrganizerFilter) ([]*profile.Organizer, error) {
	query := `select ` + organizerColumns + ` from organizers where 1=1`
	var args []any
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		query += ` and verified = ` + placeholder(len(args))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		query += ` and lower(city) = lower(` + placeholder(len(args)) + `)`
	}
	if filter.State != "" {
		args = append(args, filter.State)
		query += ` and lower(state) = lower(` + placeholder(len(args)) + `)`
	}
	query += ` order by id`
	query, args = withWindow(query, args, filter.Skip, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*profile.Organizer
	for rows.Next() {
		o, err := scanOrganizer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDonor(ctx context.Context, d *profile.Donor) error {
	res, err := s.db.ExecContext(ctx, `
		update donors
		set full_name = $2, phone = $3, date_of_birth = $4, blood_type = $5, address = $6, city = $7,
			state = $8, pincode = $9, weight = $10, medical_conditions = $11, emergency_contact = $12,
			profile_image = $13
		where id = $1
	`, d.ID, d.FullName, d.Phone, nullTime(d.DateOfBirth), d.BloodType, d.Address, d.City, d.State,
		d.Pincode, d.WeightKG, d.MedicalConditions, d.EmergencyContact, d.ProfileImage)
	if err != nil {
		return err
	}
	return requireRow(res, profile.ErrNotFound)
}

func (s *Store) UpdateOrganizer(ctx context.Context, o *profile.Organizer) error {
	res, err := s.db.ExecContext(ctx, `
		update organizers
		set organization_name = $2, contact_person = $3, phone = $4, address = $5, city = $6, state = $7,
			pincode = $8, registration_number = $9, website = $10, description = $11, verified = $12
		where id = $1
	`, o.ID, o.OrganizationName, o.ContactPerson, o.Phone, o.Address, o.City, o.State, o.Pincode,
		o.RegistrationNumber, o.Website, o.Description, o.Verified)
	if err != nil {
		return err
	}
	return requireRow(res, profile.ErrNotFound)
}

func (s *Store) AdjustDonorDonationCount(ctx context.Context, donorID string, delta int, lastDonation *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update donors
		set total_donations = greatest(0, total_donations + $2),
			last_donation_date = coalesce($3, last_donation_date)
		where id = $1
	`, donorID, delta, nullTime(lastDonation))
	if err != nil {
		return err
	}
	return requireRow(res, profile.ErrNotFound)
}
