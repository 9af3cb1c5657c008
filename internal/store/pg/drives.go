package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"redconnect.org/internal/drive"
)

var _ drive.Store = (*Store)(nil)

const eventColumns = `id, organizer_id, title, description, event_date, start_time, end_time, venue, city, state,
	max_participants, registered_participants, status, banner_image, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*drive.Event, error) {
	var e drive.Event
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.EventDate, &e.StartTime, &e.EndTime,
		&e.Venue, &e.City, &e.State, &e.MaxParticipants, &e.RegisteredParticipants, &e.Status,
		&e.BannerImage, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *drive.Event) error {
	_, err := s.db.ExecContext(ctx, `
		insert into events (id, organizer_id, title, description, event_date, start_time, end_time, venue,
			city, state, max_participants, registered_participants, status, banner_image, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, e.ID, e.OrganizerID, e.Title, e.Description, e.EventDate, e.StartTime, e.EndTime, e.Venue,
		e.City, e.State, e.MaxParticipants, e.RegisteredParticipants, e.Status, e.BannerImage,
		e.CreatedAt, e.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return drive.ErrNotFound
	}
	return err
}

func (s *Store) GetEvent(ctx context.Context, id string) (*drive.Event, error) {
	row := s.db.QueryRowContext(ctx, `select `+eventColumns+` from events where id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drive.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, filter drive.EventFilter) ([]*drive.Event, error) {
	query := `select ` + eventColumns + ` from events where 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` and status = ` + placeholder(len(args))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		query += ` and lower(city) = lower(` + placeholder(len(args)) + `)`
	}
	if filter.State != "" {
		args = append(args, filter.State)
		query += ` and lower(state) = lower(` + placeholder(len(args)) + `)`
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		query += ` and event_date >= ` + placeholder(len(args))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		query += ` and event_date <= ` + placeholder(len(args))
	}
	query += ` order by event_date asc`
	query, args = withWindow(query, args, filter.Skip, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*drive.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) EventsByOrganizer(ctx context.Context, organizerID string) ([]*drive.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+eventColumns+` from events where organizer_id = $1 order by event_date desc`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*drive.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEvent(ctx context.Context, e *drive.Event) error {
	res, err := s.db.ExecContext(ctx, `
		update events
		set title = $2, description = $3, event_date = $4, start_time = $5, end_time = $6, venue = $7,
			city = $8, state = $9, max_participants = $10, status = $11, banner_image = $12, updated_at = $13
		where id = $1
	`, e.ID, e.Title, e.Description, e.EventDate, e.StartTime, e.EndTime, e.Venue, e.City, e.State,
		e.MaxParticipants, e.Status, e.BannerImage, e.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res, drive.ErrNotFound)
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from events where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, drive.ErrNotFound)
}

// RegisterParticipant bumps the counter only while below the cap, so two
// concurrent registrations cannot both take the last slot.
func (s *Store) RegisterParticipant(ctx context.Context, eventID string, at time.Time) (*drive.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		update events
		set registered_participants = registered_participants + 1, updated_at = $2
		where id = $1 and (max_participants = 0 or registered_participants < max_participants)
		returning `+eventColumns, eventID, at)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetEvent(ctx, eventID); getErr != nil {
			return nil, getErr
		}
		return nil, drive.ErrEventFull
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) EventStats(ctx context.Context, today time.Time) (drive.EventStats, error) {
	var stats drive.EventStats
	err := s.db.QueryRowContext(ctx, `
		select count(*),
			count(*) filter (where status = 'upcoming' and event_date >= $1),
			count(*) filter (where status = 'completed'),
			coalesce(sum(registered_participants), 0)
		from events
	`, today).Scan(&stats.TotalEvents, &stats.UpcomingEvents, &stats.CompletedEvents, &stats.TotalParticipants)
	if err != nil {
		return drive.EventStats{}, err
	}
	stats.OngoingEvents = stats.TotalEvents - stats.UpcomingEvents - stats.CompletedEvents
	return stats, nil
}

const donationColumns = `id, donor_id, event_id, donation_date, blood_type, units, status, notes,
	certificate_url, created_at, updated_at`

func scanDonation(row interface{ Scan(...any) error }) (*drive.Donation, error) {
	var (
		d       drive.Donation
		eventID sql.NullString
	)
	err := row.Scan(&d.ID, &d.DonorID, &eventID, &d.DonationDate, &d.BloodType, &d.Units, &d.Status,
		&d.Notes, &d.CertificateURL, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.EventID = eventID.String
	return &d, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func (s *Store) CreateDonation(ctx context.Context, d *drive.Donation) error {
	_, err := s.db.ExecContext(ctx, `
		insert into donations (id, donor_id, event_id, donation_date, blood_type, units, status, notes,
			certificate_url, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, d.ID, d.DonorID, nullString(d.EventID), d.DonationDate, d.BloodType, d.Units, d.Status,
		d.Notes, d.CertificateURL, d.CreatedAt, d.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return drive.ErrNotFound
	}
	return err
}

func (s *Store) GetDonation(ctx context.Context, id string) (*drive.Donation, error) {
	row := s.db.QueryRowContext(ctx, `select `+donationColumns+` from donations where id = $1`, id)
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drive.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) DonationsByDonor(ctx context.Context, donorID string) ([]*drive.Donation, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+donationColumns+` from donations where donor_id = $1 order by donation_date desc`, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*drive.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListDonations(ctx context.Context, filter drive.DonationFilter) ([]*drive.Donation, error) {
	query := `select ` + donationColumns + ` from donations where 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` and status = ` + placeholder(len(args))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		query += ` and donation_date >= ` + placeholder(len(args))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		query += ` and donation_date <= ` + placeholder(len(args))
	}
	query += ` order by donation_date desc`
	query, args = withWindow(query, args, filter.Skip, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*drive.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDonation(ctx context.Context, d *drive.Donation) error {
	res, err := s.db.ExecContext(ctx, `
		update donations
		set donation_date = $2, blood_type = $3, units = $4, status = $5, notes = $6,
			certificate_url = $7, updated_at = $8
		where id = $1
	`, d.ID, d.DonationDate, d.BloodType, d.Units, d.Status, d.Notes, d.CertificateURL, d.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res, drive.ErrNotFound)
}

func (s *Store) DeleteDonation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from donations where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, drive.ErrNotFound)
}

func (s *Store) DonationStats(ctx context.Context) (drive.DonationStats, error) {
	var stats drive.DonationStats
	err := s.db.QueryRowContext(ctx, `
		select count(*),
			count(*) filter (where status = 'completed'),
			coalesce(sum(units), 0)
		from donations
	`).Scan(&stats.TotalDonations, &stats.CompletedDonations, &stats.TotalUnitsCollected)
	if err != nil {
		return drive.DonationStats{}, err
	}
	stats.ScheduledDonations = stats.TotalDonations - stats.CompletedDonations
	return stats, nil
}

const certificateColumns = `id, donation_id, donor_id, certificate_number, issue_date, blood_units, blood_type,
	status, certificate_url, issued_by, notes, created_at, updated_at`

func scanCertificate(row interface{ Scan(...any) error }) (*drive.Certificate, error) {
	var c drive.Certificate
	err := row.Scan(&c.ID, &c.DonationID, &c.DonorID, &c.CertificateNumber, &c.IssueDate, &c.BloodUnits,
		&c.BloodType, &c.Status, &c.CertificateURL, &c.IssuedBy, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCertificate(ctx context.Context, c *drive.Certificate) error {
	_, err := s.db.ExecContext(ctx, `
		insert into certificates (id, donation_id, donor_id, certificate_number, issue_date, blood_units,
			blood_type, status, certificate_url, issued_by, notes, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.DonationID, c.DonorID, c.CertificateNumber, c.IssueDate, c.BloodUnits, c.BloodType,
		c.Status, c.CertificateURL, c.IssuedBy, c.Notes, c.CreatedAt, c.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return drive.ErrCertificateExists
		case pgErrForeignKeyViolation:
			return drive.ErrNotFound
		}
	}
	return err
}

func (s *Store) GetCertificate(ctx context.Context, id string) (*drive.Certificate, error) {
	row := s.db.QueryRowContext(ctx, `select `+certificateColumns+` from certificates where id = $1`, id)
	c, err := scanCertificate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drive.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) CertificateByDonation(ctx context.Context, donationID string) (*drive.Certificate, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+certificateColumns+` from certificates where donation_id = $1`, donationID)
	c, err := scanCertificate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drive.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) CertificatesByDonor(ctx context.Context, donorID string) ([]*drive.Certificate, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+certificateColumns+` from certificates where donor_id = $1 order by issue_date desc`, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*drive.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListCertificates(ctx context.Context, filter drive.CertificateFilter) ([]*drive.Certificate, error) {
	query := `select ` + certificateColumns + ` from certificates where 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` and status = ` + placeholder(len(args))
	}
	query += ` order by created_at desc`
	query, args = withWindow(query, args, filter.Skip, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*drive.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCertificate(ctx context.Context, c *drive.Certificate) error {
	res, err := s.db.ExecContext(ctx, `
		update certificates
		set status = $2, certificate_url = $3, issued_by = $4, notes = $5, updated_at = $6
		where id = $1
	`, c.ID, c.Status, c.CertificateURL, c.IssuedBy, c.Notes, c.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res, drive.ErrNotFound)
}

func (s *Store) DeleteCertificate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from certificates where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, drive.ErrNotFound)
}
