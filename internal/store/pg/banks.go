package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"redconnect.org/internal/bank"
)

var _ bank.Store = (*Store)(nil)

const bankColumns = `id, name, address, phone, email, category, city, state, pincode,
	available_blood_types, operating_hours, latitude, longitude, created_at, updated_at`

func scanBank(row interface{ Scan(...any) error }) (*bank.BloodBank, error) {
	var (
		b        bank.BloodBank
		lat, lon sql.NullFloat64
	)
	err := row.Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.Email, &b.Category, &b.City, &b.State,
		&b.Pincode, &b.AvailableBloodTypes, &b.OperatingHours, &lat, &lon, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Latitude = floatPtr(lat)
	b.Longitude = floatPtr(lon)
	return &b, nil
}

func (s *Store) CreateBank(ctx context.Context, b *bank.BloodBank) error {
	_, err := s.db.ExecContext(ctx, `
		insert into blood_banks (id, name, address, phone, email, category, city, state, pincode,
			available_blood_types, operating_hours, latitude, longitude, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, b.ID, b.Name, b.Address, b.Phone, b.Email, b.Category, b.City, b.State, b.Pincode,
		b.AvailableBloodTypes, b.OperatingHours, nullFloat(b.Latitude), nullFloat(b.Longitude),
		b.CreatedAt, b.UpdatedAt)
	return err
}

func (s *Store) GetBank(ctx context.Context, id string) (*bank.BloodBank, error) {
	row := s.db.QueryRowContext(ctx, `select `+bankColumns+` from blood_banks where id = $1`, id)
	b, err := scanBank(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bank.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) ListBanks(ctx context.Context, filter bank.Filter) ([]*bank.BloodBank, error) {
	query := `select ` + bankColumns + ` from blood_banks where 1=1`
	var args []any
	if filter.State != "" {
		args = append(args, filter.State)
		query += ` and lower(state) = lower(` + placeholder(len(args)) + `)`
	}
	if filter.City != "" {
		args = append(args, filter.City)
		query += ` and lower(city) = lower(` + placeholder(len(args)) + `)`
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` and category = ` + placeholder(len(args))
	}
	if filter.BloodType != "" {
		args = append(args, "%"+string(filter.BloodType)+"%")
		query += ` and available_blood_types like ` + placeholder(len(args))
	}
	query += ` order by id`
	query, args = withWindow(query, args, filter.Skip, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*bank.BloodBank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBank(ctx context.Context, b *bank.BloodBank) error {
	res, err := s.db.ExecContext(ctx, `
		update blood_banks
		set name = $2, address = $3, phone = $4, email = $5, category = $6, city = $7, state = $8,
			pincode = $9, available_blood_types = $10, operating_hours = $11, latitude = $12,
			longitude = $13, updated_at = $14
		where id = $1
	`, b.ID, b.Name, b.Address, b.Phone, b.Email, b.Category, b.City, b.State, b.Pincode,
		b.AvailableBloodTypes, b.OperatingHours, nullFloat(b.Latitude), nullFloat(b.Longitude), b.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res, bank.ErrNotFound)
}

func (s *Store) DeleteBank(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from blood_banks where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, bank.ErrNotFound)
}

const inventoryColumns = `id, blood_bank_id, blood_type, units_available, last_updated`

func scanInventory(row interface{ Scan(...any) error }) (*bank.Inventory, error) {
	var inv bank.Inventory
	err := row.Scan(&inv.ID, &inv.BloodBankID, &inv.BloodType, &inv.UnitsAvailable, &inv.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) UpsertInventory(ctx context.Context, inv *bank.Inventory) error {
	row := s.db.QueryRowContext(ctx, `
		insert into blood_inventory (id, blood_bank_id, blood_type, units_available, last_updated)
		values ($1, $2, $3, $4, $5)
		on conflict (blood_bank_id, blood_type) do update
		set units_available = excluded.units_available, last_updated = excluded.last_updated
		returning `+inventoryColumns,
		inv.ID, inv.BloodBankID, inv.BloodType, inv.UnitsAvailable, inv.LastUpdated)
	stored, err := scanInventory(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return bank.ErrNotFound
		}
		return err
	}
	*inv = *stored
	return nil
}

func (s *Store) GetInventory(ctx context.Context, id string) (*bank.Inventory, error) {
	row := s.db.QueryRowContext(ctx, `select `+inventoryColumns+` from blood_inventory where id = $1`, id)
	inv, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bank.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Store) BankInventory(ctx context.Context, bankID string) ([]*bank.Inventory, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+inventoryColumns+` from blood_inventory where blood_bank_id = $1 order by blood_type`, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*bank.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) UpdateInventoryUnits(ctx context.Context, id string, units int, at time.Time) (*bank.Inventory, error) {
	row := s.db.QueryRowContext(ctx, `
		update blood_inventory
		set units_available = $2, last_updated = $3
		where id = $1
		returning `+inventoryColumns, id, units, at)
	inv, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bank.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Store) ListStates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select distinct state from blood_banks where state <> '' order by state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

func (s *Store) ListCities(ctx context.Context, state string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select distinct city from blood_banks where city <> '' and lower(state) = lower($1) order by city`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, err
		}
		out = append(out, city)
	}
	return out, rows.Err()
}
