package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/i474232898/energy-data-ingestion/internal/energy"
	"github.com/i474232898/energy-data-ingestion/internal/store"
	"github.com/i474232898/energy-data-ingestion/internal/store/sqlite/migrations"
)

// Store is a SQLite-backed state directory source and record store.
type Store struct {
	db   *sql.DB
	path string
}

var (
	_ energy.StateSource = (*Store)(nil)
	_ energy.RecordStore = (*Store)(nil)
)

// NewStore opens (creating if needed) the database at path and applies migrations.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Writers are serialized by SQLite anyway; one connection keeps the
	// per-connection pragmas in force for every statement.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// SeedStates inserts missing states and returns how many rows were added.
func (s *Store) SeedStates(ctx context.Context, refs []energy.StateRef) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	added := 0
	for _, ref := range refs {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO states (state_code, state_name, region)
			VALUES (?, ?, ?)
			ON CONFLICT (state_code) DO NOTHING
		`, ref.Code, ref.Name, ref.Region)
		if err != nil {
			return 0, fmt.Errorf("inserting state %s: %w", ref.Code, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("counting inserted rows: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing states: %w", err)
	}
	return added, nil
}

// ListStates returns every state ordered by code.
func (s *Store) ListStates(ctx context.Context) ([]energy.StateRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state_id, state_code, state_name, region FROM states ORDER BY state_code
	`)
	if err != nil {
		return nil, fmt.Errorf("querying states: %w", err)
	}
	defer rows.Close()

	var out []energy.StateRef
	for rows.Next() {
		var ref energy.StateRef
		if err := rows.Scan(&ref.ID, &ref.Code, &ref.Name, &ref.Region); err != nil {
			return nil, fmt.Errorf("scanning state: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// InTx runs fn in a transaction, committing only when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx energy.RecordTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&recordTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Value reads the stored measurement for key.
func (s *Store) Value(ctx context.Context, key energy.RecordKey) (decimal.Decimal, error) {
	var raw string
	var err error
	switch key.Family {
	case energy.FamilyFuel:
		err = s.db.QueryRowContext(ctx, `
			SELECT price FROM fuel_prices WHERE state_id = ? AND fuel_type = ? AND price_date = ?
		`, key.StateID, key.Type, key.Date).Scan(&raw)
	case energy.FamilyElectricity:
		err = s.db.QueryRowContext(ctx, `
			SELECT avg_rate_kwh FROM electricity_rates WHERE state_id = ? AND rate_date = ?
		`, key.StateID, key.Date).Scan(&raw)
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %q", energy.ErrUnknownFamily, key.Family)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, store.ErrNotFound
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("reading value: %w", err)
	}
	return decimal.NewFromString(raw)
}

// Count returns the number of rows stored for a family.
func (s *Store) Count(ctx context.Context, family energy.Family) (int, error) {
	table, err := tableFor(family)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func tableFor(family energy.Family) (string, error) {
	switch family {
	case energy.FamilyFuel:
		return "fuel_prices", nil
	case energy.FamilyElectricity:
		return "electricity_rates", nil
	default:
		return "", fmt.Errorf("%w: %q", energy.ErrUnknownFamily, family)
	}
}

// recordTx implements energy.RecordTx.
type recordTx struct {
	tx *sql.Tx
}

func (t *recordTx) Exists(ctx context.Context, key energy.RecordKey) (bool, error) {
	var one int
	var err error
	switch key.Family {
	case energy.FamilyFuel:
		err = t.tx.QueryRowContext(ctx, `
			SELECT 1 FROM fuel_prices WHERE state_id = ? AND fuel_type = ? AND price_date = ?
		`, key.StateID, key.Type, key.Date).Scan(&one)
	case energy.FamilyElectricity:
		err = t.tx.QueryRowContext(ctx, `
			SELECT 1 FROM electricity_rates WHERE state_id = ? AND rate_date = ?
		`, key.StateID, key.Date).Scan(&one)
	default:
		return false, fmt.Errorf("%w: %q", energy.ErrUnknownFamily, key.Family)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up row: %w", err)
	}
	return true, nil
}

func (t *recordTx) Insert(ctx context.Context, rec energy.CanonicalRecord) error {
	var err error
	switch rec.Family {
	case energy.FamilyFuel:
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO fuel_prices (state_id, fuel_type, price_date, price, source)
			VALUES (?, ?, ?, ?, ?)
		`, rec.StateID, rec.Type, rec.DateString(), rec.Value.StringFixed(energy.ValuePlaces), rec.Source)
	case energy.FamilyElectricity:
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO electricity_rates (state_id, rate_date, avg_rate_kwh)
			VALUES (?, ?, ?)
		`, rec.StateID, rec.DateString(), rec.Value.StringFixed(energy.ValuePlaces))
	default:
		return fmt.Errorf("%w: %q", energy.ErrUnknownFamily, rec.Family)
	}
	if err != nil {
		return fmt.Errorf("inserting row: %w", err)
	}
	return nil
}

func (t *recordTx) UpdateValue(ctx context.Context, rec energy.CanonicalRecord) error {
	var err error
	switch rec.Family {
	case energy.FamilyFuel:
		_, err = t.tx.ExecContext(ctx, `
			UPDATE fuel_prices SET price = ? WHERE state_id = ? AND fuel_type = ? AND price_date = ?
		`, rec.Value.StringFixed(energy.ValuePlaces), rec.StateID, rec.Type, rec.DateString())
	case energy.FamilyElectricity:
		_, err = t.tx.ExecContext(ctx, `
			UPDATE electricity_rates SET avg_rate_kwh = ? WHERE state_id = ? AND rate_date = ?
		`, rec.Value.StringFixed(energy.ValuePlaces), rec.StateID, rec.DateString())
	default:
		return fmt.Errorf("%w: %q", energy.ErrUnknownFamily, rec.Family)
	}
	if err != nil {
		return fmt.Errorf("updating row: %w", err)
	}
	return nil
}
