// Package postgres provides the production PostgreSQL implementation of the
// energy storage ports on top of a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
	"github.com/i474232898/energy-data-ingestion/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS states (
    state_id   SERIAL PRIMARY KEY,
    state_code CHAR(2) UNIQUE NOT NULL,
    state_name VARCHAR(50) NOT NULL,
    region     VARCHAR(50) NOT NULL
);

CREATE TABLE IF NOT EXISTS fuel_prices (
    state_id   INTEGER NOT NULL REFERENCES states(state_id),
    fuel_type  VARCHAR(16) NOT NULL,
    price_date DATE NOT NULL,
    price      NUMERIC(10,3) NOT NULL,
    source     VARCHAR(16) NOT NULL DEFAULT 'EIA',
    PRIMARY KEY (state_id, fuel_type, price_date)
);

CREATE TABLE IF NOT EXISTS electricity_rates (
    state_id     INTEGER NOT NULL REFERENCES states(state_id),
    rate_date    DATE NOT NULL,
    avg_rate_kwh NUMERIC(10,3) NOT NULL,
    PRIMARY KEY (state_id, rate_date)
);
`

// reconcileLock is the advisory lock key held by every record transaction.
// Lookups cannot lock rows that do not exist yet, so concurrent runs take
// turns instead of racing to insert the same key.
const reconcileLock int64 = 0x656961 // "eia"

// Store is a PostgreSQL-backed state directory source and record store.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ energy.StateSource = (*Store)(nil)
	_ energy.RecordStore = (*Store)(nil)
)

// Open connects to dsn and creates the schema if it is absent.
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SeedStates inserts missing states and returns how many rows were added.
func (s *Store) SeedStates(ctx context.Context, refs []energy.StateRef) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	added := 0
	for _, ref := range refs {
		tag, err := tx.Exec(ctx, `
			INSERT INTO states (state_code, state_name, region)
			VALUES ($1, $2, $3)
			ON CONFLICT (state_code) DO NOTHING`,
			ref.Code, ref.Name, ref.Region)
		if err != nil {
			return 0, fmt.Errorf("inserting state %s: %w", ref.Code, err)
		}
		added += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing states: %w", err)
	}
	return added, nil
}

// ListStates returns every state ordered by code.
func (s *Store) ListStates(ctx context.Context) ([]energy.StateRef, error) {
	rows, err := s.pool.Query(ctx, `SELECT state_id, state_code, state_name, region FROM states ORDER BY state_code`)
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
// Record transactions are serialized across processes by an advisory lock
// released at commit or rollback.
func (s *Store) InTx(ctx context.Context, fn func(tx energy.RecordTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, reconcileLock); err != nil {
		return fmt.Errorf("acquiring reconcile lock: %w", err)
	}

	if err := fn(&recordTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
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
		err = s.pool.QueryRow(ctx, `
			SELECT price::text FROM fuel_prices
			WHERE state_id = $1 AND fuel_type = $2 AND price_date = $3::date`,
			key.StateID, key.Type, key.Date).Scan(&raw)
	case energy.FamilyElectricity:
		err = s.pool.QueryRow(ctx, `
			SELECT avg_rate_kwh::text FROM electricity_rates
			WHERE state_id = $1 AND rate_date = $2::date`,
			key.StateID, key.Date).Scan(&raw)
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %q", energy.ErrUnknownFamily, key.Family)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, store.ErrNotFound
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("reading value: %w", err)
	}
	return decimal.NewFromString(raw)
}

// recordTx implements energy.RecordTx.
type recordTx struct {
	tx pgx.Tx
}

func (t *recordTx) Exists(ctx context.Context, key energy.RecordKey) (bool, error) {
	var one int
	var err error
	switch key.Family {
	case energy.FamilyFuel:
		err = t.tx.QueryRow(ctx, `
			SELECT 1 FROM fuel_prices
			WHERE state_id = $1 AND fuel_type = $2 AND price_date = $3::date
			FOR UPDATE`, key.StateID, key.Type, key.Date).Scan(&one)
	case energy.FamilyElectricity:
		err = t.tx.QueryRow(ctx, `
			SELECT 1 FROM electricity_rates
			WHERE state_id = $1 AND rate_date = $2::date
			FOR UPDATE`, key.StateID, key.Date).Scan(&one)
	default:
		return false, fmt.Errorf("%w: %q", energy.ErrUnknownFamily, key.Family)
	}
	if errors.Is(err, pgx.ErrNoRows) {
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
		_, err = t.tx.Exec(ctx, `
			INSERT INTO fuel_prices (state_id, fuel_type, price_date, price, source)
			VALUES ($1, $2, $3::date, $4::numeric, $5)`,
			rec.StateID, rec.Type, rec.DateString(), rec.Value.StringFixed(energy.ValuePlaces), rec.Source)
	case energy.FamilyElectricity:
		_, err = t.tx.Exec(ctx, `
			INSERT INTO electricity_rates (state_id, rate_date, avg_rate_kwh)
			VALUES ($1, $2::date, $3::numeric)`,
			rec.StateID, rec.DateString(), rec.Value.StringFixed(energy.ValuePlaces))
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
		_, err = t.tx.Exec(ctx, `
			UPDATE fuel_prices SET price = $1::numeric
			WHERE state_id = $2 AND fuel_type = $3 AND price_date = $4::date`,
			rec.Value.StringFixed(energy.ValuePlaces), rec.StateID, rec.Type, rec.DateString())
	case energy.FamilyElectricity:
		_, err = t.tx.Exec(ctx, `
			UPDATE electricity_rates SET avg_rate_kwh = $1::numeric
			WHERE state_id = $2 AND rate_date = $3::date`,
			rec.Value.StringFixed(energy.ValuePlaces), rec.StateID, rec.DateString())
	default:
		return fmt.Errorf("%w: %q", energy.ErrUnknownFamily, rec.Family)
	}
	if err != nil {
		return fmt.Errorf("updating row: %w", err)
	}
	return nil
}
