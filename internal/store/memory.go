package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
)

var (
	// ErrNotFound is returned when no row exists for a key.
	ErrNotFound = errors.New("no row for key")

	// ErrDuplicateKey mirrors a primary key violation.
	ErrDuplicateKey = errors.New("duplicate key")
)

// MemoryStore is a concurrency-safe in-memory implementation of the energy
// storage ports. It backs dry runs and tests.
type MemoryStore struct {
	mu sync.RWMutex

	states []energy.StateRef
	nextID int

	// key: natural composite key, value: persisted row
	rows map[energy.RecordKey]energy.CanonicalRecord
}

var (
	_ energy.StateSource = (*MemoryStore)(nil)
	_ energy.RecordStore = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[energy.RecordKey]energy.CanonicalRecord),
		nextID: 1,
	}
}

// SeedStates inserts states whose code is not present yet and returns how many were added.
func (s *MemoryStore) SeedStates(_ context.Context, refs []energy.StateRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.states))
	for _, st := range s.states {
		known[st.Code] = struct{}{}
	}

	added := 0
	for _, ref := range refs {
		if _, ok := known[ref.Code]; ok {
			continue
		}
		ref.ID = s.nextID
		s.nextID++
		s.states = append(s.states, ref)
		known[ref.Code] = struct{}{}
		added++
	}
	return added, nil
}

// ListStates returns the seeded states ordered by code.
func (s *MemoryStore) ListStates(_ context.Context) ([]energy.StateRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]energy.StateRef, len(s.states))
	copy(out, s.states)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// InTx stages writes and applies them only if fn succeeds. Transactions are serialized.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx energy.RecordTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		base:   s.rows,
		staged: make(map[energy.RecordKey]energy.CanonicalRecord),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for k, rec := range tx.staged {
		s.rows[k] = rec
	}
	return nil
}

// Get returns the row stored under key.
func (s *MemoryStore) Get(key energy.RecordKey) (energy.CanonicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.rows[key]
	if !ok {
		return energy.CanonicalRecord{}, ErrNotFound
	}
	return rec, nil
}

// Len returns the number of persisted rows across both families.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	base   map[energy.RecordKey]energy.CanonicalRecord
	staged map[energy.RecordKey]energy.CanonicalRecord
}

func (t *memoryTx) lookup(key energy.RecordKey) (energy.CanonicalRecord, bool) {
	if rec, ok := t.staged[key]; ok {
		return rec, true
	}
	rec, ok := t.base[key]
	return rec, ok
}

func (t *memoryTx) Exists(_ context.Context, key energy.RecordKey) (bool, error) {
	_, ok := t.lookup(key)
	return ok, nil
}

func (t *memoryTx) Insert(_ context.Context, rec energy.CanonicalRecord) error {
	key := rec.Key()
	if _, ok := t.lookup(key); ok {
		return fmt.Errorf("%w: %+v", ErrDuplicateKey, key)
	}
	t.staged[key] = rec
	return nil
}

func (t *memoryTx) UpdateValue(_ context.Context, rec energy.CanonicalRecord) error {
	key := rec.Key()
	existing, ok := t.lookup(key)
	if !ok {
		return fmt.Errorf("%w: %+v", ErrNotFound, key)
	}
	existing.Value = rec.Value
	t.staged[key] = existing
	return nil
}
