package energy

import (
	"context"
	"errors"
	"log"
)

// ApplyResult counts the rows written by one Reconciler.Apply call.
type ApplyResult struct {
	Inserted int
	Updated  int
}

// Reconciler upserts canonical records by their natural key. It never deletes:
// a key missing from a batch only means the window did not cover it.
type Reconciler struct {
	store RecordStore
}

// NewReconciler creates a new Reconciler over store.
func NewReconciler(store RecordStore) *Reconciler {
	return &Reconciler{store: store}
}

// Apply writes records in a single transaction. An existing key has only its
// value overwritten; a new key is inserted with all fields. Applying the same
// batch twice leaves one row per key holding the latest value. Any storage
// error rolls the whole batch back and is returned as a *StorageFault.
func (r *Reconciler) Apply(ctx context.Context, records []CanonicalRecord) (ApplyResult, error) {
	var res ApplyResult
	if len(records) == 0 {
		return res, nil
	}

	err := r.store.InTx(ctx, func(tx RecordTx) error {
		for _, rec := range records {
			key := rec.Key()

			exists, err := tx.Exists(ctx, key)
			if err != nil {
				return &StorageFault{Op: "lookup", Cause: err}
			}

			if exists {
				if err := tx.UpdateValue(ctx, rec); err != nil {
					return &StorageFault{Op: "update", Cause: err}
				}
				res.Updated++
				continue
			}

			if err := tx.Insert(ctx, rec); err != nil {
				return &StorageFault{Op: "insert", Cause: err}
			}
			res.Inserted++
		}
		return nil
	})
	if err != nil {
		var fault *StorageFault
		if !errors.As(err, &fault) {
			err = &StorageFault{Op: "transaction", Cause: err}
		}
		log.Printf("ERROR: %s reconcile rolled back: %v", runTag(ctx), err)
		return ApplyResult{}, err
	}

	return res, nil
}
