package energy

import "context"

// SourceClient abstracts the external time-series API.
// Any error it returns must be a *TransportFailure.
type SourceClient interface {
	Fetch(ctx context.Context, ct CommodityType, stateCode string, w Window) (RawPayload, error)
}

// StateSource is the backing store of the StateDirectory.
type StateSource interface {
	ListStates(ctx context.Context) ([]StateRef, error)
}

// RecordStore runs reconciliation inside a single storage transaction.
// If fn returns an error the transaction is rolled back.
type RecordStore interface {
	InTx(ctx context.Context, fn func(tx RecordTx) error) error
}

// RecordTx is the set of keyed operations available inside a transaction.
type RecordTx interface {
	Exists(ctx context.Context, key RecordKey) (bool, error)
	Insert(ctx context.Context, rec CanonicalRecord) error
	UpdateValue(ctx context.Context, rec CanonicalRecord) error
}
