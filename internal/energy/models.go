package energy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Family groups commodity types that share a source series layout and a storage table.
type Family string

const (
	FamilyFuel        Family = "fuel"
	FamilyElectricity Family = "electricity"
)

// ParseFamily maps a CLI or config token to a Family.
func ParseFamily(s string) (Family, bool) {
	switch Family(s) {
	case FamilyFuel, FamilyElectricity:
		return Family(s), true
	default:
		return "", false
	}
}

const (
	// SourceEIA is recorded on every fuel price row.
	SourceEIA = "EIA"

	// ValuePlaces is the fixed-point precision of prices and rates.
	ValuePlaces int32 = 3

	dateLayout = "2006-01-02"
)

// StateRef is one row of the reference states table.
// Rows are seeded once and are read-only for the pipeline.
type StateRef struct {
	ID     int    `json:"state_id"`
	Code   string `json:"state_code" validate:"required,len=2,uppercase,alpha"`
	Name   string `json:"state_name" validate:"required,max=50"`
	Region string `json:"region" validate:"required,max=50"`
}

// CanonicalRecord is the normalized unit persisted by the Reconciler.
// For electricity rows Type names the series and is not part of the key.
type CanonicalRecord struct {
	Family  Family          `json:"family"`
	StateID int             `json:"state_id"`
	Type    string          `json:"type"`
	Date    time.Time       `json:"date"` // UTC midnight
	Value   decimal.Decimal `json:"value"`
	Source  string          `json:"source"`
}

// RecordKey is the natural composite key of a persisted row.
type RecordKey struct {
	Family  Family
	StateID int
	Type    string // empty for electricity
	Date    string // YYYY-MM-DD
}

// Key returns the reconciliation identity of the record.
func (r CanonicalRecord) Key() RecordKey {
	k := RecordKey{
		Family:  r.Family,
		StateID: r.StateID,
		Date:    r.Date.Format(dateLayout),
	}
	if r.Family == FamilyFuel {
		k.Type = r.Type
	}
	return k
}

// DateString returns the ISO calendar date of the record.
func (r CanonicalRecord) DateString() string {
	return r.Date.Format(dateLayout)
}

// RawPayload is an undecoded response body for one (state, type, window) request.
type RawPayload struct {
	Body []byte

	// NextPageToken is reserved for multi-page continuation. One page currently
	// covers every window, so clients leave it empty.
	NextPageToken string
}
