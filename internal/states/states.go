// Package states holds the reference list used to seed the states table.
package states

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
)

var validate = validator.New()

var seed = []energy.StateRef{
	{Code: "AL", Name: "Alabama", Region: "PADD_3"},
	{Code: "AK", Name: "Alaska", Region: "PADD_5"},
	{Code: "AZ", Name: "Arizona", Region: "PADD_5"},
	{Code: "AR", Name: "Arkansas", Region: "PADD_3"},
	{Code: "CA", Name: "California", Region: "PADD_5"},
	{Code: "CO", Name: "Colorado", Region: "PADD_4"},
	{Code: "CT", Name: "Connecticut", Region: "PADD_1"},
	{Code: "DE", Name: "Delaware", Region: "PADD_1"},
	{Code: "FL", Name: "Florida", Region: "PADD_1"},
	{Code: "GA", Name: "Georgia", Region: "PADD_1"},
	{Code: "HI", Name: "Hawaii", Region: "Separate Energy Market"},
	{Code: "ID", Name: "Idaho", Region: "PADD_4"},
	{Code: "IL", Name: "Illinois", Region: "PADD_2"},
	{Code: "IN", Name: "Indiana", Region: "PADD_2"},
	{Code: "IA", Name: "Iowa", Region: "PADD_2"},
	{Code: "KS", Name: "Kansas", Region: "PADD_2"},
	{Code: "KY", Name: "Kentucky", Region: "PADD_2"},
	{Code: "LA", Name: "Louisiana", Region: "PADD_3"},
	{Code: "ME", Name: "Maine", Region: "PADD_1"},
	{Code: "MD", Name: "Maryland", Region: "PADD_1"},
	{Code: "MA", Name: "Massachusetts", Region: "PADD_1"},
	{Code: "MI", Name: "Michigan", Region: "PADD_2"},
	{Code: "MN", Name: "Minnesota", Region: "PADD_2"},
	{Code: "MS", Name: "Mississippi", Region: "PADD_3"},
	{Code: "MO", Name: "Missouri", Region: "PADD_2"},
	{Code: "MT", Name: "Montana", Region: "PADD_4"},
	{Code: "NE", Name: "Nebraska", Region: "PADD_2"},
	{Code: "NV", Name: "Nevada", Region: "PADD_5"},
	{Code: "NH", Name: "New Hampshire", Region: "PADD_1"},
	{Code: "NJ", Name: "New Jersey", Region: "PADD_1"},
	{Code: "NM", Name: "New Mexico", Region: "PADD_3"},
	{Code: "NY", Name: "New York", Region: "PADD_1"},
	{Code: "NC", Name: "North Carolina", Region: "PADD_1"},
	{Code: "ND", Name: "North Dakota", Region: "PADD_2"},
	{Code: "OH", Name: "Ohio", Region: "PADD_2"},
	{Code: "OK", Name: "Oklahoma", Region: "PADD_2"},
	{Code: "OR", Name: "Oregon", Region: "PADD_5"},
	{Code: "PA", Name: "Pennsylvania", Region: "PADD_1"},
	{Code: "RI", Name: "Rhode Island", Region: "PADD_1"},
	{Code: "SC", Name: "South Carolina", Region: "PADD_1"},
	{Code: "SD", Name: "South Dakota", Region: "PADD_2"},
	{Code: "TN", Name: "Tennessee", Region: "PADD_1"},
	{Code: "TX", Name: "Texas", Region: "PADD_3"},
	{Code: "UT", Name: "Utah", Region: "PADD_4"},
	{Code: "VT", Name: "Vermont", Region: "PADD_1"},
	{Code: "VA", Name: "Virginia", Region: "PADD_1"},
	{Code: "WA", Name: "Washington", Region: "PADD_5"},
	{Code: "WV", Name: "West Virginia", Region: "PADD_1"},
	{Code: "WI", Name: "Wisconsin", Region: "PADD_2"},
	{Code: "WY", Name: "Wyoming", Region: "PADD_4"},
}

// All returns a copy of the seed list. IDs are left zero; the store assigns them.
func All() []energy.StateRef {
	out := make([]energy.StateRef, len(seed))
	copy(out, seed)
	return out
}

// Validate checks every row before it is written to the states table.
func Validate(refs []energy.StateRef) error {
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if err := validate.Struct(ref); err != nil {
			return fmt.Errorf("invalid state %q: %w", ref.Code, err)
		}
		if _, dup := seen[ref.Code]; dup {
			return fmt.Errorf("duplicate state code %q", ref.Code)
		}
		seen[ref.Code] = struct{}{}
	}
	return nil
}
