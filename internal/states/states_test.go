package states

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
)

func TestAll_IsValid(t *testing.T) {
	all := All()
	assert.Len(t, all, 50)
	require.NoError(t, Validate(all))
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	a[0].Code = "ZZ"
	assert.Equal(t, "AL", All()[0].Code)
}

func TestValidate_RejectsBadRows(t *testing.T) {
	tests := []struct {
		name string
		refs []energy.StateRef
	}{
		{"lowercase code", []energy.StateRef{{Code: "ca", Name: "California", Region: "PADD_5"}}},
		{"long code", []energy.StateRef{{Code: "CAL", Name: "California", Region: "PADD_5"}}},
		{"missing name", []energy.StateRef{{Code: "CA", Region: "PADD_5"}}},
		{"missing region", []energy.StateRef{{Code: "CA", Name: "California"}}},
		{"duplicate", []energy.StateRef{
			{Code: "CA", Name: "California", Region: "PADD_5"},
			{Code: "CA", Name: "California", Region: "PADD_5"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(tt.refs))
		})
	}
}
