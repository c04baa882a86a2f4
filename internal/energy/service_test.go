package energy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
)

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()
	s := seededStore("CA", "ZZ")
	src := &fakeSource{bodies: map[string]string{
		"CA/regular": `{"series":[{"data":[["20240108","4.512"],["20240101","4.4985"],["bad","x"]]}]}`,
		"CA/premium": seriesBody([2]string{"20240108", "5.1"}),
	}}
	svc := energy.NewService(newPipeline(s, src, 2), energy.NewReconciler(s))

	sum, err := svc.Ingest(ctx, energy.FamilyFuel)
	require.NoError(t, err)
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, energy.FamilyFuel, sum.Family)
	assert.Equal(t, 2, sum.States)
	assert.Equal(t, 4, sum.Pairs)
	assert.Equal(t, 2, sum.FailedPairs)
	assert.Equal(t, 3, sum.Normalized)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 3, sum.Inserted)
	assert.Equal(t, 0, sum.Updated)
	assert.False(t, sum.Finished.Before(sum.Started))
	assert.Contains(t, sum.String(), "inserted=3")

	ids, err := energy.NewStateDirectory(s).Load(ctx)
	require.NoError(t, err)
	got, err := s.Get(energy.RecordKey{Family: energy.FamilyFuel, StateID: ids["CA"], Type: "regular", Date: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "4.499", got.Value.StringFixed(3))

	again, err := svc.Ingest(ctx, energy.FamilyFuel)
	require.NoError(t, err)
	assert.NotEqual(t, sum.RunID, again.RunID)
	assert.Equal(t, 0, again.Inserted)
	assert.Equal(t, 3, again.Updated)
	assert.Equal(t, 3, s.Len())
}

func TestService_IngestDirectoryFault(t *testing.T) {
	svc := energy.NewService(newPipeline(failingStates{}, &fakeSource{}, 1), energy.NewReconciler(seededStore()))

	sum, err := svc.Ingest(context.Background(), energy.FamilyElectricity)
	assert.ErrorIs(t, err, energy.ErrDirectoryUnavailable)
	assert.Equal(t, 0, sum.Inserted)
	assert.False(t, sum.Finished.IsZero())
}
