package energy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
	"github.com/i474232898/energy-data-ingestion/internal/store"
)

func newPipeline(s energy.StateSource, src energy.SourceClient, workers int) *energy.Pipeline {
	return energy.NewPipeline(
		energy.NewStateDirectory(s),
		src,
		energy.DefaultCatalogue(),
		energy.PipelineConfig{Workers: workers, RequestTimeout: time.Second, Now: fixedNow},
	)
}

func TestPipeline_FailedStateDoesNotBlockOthers(t *testing.T) {
	for _, workers := range []int{1, 4} {
		src := &fakeSource{bodies: map[string]string{
			"CA/regular": seriesBody([2]string{"20240108", "4.512"}, [2]string{"20240101", "4.498"}),
			"CA/premium": seriesBody([2]string{"20240108", "5.1"}),
		}}
		p := newPipeline(seededStore("CA", "ZZ"), src, workers)

		res, err := p.Run(context.Background(), energy.FamilyFuel)
		require.NoError(t, err)

		assert.Equal(t, 2, res.States)
		assert.Len(t, res.Pairs, 4)
		assert.Equal(t, 2, res.Failed())
		assert.Len(t, res.Records, 3)
		for _, rec := range res.Records {
			assert.Equal(t, energy.FamilyFuel, rec.Family)
			assert.Equal(t, "EIA", rec.Source)
		}

		for _, pr := range res.Pairs {
			switch pr.StateCode {
			case "ZZ":
				assert.Equal(t, energy.PairFailed, pr.Status)
				var tf *energy.TransportFailure
				assert.ErrorAs(t, pr.Err, &tf)
				assert.Equal(t, 0, pr.Records)
			case "CA":
				assert.Equal(t, energy.PairNormalized, pr.Status)
				assert.NoError(t, pr.Err)
			}
		}
	}
}

func TestPipeline_PairsAreOrderedByState(t *testing.T) {
	src := &fakeSource{}
	res, err := newPipeline(seededStore("TX", "AL", "NY"), src, 3).Run(context.Background(), energy.FamilyFuel)
	require.NoError(t, err)

	var order []string
	for _, pr := range res.Pairs {
		order = append(order, pr.StateCode+"/"+pr.Type)
	}
	assert.Equal(t, []string{
		"AL/regular", "AL/premium",
		"NY/regular", "NY/premium",
		"TX/regular", "TX/premium",
	}, order)
	assert.Equal(t, 6, src.callCount())
}

func TestPipeline_CountsSkippedPoints(t *testing.T) {
	src := &fakeSource{bodies: map[string]string{
		"CA/regular": `{"series":[{"data":[["20240101","3.259"],["bad","x"]]}]}`,
		"CA/premium": `{"series":[]}`,
	}}
	res, err := newPipeline(seededStore("CA"), src, 1).Run(context.Background(), energy.FamilyFuel)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped())
	assert.Equal(t, 0, res.Failed())
	require.Len(t, res.Records, 1)
	assert.Equal(t, "3.259", res.Records[0].Value.StringFixed(3))
}

func TestPipeline_UsesWindowPerType(t *testing.T) {
	src := &fakeSource{}
	_, err := newPipeline(seededStore("CA"), src, 1).Run(context.Background(), energy.FamilyElectricity)
	require.NoError(t, err)

	w := src.windows["CA/residential"]
	assert.Equal(t, "2023-11", w.StartParam())
	assert.False(t, w.HasEnd())

	_, err = newPipeline(seededStore("CA"), src, 1).Run(context.Background(), energy.FamilyFuel)
	require.NoError(t, err)

	w = src.windows["CA/regular"]
	assert.Equal(t, "2024-01-08", w.StartParam())
	assert.Equal(t, "2024-01-14", w.EndParam())
}

func TestPipeline_RequestTimeoutFailsOnlyThatPair(t *testing.T) {
	src := &fakeSource{
		bodies: map[string]string{
			"CA/residential": `{"response":{"data":[{"period":"2023-12","price":"31.5"}]}}`,
		},
		block: map[string]bool{"TX/residential": true},
	}
	p := energy.NewPipeline(
		energy.NewStateDirectory(seededStore("CA", "TX")),
		src,
		energy.DefaultCatalogue(),
		energy.PipelineConfig{Workers: 2, RequestTimeout: 50 * time.Millisecond, Now: fixedNow},
	)

	res, err := p.Run(context.Background(), energy.FamilyElectricity)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed())
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2023-12-01", res.Records[0].DateString())
}

func TestPipeline_EmptyDirectory(t *testing.T) {
	src := &fakeSource{}
	res, err := newPipeline(store.NewMemoryStore(), src, 2).Run(context.Background(), energy.FamilyFuel)
	require.NoError(t, err)
	assert.Equal(t, 0, res.States)
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, src.callCount())
}

func TestPipeline_Errors(t *testing.T) {
	_, err := newPipeline(failingStates{}, &fakeSource{}, 1).Run(context.Background(), energy.FamilyFuel)
	assert.ErrorIs(t, err, energy.ErrDirectoryUnavailable)

	_, err = newPipeline(seededStore("CA"), &fakeSource{}, 1).Run(context.Background(), energy.Family("gas"))
	assert.ErrorIs(t, err, energy.ErrUnknownFamily)
}
