package energy_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/energy-data-ingestion/internal/energy"
	"github.com/i474232898/energy-data-ingestion/internal/store"
)

// fakeSource serves canned bodies keyed by "STATE/type" and fails for unknown keys.
type fakeSource struct {
	bodies map[string]string
	block  map[string]bool

	mu      sync.Mutex
	calls   []string
	windows map[string]energy.Window
}

func (f *fakeSource) Fetch(ctx context.Context, ct energy.CommodityType, state string, w energy.Window) (energy.RawPayload, error) {
	key := state + "/" + ct.Name

	f.mu.Lock()
	f.calls = append(f.calls, key)
	if f.windows == nil {
		f.windows = make(map[string]energy.Window)
	}
	f.windows[key] = w
	f.mu.Unlock()

	if f.block[key] {
		<-ctx.Done()
		return energy.RawPayload{}, &energy.TransportFailure{StateCode: state, Type: ct.Name, Cause: ctx.Err()}
	}

	body, ok := f.bodies[key]
	if !ok {
		return energy.RawPayload{}, &energy.TransportFailure{StateCode: state, Type: ct.Name, Cause: errors.New("status 500")}
	}
	return energy.RawPayload{Body: []byte(body)}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type failingStates struct{}

func (failingStates) ListStates(context.Context) ([]energy.StateRef, error) {
	return nil, errors.New("connection refused")
}

func seededStore(codes ...string) *store.MemoryStore {
	s := store.NewMemoryStore()
	refs := make([]energy.StateRef, 0, len(codes))
	for _, c := range codes {
		refs = append(refs, energy.StateRef{Code: c, Name: c, Region: "PADD_5"})
	}
	if _, err := s.SeedStates(context.Background(), refs); err != nil {
		panic(err)
	}
	return s
}

func seriesBody(points ...[2]string) string {
	out := `{"series":[{"data":[`
	for i, p := range points {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("[%q,%q]", p[0], p[1])
	}
	return out + `]}]}`
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)
}
