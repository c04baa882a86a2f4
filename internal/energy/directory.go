package energy

import (
	"context"
	"fmt"
	"strings"
)

// StateDirectory resolves state codes to the identifiers owned by the states table.
type StateDirectory struct {
	source StateSource
	only   map[string]struct{}
}

// NewStateDirectory creates a directory over source. When only is non-empty the
// mapping is restricted to those state codes.
func NewStateDirectory(source StateSource, only ...string) *StateDirectory {
	d := &StateDirectory{source: source}
	for _, code := range only {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if d.only == nil {
			d.only = make(map[string]struct{})
		}
		d.only[code] = struct{}{}
	}
	return d
}

// Load returns state_code -> state_id. An empty table yields an empty map, not an error.
func (d *StateDirectory) Load(ctx context.Context) (map[string]int, error) {
	if d.source == nil {
		return nil, fmt.Errorf("%w: no backing store", ErrDirectoryUnavailable)
	}

	refs, err := d.source.ListStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	mapping := make(map[string]int, len(refs))
	for _, ref := range refs {
		if d.only != nil {
			if _, ok := d.only[ref.Code]; !ok {
				continue
			}
		}
		mapping[ref.Code] = ref.ID
	}
	return mapping, nil
}
