package energy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// PairStatus is the lifecycle state of one (state, commodity type) pair.
// A pair moves Pending -> Fetched -> Normalized or Pending -> Failed.
type PairStatus string

const (
	PairPending    PairStatus = "pending"
	PairFetched    PairStatus = "fetched"
	PairNormalized PairStatus = "normalized"
	PairFailed     PairStatus = "failed"
)

// PairResult reports how a single pair ended.
type PairResult struct {
	StateCode string
	Type      string
	Status    PairStatus
	Records   int
	Skipped   int
	Err       error
}

// RunResult is the aggregate outcome of one pipeline run for a family.
type RunResult struct {
	Family  Family
	States  int
	Records []CanonicalRecord
	Pairs   []PairResult
}

// Failed counts pairs that ended with a transport failure.
func (r *RunResult) Failed() int {
	n := 0
	for _, p := range r.Pairs {
		if p.Status == PairFailed {
			n++
		}
	}
	return n
}

// Skipped counts malformed data points across all pairs.
func (r *RunResult) Skipped() int {
	n := 0
	for _, p := range r.Pairs {
		n += p.Skipped
	}
	return n
}

// PipelineConfig tunes a Pipeline. Workers <= 1 runs pairs sequentially.
type PipelineConfig struct {
	Workers        int
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Pipeline drives fetch and normalize for every state and commodity type of a family.
type Pipeline struct {
	directory *StateDirectory
	client    SourceClient
	catalogue Catalogue
	cfg       PipelineConfig
}

// NewPipeline creates a new Pipeline.
func NewPipeline(directory *StateDirectory, client SourceClient, catalogue Catalogue, cfg PipelineConfig) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{
		directory: directory,
		client:    client,
		catalogue: catalogue,
		cfg:       cfg,
	}
}

type pairJob struct {
	stateCode string
	stateID   int
	ct        CommodityType
	window    Window
}

// Run loads the directory once and processes every pair. Only an unknown
// family or an unreachable directory fail the run; transport failures are
// logged and count as zero records for their pair.
func (p *Pipeline) Run(ctx context.Context, family Family) (*RunResult, error) {
	types, err := p.catalogue.TypesFor(family)
	if err != nil {
		return nil, err
	}

	mapping, err := p.directory.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Family: family, States: len(mapping)}
	if len(mapping) == 0 {
		log.Printf("INFO: %s state directory is empty; nothing to ingest for %s", runTag(ctx), family)
		return result, nil
	}

	codes := make([]string, 0, len(mapping))
	for code := range mapping {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	now := p.cfg.Now()
	jobs := make([]pairJob, 0, len(codes)*len(types))
	for _, code := range codes {
		for _, ct := range types {
			jobs = append(jobs, pairJob{
				stateCode: code,
				stateID:   mapping[code],
				ct:        ct,
				window:    ct.Window(now),
			})
		}
	}

	log.Printf("INFO: %s ingesting %s: %d states x %d types with %d workers",
		runTag(ctx), family, len(codes), len(types), p.cfg.Workers)

	// Each worker owns its slot, so no lock is needed until the merge below.
	pairs := make([]PairResult, len(jobs))
	partial := make([][]CanonicalRecord, len(jobs))
	done := atomic.NewInt64(0)

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			pairs[i], partial[i] = p.runPair(ctx, job)
			log.Printf("DEBUG: %s %d/%d pairs complete", runTag(ctx), done.Inc(), len(jobs))
			return nil
		})
	}
	_ = g.Wait()

	result.Pairs = pairs
	for _, recs := range partial {
		result.Records = append(result.Records, recs...)
	}
	return result, nil
}

func (p *Pipeline) runPair(ctx context.Context, job pairJob) (PairResult, []CanonicalRecord) {
	res := PairResult{
		StateCode: job.stateCode,
		Type:      job.ct.Name,
		Status:    PairPending,
	}

	fetchCtx := ctx
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	payload, err := p.client.Fetch(fetchCtx, job.ct, job.stateCode, job.window)
	if err != nil {
		var tf *TransportFailure
		if !errors.As(err, &tf) {
			tf = &TransportFailure{StateCode: job.stateCode, Type: job.ct.Name, Cause: err}
		}
		res.Status = PairFailed
		res.Err = tf
		log.Printf("ERROR: %s fetch failed for state=%s type=%s: %v", runTag(ctx), job.stateCode, job.ct.Name, tf.Cause)
		return res, nil
	}
	res.Status = PairFetched

	n := Normalizer{OnSkip: func(err error) {
		res.Skipped++
		log.Printf("DEBUG: %s skipped data point for state=%s type=%s: %v", runTag(ctx), job.stateCode, job.ct.Name, err)
	}}

	var recs []CanonicalRecord
	for rec := range n.Normalize(&payload, job.stateID, job.ct) {
		recs = append(recs, rec)
	}

	res.Records = len(recs)
	res.Status = PairNormalized
	return res, recs
}

type runIDKey struct{}

// WithRunID attaches a run identifier used to tag log lines.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run identifier attached to ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func runTag(ctx context.Context) string {
	if id := RunID(ctx); id != "" {
		return fmt.Sprintf("[run %s]", id)
	}
	return "[run]"
}
