package energy

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Summary is the user-visible outcome of one ingestion run.
type Summary struct {
	RunID       string
	Family      Family
	States      int
	Pairs       int
	FailedPairs int
	Normalized  int
	Skipped     int
	Inserted    int
	Updated     int
	Started     time.Time
	Finished    time.Time
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"run %s %s: states=%d pairs=%d failed=%d normalized=%d skipped=%d inserted=%d updated=%d in %s",
		s.RunID, s.Family, s.States, s.Pairs, s.FailedPairs, s.Normalized, s.Skipped,
		s.Inserted, s.Updated, s.Finished.Sub(s.Started).Round(time.Millisecond),
	)
}

// Service runs the pipeline for a family and reconciles its output.
type Service struct {
	pipeline   *Pipeline
	reconciler *Reconciler
}

// NewService creates a new Service.
func NewService(pipeline *Pipeline, reconciler *Reconciler) *Service {
	return &Service{
		pipeline:   pipeline,
		reconciler: reconciler,
	}
}

// Ingest performs one full run. Per-pair failures are reflected in the summary
// only; the returned error is reserved for directory and storage faults.
func (s *Service) Ingest(ctx context.Context, family Family) (sum Summary, err error) {
	sum = Summary{
		RunID:   uuid.NewString(),
		Family:  family,
		Started: time.Now().UTC(),
	}
	defer func() { sum.Finished = time.Now().UTC() }()
	ctx = WithRunID(ctx, sum.RunID)

	result, err := s.pipeline.Run(ctx, family)
	if err != nil {
		return sum, err
	}

	sum.States = result.States
	sum.Pairs = len(result.Pairs)
	sum.FailedPairs = result.Failed()
	sum.Normalized = len(result.Records)
	sum.Skipped = result.Skipped()

	applied, err := s.reconciler.Apply(ctx, result.Records)
	if err != nil {
		return sum, err
	}
	sum.Inserted = applied.Inserted
	sum.Updated = applied.Updated

	log.Printf("INFO: %s reconciled %s: inserted=%d updated=%d skipped=%d failed_pairs=%d",
		runTag(ctx), family, sum.Inserted, sum.Updated, sum.Skipped, sum.FailedPairs)
	return sum, nil
}
