package storage

import (
	"context"

	"github.com/wutron/dlcoal/internal/model"
)

// Store persists reconciliation runs, their candidate traces, and the
// best reconciliation per run.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	AppendCandidate(ctx context.Context, cand model.CandidateRecord) error
	GetCandidates(ctx context.Context, runID string) ([]model.CandidateRecord, bool, error)
	SaveBest(ctx context.Context, best model.BestRecord) error
	GetBest(ctx context.Context, runID string) (model.BestRecord, bool, error)
}
