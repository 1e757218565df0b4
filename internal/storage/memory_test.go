package storage

import (
	"context"
	"math"
	"testing"

	"github.com/wutron/dlcoal/internal/model"
)

func versioned() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func TestMemoryStoreRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := model.RunRecord{
		VersionedRecord: versioned(),
		ID:              "run-1",
		StartedAt:       "2026-08-29T10:00:00Z",
		CoalTree:        "(a:1,b:1)r:0;",
		Nsearch:         50,
		Duprate:         0.4,
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if got.CoalTree != run.CoalTree || got.Nsearch != 50 || got.Duprate != 0.4 {
		t.Fatalf("unexpected run: %+v", got)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreListRunsSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, r := range []model.RunRecord{
		{VersionedRecord: versioned(), ID: "b", StartedAt: "2026-08-29T12:00:00Z"},
		{VersionedRecord: versioned(), ID: "a", StartedAt: "2026-08-29T09:00:00Z"},
		{VersionedRecord: versioned(), ID: "c", StartedAt: "2026-08-29T15:00:00Z"},
	} {
		if err := store.SaveRun(ctx, r); err != nil {
			t.Fatalf("save run %s: %v", r.ID, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("run count: got %d, want 3", len(runs))
	}
	if runs[0].ID != "a" || runs[1].ID != "b" || runs[2].ID != "c" {
		t.Fatalf("runs out of order: %v", []string{runs[0].ID, runs[1].ID, runs[2].ID})
	}
}

func TestMemoryStoreCandidates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for i := 0; i < 3; i++ {
		cand := model.CandidateRecord{
			VersionedRecord: versioned(),
			RunID:           "run-1",
			Iter:            i,
			Prob:            model.LogProb(-float64(i)),
		}
		if err := store.AppendCandidate(ctx, cand); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	cands, ok, err := store.GetCandidates(ctx, "run-1")
	if err != nil {
		t.Fatalf("get candidates: %v", err)
	}
	if !ok || len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got ok=%v len=%d", ok, len(cands))
	}
	for i, c := range cands {
		if c.Iter != i {
			t.Fatalf("candidate %d out of order: %+v", i, c)
		}
	}

	// The returned slice is a copy.
	cands[0].Iter = 99
	again, _, err := store.GetCandidates(ctx, "run-1")
	if err != nil {
		t.Fatalf("get candidates again: %v", err)
	}
	if again[0].Iter != 0 {
		t.Fatal("mutating the returned slice changed the store")
	}

	if _, ok, err := store.GetCandidates(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing candidates: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreBest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	best := model.BestRecord{
		VersionedRecord: versioned(),
		RunID:           "run-1",
		Prob:            model.LogProb(math.Inf(-1)),
		Recon:           model.ReconDict{LocusTree: "(a:1,b:1)r:0;"},
	}
	if err := store.SaveBest(ctx, best); err != nil {
		t.Fatalf("save best: %v", err)
	}

	got, ok, err := store.GetBest(ctx, "run-1")
	if err != nil {
		t.Fatalf("get best: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted best record")
	}
	if !math.IsInf(float64(got.Prob), -1) || got.Recon.LocusTree != best.Recon.LocusTree {
		t.Fatalf("unexpected best: %+v", got)
	}

	// A later save overwrites.
	best.Prob = -1
	if err := store.SaveBest(ctx, best); err != nil {
		t.Fatalf("overwrite best: %v", err)
	}
	got, _, err = store.GetBest(ctx, "run-1")
	if err != nil {
		t.Fatalf("get best after overwrite: %v", err)
	}
	if float64(got.Prob) != -1 {
		t.Fatalf("best not overwritten: %+v", got)
	}
}
