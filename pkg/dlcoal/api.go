// Package dlcoal reconciles gene trees against a species tree under
// duplication, loss, and incomplete lineage sorting. A gene tree is
// explained by a latent locus tree: duplications and losses shape the
// locus tree, and the gene tree coalesces inside it.
package dlcoal

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	xrand "golang.org/x/exp/rand"

	"github.com/wutron/dlcoal/internal/coal"
	"github.com/wutron/dlcoal/internal/model"
	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/recon"
	"github.com/wutron/dlcoal/internal/reconio"
	"github.com/wutron/dlcoal/internal/sim"
	"github.com/wutron/dlcoal/internal/stats"
	"github.com/wutron/dlcoal/internal/storage"
	"github.com/wutron/dlcoal/internal/tree"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "dlcoal.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
}

type Client struct {
	store       storage.Store
	initialized bool

	artifactsDir string
	exportsDir   string
}

// ReconRequest names the inputs of one reconciliation search. Tree and
// map inputs are file paths; zero-valued numeric fields take the model
// defaults.
type ReconRequest struct {
	CoalTreePath    string
	SpeciesTreePath string
	SmapPath        string
	OutputPrefix    string

	Popsize       float64
	Duprate       float64
	Lossrate      float64
	Pretime       float64
	Premean       float64
	Nsearch       int
	Nsamples      int
	NumCoalRecons int
	ReconDepth    int
	Maxdoom       int
	Seed          int64
	Workers       int
	Quiet         bool
}

type ReconSummary struct {
	RunID        string
	Prob         float64
	OutputPrefix string
	ArtifactsDir string
	Iterations   int
}

type SimRequest struct {
	SpeciesTreePath string
	OutDir          string
	Nsims           int
	Start           int
	Popsize         float64
	Duprate         float64
	Lossrate        float64
	Minsize         int
	Seed            int64
}

type SimSummary struct {
	OutDir   string
	Prefixes []string
}

type RunItem struct {
	RunID      string
	StartedAt  string
	FinishedAt string
	Nsearch    int
	BestProb   float64
}

type CandidateItem struct {
	Iter     int
	Accepted bool
	Prob     float64
	Topology string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Recon is the one-call form: a throwaway in-memory client runs the
// search and the results land in the output fileset and artifacts.
func Recon(ctx context.Context, req ReconRequest) (ReconSummary, error) {
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		return ReconSummary{}, err
	}
	defer client.Close()
	return client.Recon(ctx, req)
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Recon runs the search and persists the trace, the best
// reconciliation, the output fileset, and the run artifacts.
func (c *Client) Recon(ctx context.Context, req ReconRequest) (ReconSummary, error) {
	if req.CoalTreePath == "" || req.SpeciesTreePath == "" {
		return ReconSummary{}, errors.New("coal tree and species tree paths are required")
	}
	if req.Nsearch <= 0 {
		req.Nsearch = 1000
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	if req.OutputPrefix == "" {
		req.OutputPrefix = strings.TrimSuffix(req.CoalTreePath, ".tree")
	}

	coalTree, err := readTreeFile(req.CoalTreePath)
	if err != nil {
		return ReconSummary{}, err
	}
	stree, err := readTreeFile(req.SpeciesTreePath)
	if err != nil {
		return ReconSummary{}, err
	}
	g2s := phylo.DefaultGene2Species
	if req.SmapPath != "" {
		f, err := os.Open(req.SmapPath)
		if err != nil {
			return ReconSummary{}, err
		}
		g2s, err = phylo.ReadGeneToSpecies(f)
		f.Close()
		if err != nil {
			return ReconSummary{}, err
		}
	}

	if err := c.ensureStore(ctx); err != nil {
		return ReconSummary{}, err
	}

	proposer, err := recon.NewProposer(recon.ProposerConfig{
		CoalTree:      coalTree,
		SpeciesTree:   stree,
		Gene2Species:  g2s,
		NumCoalRecons: req.NumCoalRecons,
		ReconDepth:    req.ReconDepth,
		Rand:          rand.New(rand.NewSource(req.Seed)),
	})
	if err != nil {
		return ReconSummary{}, err
	}
	probModel, err := recon.NewProbModel(recon.ProbModelConfig{
		SpeciesTree: stree,
		Popsizes:    coal.PopsizeSpec{Scalar: req.Popsize},
		Duprate:     req.Duprate,
		Lossrate:    req.Lossrate,
		Pretime:     req.Pretime,
		Premean:     req.Premean,
		Maxdoom:     req.Maxdoom,
		Nsamples:    req.Nsamples,
		Workers:     req.Workers,
		Rand:        xrand.New(xrand.NewSource(uint64(req.Seed))),
	})
	if err != nil {
		return ReconSummary{}, err
	}

	runID := uuid.New().String()
	started := time.Now().UTC()
	run := model.RunRecord{
		VersionedRecord: versioned(),
		ID:              runID,
		StartedAt:       started.Format(time.RFC3339Nano),
		CoalTree:        coalTree.Newick(),
		Nsearch:         req.Nsearch,
		Nsamples:        req.Nsamples,
		Duprate:         req.Duprate,
		Lossrate:        req.Lossrate,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return ReconSummary{}, err
	}

	trace := &traceSink{}
	driver := &recon.Reconciler{
		Proposer: proposer,
		Model:    probModel,
		RunID:    runID,
		Sink:     recon.TeeSink{&storeSink{ctx: ctx, store: c.store}, trace},
	}
	if !req.Quiet {
		driver.Progress = os.Stderr
	}

	prob, best, err := driver.Run(req.Nsearch)
	if err != nil {
		return ReconSummary{}, err
	}

	bestRec := model.BestRecord{
		VersionedRecord: versioned(),
		RunID:           runID,
		Prob:            model.LogProb(prob),
		Recon:           best.Dict(),
	}
	if err := c.store.SaveBest(ctx, bestRec); err != nil {
		return ReconSummary{}, err
	}
	run.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
	run.BestProb = model.LogProb(prob)
	if err := c.store.SaveRun(ctx, run); err != nil {
		return ReconSummary{}, err
	}

	if err := reconio.Write(req.OutputPrefix, coalTree, best); err != nil {
		return ReconSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         runID,
			CoalTreePath:  req.CoalTreePath,
			SpeciesTree:   stree.Newick(),
			SmapPath:      req.SmapPath,
			Popsize:       req.Popsize,
			Duprate:       req.Duprate,
			Lossrate:      req.Lossrate,
			Pretime:       req.Pretime,
			Premean:       req.Premean,
			Nsearch:       req.Nsearch,
			Nsamples:      req.Nsamples,
			NumCoalRecons: req.NumCoalRecons,
			Maxdoom:       req.Maxdoom,
			Seed:          req.Seed,
			Workers:       req.Workers,
		},
		Trace:     trace.steps,
		BestProb:  model.LogProb(prob),
		BestRecon: bestRec.Recon,
	})
	if err != nil {
		return ReconSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:        runID,
		Nsearch:      req.Nsearch,
		Duprate:      req.Duprate,
		Lossrate:     req.Lossrate,
		Seed:         req.Seed,
		BestProb:     model.LogProb(prob),
		CreatedAtUTC: started.Format(time.RFC3339Nano),
	}); err != nil {
		return ReconSummary{}, err
	}

	return ReconSummary{
		RunID:        runID,
		Prob:         prob,
		OutputPrefix: req.OutputPrefix,
		ArtifactsDir: filepath.Clean(runDir),
		Iterations:   len(trace.steps),
	}, nil
}

// Simulate samples gene families from the generative model and writes
// one fileset per family.
func (c *Client) Simulate(_ context.Context, req SimRequest) (SimSummary, error) {
	if req.SpeciesTreePath == "" {
		return SimSummary{}, errors.New("species tree path is required")
	}
	if req.OutDir == "" {
		return SimSummary{}, errors.New("output directory is required")
	}
	if req.Nsims <= 0 {
		req.Nsims = 1
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	stree, err := readTreeFile(req.SpeciesTreePath)
	if err != nil {
		return SimSummary{}, err
	}
	prefixes, err := sim.RunBatch(sim.BatchConfig{
		Config: sim.Config{
			SpeciesTree: stree,
			Popsizes:    coal.PopsizeSpec{Scalar: req.Popsize},
			Duprate:     req.Duprate,
			Lossrate:    req.Lossrate,
			Minsize:     req.Minsize,
			Rand:        xrand.New(xrand.NewSource(uint64(req.Seed))),
		},
		OutDir: req.OutDir,
		Nsims:  req.Nsims,
		Start:  req.Start,
	})
	if err != nil {
		return SimSummary{}, err
	}
	return SimSummary{OutDir: req.OutDir, Prefixes: prefixes}, nil
}

func (c *Client) Runs(ctx context.Context) ([]RunItem, error) {
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunItem{
			RunID:      run.ID,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Nsearch:    run.Nsearch,
			BestProb:   float64(run.BestProb),
		})
	}
	return out, nil
}

func (c *Client) Candidates(ctx context.Context, runID string, limit int) ([]CandidateItem, error) {
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	cands, ok, err := c.store.GetCandidates(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no candidates for run id: %s", runID)
	}
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]CandidateItem, 0, len(cands))
	for _, cand := range cands {
		out = append(out, CandidateItem{
			Iter:     cand.Iter,
			Accepted: cand.Accepted,
			Prob:     float64(cand.Prob),
			Topology: cand.LocusTree,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	dir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir)}, nil
}

func readTreeFile(path string) (*tree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := tree.ParseNewick(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func versioned() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
}

// storeSink persists candidates as they are scored.
type storeSink struct {
	ctx   context.Context
	store storage.Store
}

func (s *storeSink) Log(rec model.CandidateRecord) error {
	rec.VersionedRecord = versioned()
	return s.store.AppendCandidate(s.ctx, rec)
}

// traceSink keeps the acceptance trace for the artifacts.
type traceSink struct {
	steps []stats.SearchStep
}

func (t *traceSink) Log(rec model.CandidateRecord) error {
	t.steps = append(t.steps, stats.SearchStep{
		Iter:     rec.Iter,
		Prob:     rec.Prob,
		Accepted: rec.Accepted,
	})
	return nil
}
