package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/wutron/dlcoal/internal/storage"
	"github.com/wutron/dlcoal/pkg/dlcoal"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "recon":
		return runRecon(ctx, args[1:])
	case "sim":
		return runSim(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "candidates":
		return runCandidates(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRecon(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recon", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML run configuration")
	stree := fs.String("stree", "", "species tree file (newick)")
	smap := fs.String("smap", "", "gene-to-species map file")
	out := fs.String("out", "", "output fileset prefix")
	popsize := fs.Float64("popsize", 0, "effective population size")
	duprate := fs.Float64("duprate", 0, "duplications per gene per time unit")
	lossrate := fs.Float64("lossrate", 0, "losses per gene per time unit")
	pretime := fs.Float64("pretime", 0, "fixed time above the species root")
	premean := fs.Float64("premean", 0, "mean time above the species root")
	nsearch := fs.Int("nsearch", 0, "search iterations")
	nsamples := fs.Int("nsamples", 0, "duplication time samples per candidate")
	ncoalrecons := fs.Int("ncoalrecons", 0, "coalescent mapping variants per topology")
	maxdoom := fs.Int("maxdoom", 0, "maximum hidden doomed lineages")
	seed := fs.Int64("seed", 0, "random seed (0 picks one)")
	workers := fs.Int("workers", 0, "parallel workers for time sampling")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dlcoal.db", "sqlite database path")
	artifacts := fs.String("artifacts", "artifacts", "artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("recon requires exactly one coal tree file")
	}

	req := dlcoal.ReconRequest{}
	if *configPath != "" {
		loaded, err := loadReconRequest(*configPath)
		if err != nil {
			return err
		}
		req = loaded
	}
	req.CoalTreePath = fs.Arg(0)
	overrideString(&req.SpeciesTreePath, *stree)
	overrideString(&req.SmapPath, *smap)
	overrideString(&req.OutputPrefix, *out)
	overrideFloat(&req.Popsize, *popsize)
	overrideFloat(&req.Duprate, *duprate)
	overrideFloat(&req.Lossrate, *lossrate)
	overrideFloat(&req.Pretime, *pretime)
	overrideFloat(&req.Premean, *premean)
	overrideInt(&req.Nsearch, *nsearch)
	overrideInt(&req.Nsamples, *nsamples)
	overrideInt(&req.NumCoalRecons, *ncoalrecons)
	overrideInt(&req.Maxdoom, *maxdoom)
	overrideInt(&req.Workers, *workers)
	if *seed != 0 {
		req.Seed = *seed
	}
	req.Quiet = *quiet

	client, err := dlcoal.New(dlcoal.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: *artifacts,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Recon(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run=%s prob=%g out=%s artifacts=%s\n",
		summary.RunID, summary.Prob, summary.OutputPrefix, summary.ArtifactsDir)
	return nil
}

func runSim(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sim", flag.ContinueOnError)
	stree := fs.String("stree", "", "species tree file (newick)")
	out := fs.String("out", "", "output directory")
	nsims := fs.Int("nsims", 1, "number of gene families to sample")
	start := fs.Int("start", 0, "first family index")
	popsize := fs.Float64("popsize", 0, "effective population size")
	duprate := fs.Float64("duprate", 0, "duplications per gene per time unit")
	lossrate := fs.Float64("lossrate", 0, "losses per gene per time unit")
	minsize := fs.Int("minsize", 0, "minimum surviving locus tree leaves")
	seed := fs.Int64("seed", 0, "random seed (0 picks one)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := dlcoal.New(dlcoal.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Simulate(ctx, dlcoal.SimRequest{
		SpeciesTreePath: *stree,
		OutDir:          *out,
		Nsims:           *nsims,
		Start:           *start,
		Popsize:         *popsize,
		Duprate:         *duprate,
		Lossrate:        *lossrate,
		Minsize:         *minsize,
		Seed:            *seed,
	})
	if err != nil {
		return err
	}
	fmt.Printf("simulated %d families under %s\n", len(summary.Prefixes), summary.OutDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dlcoal.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := dlcoal.New(dlcoal.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s\tstarted=%s\tnsearch=%d\tprob=%g\n",
			run.RunID, run.StartedAt, run.Nsearch, run.BestProb)
	}
	return nil
}

func runCandidates(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("candidates", flag.ContinueOnError)
	runID := fs.String("run", "", "run id")
	limit := fs.Int("limit", 0, "maximum candidates to print (0 = all)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dlcoal.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := dlcoal.New(dlcoal.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	cands, err := client.Candidates(ctx, *runID, *limit)
	if err != nil {
		return err
	}
	for _, cand := range cands {
		mark := " "
		if cand.Accepted {
			mark = "*"
		}
		fmt.Printf("%s %4d  %g\t%s\n", mark, cand.Iter, cand.Prob, cand.Topology)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	out := fs.String("out", "", "destination directory")
	artifacts := fs.String("artifacts", "artifacts", "artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := dlcoal.New(dlcoal.Options{StoreKind: "memory", ArtifactsDir: *artifacts})
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Export(ctx, dlcoal.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *out,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", summary.RunID, summary.Directory)
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func usageError(msg string) error {
	return errors.New(msg + `

usage: dlcoalctl <command> [flags]

commands:
  recon       reconcile a gene tree against a species tree
  sim         sample gene families from the generative model
  runs        list stored reconciliation runs
  candidates  print the candidate trace of a run
  export      copy a run's artifacts to a directory`)
}
