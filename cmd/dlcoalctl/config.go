package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/wutron/dlcoal/pkg/dlcoal"
)

// reconConfig is the TOML form of a reconciliation request. Flags
// override any value set here.
type reconConfig struct {
	SpeciesTree   string  `toml:"species_tree"`
	Smap          string  `toml:"smap"`
	OutputPrefix  string  `toml:"output_prefix"`
	Popsize       float64 `toml:"popsize"`
	Duprate       float64 `toml:"duprate"`
	Lossrate      float64 `toml:"lossrate"`
	Pretime       float64 `toml:"pretime"`
	Premean       float64 `toml:"premean"`
	Nsearch       int     `toml:"nsearch"`
	Nsamples      int     `toml:"nsamples"`
	NumCoalRecons int     `toml:"num_coal_recons"`
	ReconDepth    int     `toml:"recon_depth"`
	Maxdoom       int     `toml:"maxdoom"`
	Seed          int64   `toml:"seed"`
	Workers       int     `toml:"workers"`
}

func loadReconRequest(path string) (dlcoal.ReconRequest, error) {
	var cfg reconConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return dlcoal.ReconRequest{}, fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return dlcoal.ReconRequest{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return dlcoal.ReconRequest{
		SpeciesTreePath: cfg.SpeciesTree,
		SmapPath:        cfg.Smap,
		OutputPrefix:    cfg.OutputPrefix,
		Popsize:         cfg.Popsize,
		Duprate:         cfg.Duprate,
		Lossrate:        cfg.Lossrate,
		Pretime:         cfg.Pretime,
		Premean:         cfg.Premean,
		Nsearch:         cfg.Nsearch,
		Nsamples:        cfg.Nsamples,
		NumCoalRecons:   cfg.NumCoalRecons,
		ReconDepth:      cfg.ReconDepth,
		Maxdoom:         cfg.Maxdoom,
		Seed:            cfg.Seed,
		Workers:         cfg.Workers,
	}, nil
}
