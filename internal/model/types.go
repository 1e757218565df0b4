package model

import (
	"fmt"
	"math"
	"strconv"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// LogProb is a log probability that survives JSON round-trips even
// when infinite. encoding/json rejects IEEE infinities, so -Inf is
// written as the string "-Inf" (and +Inf as "+Inf").
type LogProb float64

func (p LogProb) MarshalJSON() ([]byte, error) {
	f := float64(p)
	if math.IsInf(f, -1) {
		return []byte(`"-Inf"`), nil
	}
	if math.IsInf(f, 1) {
		return []byte(`"+Inf"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (p *LogProb) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"-Inf"`:
		*p = LogProb(math.Inf(-1))
		return nil
	case `"+Inf"`:
		*p = LogProb(math.Inf(1))
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("log prob: %w", err)
	}
	*p = LogProb(f)
	return nil
}

// ReconDict is the portable form of a three-tree reconciliation. Trees
// are one-line newick strings; maps are name pairs.
type ReconDict struct {
	CoalRecon   [][2]string `json:"coal_recon"`
	LocusTree   string      `json:"locus_tree"`
	LocusRecon  [][2]string `json:"locus_recon"`
	LocusEvents [][2]string `json:"locus_events"`
	Daughters   []string    `json:"daughters"`
}

// CandidateRecord is one scored proposal in a search run.
type CandidateRecord struct {
	VersionedRecord
	RunID         string      `json:"run_id"`
	Iter          int         `json:"iter"`
	Accepted      bool        `json:"accepted"`
	Prob          LogProb     `json:"prob"`
	DuplossProb   LogProb     `json:"duploss_prob"`
	DaughtersProb LogProb     `json:"daughters_prob"`
	CoalProb      LogProb     `json:"coal_prob"`
	CoalRecon     [][2]string `json:"coal_recon"`
	LocusTree     string      `json:"locus_tree"`
	LocusRecon    [][2]string `json:"locus_recon"`
	LocusEvents   [][2]string `json:"locus_events"`
	Daughters     []string    `json:"daughters"`
}

// RunRecord describes one reconciliation search.
type RunRecord struct {
	VersionedRecord
	ID         string  `json:"id"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at"`
	CoalTree   string  `json:"coal_tree"`
	Nsearch    int     `json:"nsearch"`
	Nsamples   int     `json:"nsamples"`
	Duprate    float64 `json:"duprate"`
	Lossrate   float64 `json:"lossrate"`
	BestProb   LogProb `json:"best_prob"`
}

// BestRecord is the maximum a posteriori reconciliation of a run.
type BestRecord struct {
	VersionedRecord
	RunID string    `json:"run_id"`
	Prob  LogProb   `json:"prob"`
	Recon ReconDict `json:"recon"`
}
