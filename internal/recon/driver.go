package recon

import (
	"fmt"
	"io"
	"math"

	"github.com/wutron/dlcoal/internal/model"
)

const defaultNsearch = 1000

// Reconciler hill-climbs over proposals, keeping the maximum a
// posteriori reconciliation seen so far. Acceptance is strict
// improvement, so ties keep the incumbent.
type Reconciler struct {
	Proposer *Proposer
	Model    *ProbModel

	// Optional.
	RunID    string
	Sink     LogSink
	Progress io.Writer
}

// Run searches nsearch candidates and returns the best score and
// record. Generated locus node names are normalized before returning.
func (r *Reconciler) Run(nsearch int) (float64, *Recon, error) {
	if nsearch <= 0 {
		nsearch = defaultNsearch
	}
	sink := r.Sink
	if sink == nil {
		sink = NopSink{}
	}

	proposal, err := r.Proposer.InitProposal()
	if err != nil {
		return 0, nil, err
	}
	maxp := math.Inf(-1)
	maxrecon := proposal.Copy()

	for i := 0; i < nsearch; i++ {
		if r.Progress != nil && i%10 == 0 {
			fmt.Fprintf(r.Progress, "search %d\n", i)
		}
		p, bd, err := r.Model.Score(r.Proposer.coalTree, proposal)
		if err != nil {
			return 0, nil, err
		}
		accepted := p > maxp
		if err := sink.Log(candidateRecord(r.RunID, i, accepted, bd, proposal)); err != nil {
			return 0, nil, err
		}
		if accepted {
			maxp = p
			maxrecon = proposal.Copy()
			r.Proposer.Accept()
		} else {
			r.Proposer.Reject()
		}
		proposal, err = r.Proposer.NextProposal()
		if err != nil {
			return 0, nil, err
		}
	}

	RenameGenerated(maxrecon.LocusTree, "n")
	return maxp, maxrecon, nil
}

func candidateRecord(runID string, iter int, accepted bool, bd Breakdown, rec *Recon) model.CandidateRecord {
	d := rec.Dict()
	return model.CandidateRecord{
		RunID:         runID,
		Iter:          iter,
		Accepted:      accepted,
		Prob:          model.LogProb(bd.Prob),
		DuplossProb:   model.LogProb(bd.DuplossProb),
		DaughtersProb: model.LogProb(bd.DaughtersProb),
		CoalProb:      model.LogProb(bd.CoalProb),
		CoalRecon:     d.CoalRecon,
		LocusTree:     d.LocusTree,
		LocusRecon:    d.LocusRecon,
		LocusEvents:   d.LocusEvents,
		Daughters:     d.Daughters,
	}
}
