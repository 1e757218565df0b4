package recon

import (
	"fmt"
	"math"
	"sort"

	xrand "golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/wutron/dlcoal/internal/coal"
	"github.com/wutron/dlcoal/internal/duploss"
	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

const (
	defaultMaxdoom  = 20
	defaultNsamples = 100
)

// DupLossPrior scores a locus tree topology against the species tree
// under a birth-death model.
type DupLossPrior interface {
	Name() string
	LogPrior(ltree, stree *tree.Tree, lrecon phylo.Recon, levents map[*tree.Node]string, birth, death float64, maxdoom int) (float64, error)
}

// DupTimeSampler draws a full timestamp assignment for a locus tree.
// A custom sampler used with Workers > 1 must be safe for concurrent
// use; the default sampler is rebuilt per worker.
type DupTimeSampler interface {
	SampleTimes(ltree, stree *tree.Tree, lrecon phylo.Recon, levents map[*tree.Node]string) (map[*tree.Node]float64, error)
}

// BoundedCoalFunc returns the log probability that the lineages
// entering a subtree fully coalesce by time T.
type BoundedCoalFunc func(geneCounts map[string]int, T float64, htree *tree.Tree, popsizes map[string]float64, sroot *tree.Node, sleaves map[*tree.Node]bool, stimes map[*tree.Node]float64) float64

// Breakdown itemizes a reconciliation score.
type Breakdown struct {
	Prob          float64
	DuplossProb   float64
	DaughtersProb float64
	CoalProb      float64
}

// ProbModelConfig configures scoring. Zero values select defaults:
// maxdoom 20, 100 time samples, serial evaluation, the birth-death
// topology prior, the conditioned birth waiting-time sampler, and the
// bounded multispecies coalescent CDF. Exactly one of Pretime and
// Premean must be positive.
type ProbModelConfig struct {
	SpeciesTree *tree.Tree
	Popsizes    coal.PopsizeSpec
	Duprate     float64
	Lossrate    float64
	Pretime     float64
	Premean     float64
	Maxdoom     int
	Nsamples    int
	Workers     int
	Prior       DupLossPrior
	Times       DupTimeSampler
	BoundedCoal BoundedCoalFunc
	Rand        *xrand.Rand
}

// ProbModel scores reconciliations: the birth-death prior of the locus
// tree, a half per duplication for the daughter choice, and the mean
// coalescent likelihood over sampled duplication timings.
type ProbModel struct {
	stree     *tree.Tree
	spopsizes map[string]float64

	duprate  float64
	lossrate float64
	pretime  float64
	premean  float64
	maxdoom  int
	nsamples int
	workers  int

	prior       DupLossPrior
	customTimes DupTimeSampler
	boundedCoal BoundedCoalFunc
	rng         *xrand.Rand
}

func NewProbModel(cfg ProbModelConfig) (*ProbModel, error) {
	if cfg.SpeciesTree == nil {
		return nil, fmt.Errorf("prob model: species tree is required")
	}
	spopsizes, err := coal.InitPopsizes(cfg.SpeciesTree, cfg.Popsizes)
	if err != nil {
		return nil, err
	}
	if cfg.Maxdoom == 0 {
		cfg.Maxdoom = defaultMaxdoom
	}
	if cfg.Nsamples == 0 {
		cfg.Nsamples = defaultNsamples
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.Prior == nil {
		cfg.Prior = duploss.TopologyPrior{Maxdoom: cfg.Maxdoom}
	}
	if cfg.BoundedCoal == nil {
		cfg.BoundedCoal = coal.CdfMrcaBoundedMulticoal
	}
	if cfg.Rand == nil {
		cfg.Rand = xrand.New(xrand.NewSource(xrand.Uint64()))
	}
	if cfg.Times == nil {
		// Validate the pretime/premean contract up front.
		if _, err := duploss.NewTimeSampler(cfg.Duprate, cfg.Lossrate, cfg.Pretime, cfg.Premean, cfg.Rand); err != nil {
			return nil, err
		}
	}
	return &ProbModel{
		stree:       cfg.SpeciesTree,
		spopsizes:   spopsizes,
		duprate:     cfg.Duprate,
		lossrate:    cfg.Lossrate,
		pretime:     cfg.Pretime,
		premean:     cfg.Premean,
		maxdoom:     cfg.Maxdoom,
		nsamples:    cfg.Nsamples,
		workers:     cfg.Workers,
		prior:       cfg.Prior,
		customTimes: cfg.Times,
		boundedCoal: cfg.BoundedCoal,
		rng:         cfg.Rand,
	}, nil
}

// Score returns the log probability of a reconciliation of coalTree.
// In serial mode the locus tree's branch lengths are overwritten by
// each time sample; callers that need them must keep their own copy.
func (m *ProbModel) Score(coalTree *tree.Tree, r *Recon) (float64, Breakdown, error) {
	popsizes := make(map[string]float64, len(r.LocusTree.Nodes))
	for _, node := range r.LocusTree.Preorder() {
		popsizes[node.Name] = m.spopsizes[r.LocusRecon[node].Name]
	}

	dlProb, err := m.prior.LogPrior(r.LocusTree, m.stree, r.LocusRecon, r.LocusEvents, m.duprate, m.lossrate, m.maxdoom)
	if err != nil {
		return 0, Breakdown{}, err
	}
	dProb := float64(phylo.CountDup(r.LocusEvents)) * math.Log(0.5)

	var total float64
	if m.workers <= 1 {
		total, err = m.sumCoalLik(coalTree, r.CoalRecon, r.LocusTree, r.LocusRecon, r.LocusEvents, r.Daughters, popsizes, m.nsamples, m.rng)
	} else {
		total, err = m.sumCoalLikParallel(coalTree, r, popsizes)
	}
	if err != nil {
		return 0, Breakdown{}, err
	}
	coalProb := coal.SafeLog(total / float64(m.nsamples))

	b := Breakdown{
		Prob:          dlProb + dProb + coalProb,
		DuplossProb:   dlProb,
		DaughtersProb: dProb,
		CoalProb:      coalProb,
	}
	return b.Prob, b, nil
}

// sumCoalLik accumulates exp(coal log likelihood) over nsamples
// duplication timings drawn with rng.
func (m *ProbModel) sumCoalLik(coalTree *tree.Tree, coalRecon phylo.Recon, ltree *tree.Tree, lrecon phylo.Recon, levents map[*tree.Node]string, daughters map[*tree.Node]bool, popsizes map[string]float64, nsamples int, rng *xrand.Rand) (float64, error) {
	sampler := m.customTimes
	if sampler == nil {
		s, err := duploss.NewTimeSampler(m.duprate, m.lossrate, m.pretime, m.premean, rng)
		if err != nil {
			return 0, err
		}
		sampler = s
	}

	total := 0.0
	for i := 0; i < nsamples; i++ {
		times, err := sampler.SampleTimes(ltree, m.stree, lrecon, levents)
		if err != nil {
			return 0, err
		}
		ltree.SetDistsFromTimestamps(times)
		lnp := m.locusCoalLogLik(coalTree, coalRecon, ltree, popsizes, daughters, times)
		total += math.Exp(lnp)
	}
	return total, nil
}

func (m *ProbModel) sumCoalLikParallel(coalTree *tree.Tree, r *Recon, popsizes map[string]float64) (float64, error) {
	chunks := splitSamples(m.nsamples, m.workers)
	partials := make([]float64, len(chunks))
	seeds := make([]uint64, len(chunks))
	for i := range seeds {
		seeds[i] = m.rng.Uint64()
	}

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i, n := range chunks {
		i, n := i, n
		g.Go(func() error {
			ltree, nodes := r.LocusTree.CopyWithMap()
			coalRecon := remapValues(r.CoalRecon, nodes)
			lrecon := remapKeys(r.LocusRecon, nodes)
			levents := make(map[*tree.Node]string, len(r.LocusEvents))
			for k, v := range r.LocusEvents {
				levents[nodes[k]] = v
			}
			daughters := make(map[*tree.Node]bool, len(r.Daughters))
			for k := range r.Daughters {
				daughters[nodes[k]] = true
			}
			rng := xrand.New(xrand.NewSource(seeds[i]))
			total, err := m.sumCoalLik(coalTree, coalRecon, ltree, lrecon, levents, daughters, popsizes, n, rng)
			if err != nil {
				return err
			}
			partials[i] = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0.0
	for _, p := range partials {
		total += p
	}
	return total, nil
}

// locusCoalLogLik is the coalescent log likelihood of the coalescent
// tree within the locus tree, with daughter branches conditioned on
// full coalescence by their top.
func (m *ProbModel) locusCoalLogLik(coalTree *tree.Tree, coalRecon phylo.Recon, ltree *tree.Tree, popsizes map[string]float64, daughters map[*tree.Node]bool, times map[*tree.Node]float64) float64 {
	lineages, err := coal.CountLineagesPerBranch(coalTree, coalRecon, ltree)
	if err != nil {
		return math.Inf(-1)
	}
	lnp := coal.ProbMulticoalReconTopology(coalTree, coalRecon, ltree, popsizes, lineages)
	if math.IsInf(lnp, -1) {
		return lnp
	}

	for _, daughter := range sortedNodes(daughters) {
		geneCounts := make(map[string]int)
		leaves := make(map[*tree.Node]bool)
		daughterBoundary(daughter, daughters, lineages, geneCounts, leaves)
		p := m.boundedCoal(geneCounts, times[daughter.Parent], ltree, popsizes, daughter, leaves, times)
		if math.IsInf(p, -1) {
			return math.Inf(-1)
		}
		lnp -= p
	}
	return lnp
}

// daughterBoundary collects the boundary of a daughter subtree: locus
// leaves contribute their bottom lineage count, nested daughter
// branches contribute a single already-coalesced lineage.
func daughterBoundary(node *tree.Node, daughters map[*tree.Node]bool, lineages map[*tree.Node]coal.Lineages, geneCounts map[string]int, leaves map[*tree.Node]bool) {
	if node.IsLeaf() {
		geneCounts[node.Name] = lineages[node].Bottom
		leaves[node] = true
		return
	}
	for _, child := range node.Children {
		if daughters[child] {
			geneCounts[child.Name] = 1
			leaves[child] = true
		} else {
			daughterBoundary(child, daughters, lineages, geneCounts, leaves)
		}
	}
}

func sortedNodes(set map[*tree.Node]bool) []*tree.Node {
	nodes := make([]*tree.Node, 0, len(set))
	for n := range set {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}

func splitSamples(n, workers int) []int {
	if workers > n {
		workers = n
	}
	chunks := make([]int, workers)
	for i := range chunks {
		chunks[i] = n / workers
	}
	for i := 0; i < n%workers; i++ {
		chunks[i]++
	}
	return chunks
}

func remapValues(m phylo.Recon, nodes map[*tree.Node]*tree.Node) phylo.Recon {
	out := make(phylo.Recon, len(m))
	for k, v := range m {
		out[k] = nodes[v]
	}
	return out
}

func remapKeys(m phylo.Recon, nodes map[*tree.Node]*tree.Node) phylo.Recon {
	out := make(phylo.Recon, len(m))
	for k, v := range m {
		out[nodes[k]] = v
	}
	return out
}
