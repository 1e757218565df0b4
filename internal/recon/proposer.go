package recon

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

const (
	defaultNumCoalRecons = 5
	defaultReconDepth    = 2
)

// ProposerConfig configures a reconciliation proposer. Zero values
// select defaults: an NNI search over a copy of the coalescent tree,
// five coalescent-mapping variants per topology, mapping variants that
// raise at most two nodes, and no daughter constraints.
type ProposerConfig struct {
	CoalTree      *tree.Tree
	SpeciesTree   *tree.Tree
	Gene2Species  phylo.Gene2Species
	Search        phylo.TreeSearch
	NumCoalRecons int
	ReconDepth    int
	Daughters     DaughterPolicy
	Rand          *rand.Rand
}

// Proposer walks the joint space of locus tree topologies and
// coalescent mappings. For each locus topology it first yields up to
// NumCoalRecons coalescent-mapping variants, then moves to a fresh,
// not-yet-visited topology.
type Proposer struct {
	coalTree  *tree.Tree
	stree     *tree.Tree
	g2s       phylo.Gene2Species
	search    *UniqueSearch
	numRecons int
	depth     int
	daughters DaughterPolicy

	cur         *Recon
	enum        *phylo.ReconEnum
	iCoalRecons int
	acceptLocus bool
}

func NewProposer(cfg ProposerConfig) (*Proposer, error) {
	if cfg.CoalTree == nil || cfg.SpeciesTree == nil {
		return nil, fmt.Errorf("proposer: coal tree and species tree are required")
	}
	if cfg.Gene2Species == nil {
		cfg.Gene2Species = phylo.DefaultGene2Species
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Search == nil {
		cfg.Search = phylo.NewNNISearch(cfg.CoalTree.Copy(), cfg.Rand)
	}
	if cfg.NumCoalRecons == 0 {
		cfg.NumCoalRecons = defaultNumCoalRecons
	}
	if cfg.ReconDepth == 0 {
		cfg.ReconDepth = defaultReconDepth
	}
	if cfg.Daughters == nil {
		cfg.Daughters = EmptyDaughters{}
	}
	return &Proposer{
		coalTree:  cfg.CoalTree,
		stree:     cfg.SpeciesTree,
		g2s:       cfg.Gene2Species,
		search:    NewUniqueSearch(cfg.Search),
		numRecons: cfg.NumCoalRecons,
		depth:     cfg.ReconDepth,
		daughters: cfg.Daughters,
	}, nil
}

// InitProposal resets the search and returns the LCA reconciliation of
// the starting topology.
func (p *Proposer) InitProposal() (*Recon, error) {
	p.search.Reset()
	p.iCoalRecons = 0
	cur, err := p.reconLCA(p.search.Tree().Copy())
	if err != nil {
		return nil, err
	}
	p.cur = cur
	return p.cur, nil
}

// NextProposal returns the next candidate. Coalescent-mapping variants
// revise the current record in place; topology moves build a new one.
func (p *Proposer) NextProposal() (*Recon, error) {
	if len(p.coalTree.Leaves()) <= 2 {
		return p.cur, nil
	}
	if p.iCoalRecons < p.numRecons {
		if variant, ok := p.enum.Next(); ok {
			p.iCoalRecons++
			p.cur.CoalRecon = variant
			return p.cur, nil
		}
		p.iCoalRecons = p.numRecons
	}

	// Next locus topology. An unaccepted move is undone first so the
	// search walks from the best tree found so far.
	if !p.acceptLocus {
		p.search.Revert()
	}
	p.acceptLocus = false

	ltree := p.search.Propose().Copy()
	if err := phylo.ReconRoot(ltree, p.stree, p.g2s); err != nil {
		return nil, err
	}
	RenameGenerated(ltree, "n")
	cur, err := p.reconLCA(ltree)
	if err != nil {
		return nil, err
	}
	p.cur = cur
	p.iCoalRecons = 0
	return p.cur, nil
}

// Accept marks the current locus topology as the new search origin.
func (p *Proposer) Accept() { p.acceptLocus = true }

// Reject leaves the search origin unchanged.
func (p *Proposer) Reject() {}

func (p *Proposer) reconLCA(ltree *tree.Tree) (*Recon, error) {
	locusRecon, err := phylo.Reconcile(ltree, p.stree, p.g2s)
	if err != nil {
		return nil, err
	}
	locusEvents := phylo.LabelEvents(ltree, locusRecon)
	coalRecon, err := phylo.Reconcile(p.coalTree, ltree, phylo.SelfMap)
	if err != nil {
		return nil, err
	}
	daughters, err := p.daughters.Propose(p.coalTree, coalRecon, ltree, locusEvents)
	if err != nil {
		return nil, err
	}
	if p.enum != nil {
		p.enum.Close()
	}
	p.enum = phylo.NewReconEnum(p.coalTree, ltree, coalRecon, p.depth)
	return NewRecon(coalRecon, ltree, locusRecon, locusEvents, daughters), nil
}

// RenameGenerated gives every machine-numbered node a stable prefixed
// name, keeping names unique within the tree.
func RenameGenerated(t *tree.Tree, prefix string) {
	for _, node := range t.Postorder() {
		if !isNumeric(node.Name) {
			continue
		}
		name := prefix + node.Name
		for {
			if _, ok := t.Nodes[name]; !ok {
				break
			}
			name = prefix + t.NewName()
		}
		t.Rename(node.Name, name)
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}
