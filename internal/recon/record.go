package recon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wutron/dlcoal/internal/model"
	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

// Recon is a full three-tree reconciliation: the coalescent tree maps
// into the locus tree, and the locus tree maps into the species tree.
// Daughters marks locus nodes whose branch is constrained to fully
// coalesce by its top.
type Recon struct {
	CoalRecon   phylo.Recon
	LocusTree   *tree.Tree
	LocusRecon  phylo.Recon
	LocusEvents map[*tree.Node]string
	Daughters   map[*tree.Node]bool
	Data        map[string]any
}

func NewRecon(coalRecon phylo.Recon, locusTree *tree.Tree, locusRecon phylo.Recon, locusEvents map[*tree.Node]string, daughters map[*tree.Node]bool) *Recon {
	if daughters == nil {
		daughters = make(map[*tree.Node]bool)
	}
	return &Recon{
		CoalRecon:   coalRecon,
		LocusTree:   locusTree,
		LocusRecon:  locusRecon,
		LocusEvents: locusEvents,
		Daughters:   daughters,
		Data:        make(map[string]any),
	}
}

// Copy returns a record sharing tree structure but owning its maps, so
// a caller may revise one copy's coalescent mapping without disturbing
// the other.
func (r *Recon) Copy() *Recon {
	c := &Recon{
		CoalRecon:   r.CoalRecon.Copy(),
		LocusTree:   r.LocusTree,
		LocusRecon:  r.LocusRecon.Copy(),
		LocusEvents: make(map[*tree.Node]string, len(r.LocusEvents)),
		Daughters:   make(map[*tree.Node]bool, len(r.Daughters)),
		Data:        make(map[string]any, len(r.Data)),
	}
	for k, v := range r.LocusEvents {
		c.LocusEvents[k] = v
	}
	for k := range r.Daughters {
		c.Daughters[k] = true
	}
	for k, v := range r.Data {
		c.Data[k] = v
	}
	return c
}

// Dict renders the record in the portable name-pair form.
func (r *Recon) Dict() model.ReconDict {
	d := model.ReconDict{
		CoalRecon:   namePairs(r.CoalRecon),
		LocusTree:   r.LocusTree.Newick(),
		LocusRecon:  namePairs(r.LocusRecon),
		LocusEvents: eventPairs(r.LocusEvents),
	}
	for n := range r.Daughters {
		d.Daughters = append(d.Daughters, n.Name)
	}
	sort.Strings(d.Daughters)
	return d
}

func (r *Recon) String() string {
	d := r.Dict()
	var b strings.Builder
	b.WriteString("coal_recon:")
	for _, p := range d.CoalRecon {
		fmt.Fprintf(&b, " %s->%s", p[0], p[1])
	}
	fmt.Fprintf(&b, "\nlocus_tree: %s\nlocus_recon:", d.LocusTree)
	for _, p := range d.LocusRecon {
		fmt.Fprintf(&b, " %s->%s", p[0], p[1])
	}
	b.WriteString("\nlocus_events:")
	for _, p := range d.LocusEvents {
		fmt.Fprintf(&b, " %s=%s", p[0], p[1])
	}
	fmt.Fprintf(&b, "\ndaughters: %s\n", strings.Join(d.Daughters, ","))
	return b.String()
}

func namePairs(m phylo.Recon) [][2]string {
	pairs := make([][2]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, [2]string{k.Name, v.Name})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs
}

func eventPairs(m map[*tree.Node]string) [][2]string {
	pairs := make([][2]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, [2]string{k.Name, v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs
}
