package recon

import (
	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

const defaultMaxTries = 5

// UniqueSearch wraps a topology search and filters out proposals whose
// canonical topology has already been visited. After maxTries repeats
// in a row it gives up and passes the duplicate through, so the search
// can never stall.
type UniqueSearch struct {
	inner    phylo.TreeSearch
	seen     map[string]bool
	maxTries int
}

func NewUniqueSearch(inner phylo.TreeSearch) *UniqueSearch {
	return &UniqueSearch{
		inner:    inner,
		seen:     map[string]bool{phylo.HashTree(inner.Tree()): true},
		maxTries: defaultMaxTries,
	}
}

func (s *UniqueSearch) Tree() *tree.Tree { return s.inner.Tree() }

func (s *UniqueSearch) SetTree(t *tree.Tree) {
	s.inner.SetTree(t)
	s.seen[phylo.HashTree(t)] = true
}

func (s *UniqueSearch) Propose() *tree.Tree {
	var t *tree.Tree
	for i := 0; i < s.maxTries; i++ {
		t = s.inner.Propose()
		h := phylo.HashTree(t)
		if !s.seen[h] {
			s.seen[h] = true
			return t
		}
		if i < s.maxTries-1 {
			s.inner.Revert()
		}
	}
	s.seen[phylo.HashTree(t)] = true
	return t
}

func (s *UniqueSearch) Revert() { s.inner.Revert() }

func (s *UniqueSearch) Reset() {
	s.inner.Reset()
	s.seen = map[string]bool{phylo.HashTree(s.inner.Tree()): true}
}

// Seen reports how many distinct topologies have been visited.
func (s *UniqueSearch) Seen() int { return len(s.seen) }
