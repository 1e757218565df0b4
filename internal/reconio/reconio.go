// Package reconio reads and writes reconciliation filesets. A fileset
// shares a path prefix; each part gets a fixed extension.
package reconio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/recon"
	"github.com/wutron/dlcoal/internal/tree"
)

const (
	CoalTreeExt   = ".coal.tree"
	CoalReconExt  = ".coal.recon"
	LocusTreeExt  = ".locus.tree"
	LocusReconExt = ".locus.recon"
	DaughtersExt  = ".daughters"

	noEvent = "none"
)

// Write stores a reconciled gene tree as a fileset under prefix,
// creating the prefix directory if needed.
func Write(prefix string, coalTree *tree.Tree, rec *recon.Recon) error {
	if dir := filepath.Dir(prefix); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := writeTree(prefix+CoalTreeExt, coalTree); err != nil {
		return err
	}
	d := rec.Dict()
	if err := writeReconEvents(prefix+CoalReconExt, d.CoalRecon, nil); err != nil {
		return err
	}
	if err := writeTree(prefix+LocusTreeExt, rec.LocusTree); err != nil {
		return err
	}
	events := make(map[string]string, len(d.LocusEvents))
	for _, p := range d.LocusEvents {
		events[p[0]] = p[1]
	}
	if err := writeReconEvents(prefix+LocusReconExt, d.LocusRecon, events); err != nil {
		return err
	}
	return writeLines(prefix+DaughtersExt, d.Daughters)
}

// Read loads a fileset written by Write. Node mappings are resolved
// against the parsed trees and the given species tree.
func Read(prefix string, stree *tree.Tree) (*tree.Tree, *recon.Recon, error) {
	coalTree, err := readTree(prefix + CoalTreeExt)
	if err != nil {
		return nil, nil, err
	}
	locusTree, err := readTree(prefix + LocusTreeExt)
	if err != nil {
		return nil, nil, err
	}

	coalRecon, _, err := readReconEvents(prefix+CoalReconExt, coalTree, locusTree)
	if err != nil {
		return nil, nil, err
	}
	locusRecon, locusEvents, err := readReconEvents(prefix+LocusReconExt, locusTree, stree)
	if err != nil {
		return nil, nil, err
	}

	names, err := readLines(prefix + DaughtersExt)
	if err != nil {
		return nil, nil, err
	}
	daughters := make(map[*tree.Node]bool, len(names))
	for _, name := range names {
		node, ok := locusTree.Nodes[name]
		if !ok {
			return nil, nil, fmt.Errorf("daughter %q not in locus tree", name)
		}
		daughters[node] = true
	}

	return coalTree, recon.NewRecon(coalRecon, locusTree, locusRecon, locusEvents, daughters), nil
}

func writeTree(path string, t *tree.Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.WriteNewick(f)
}

func readTree(path string) (*tree.Tree, error) {
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

// writeReconEvents writes one mapping per line as
// "name<tab>name<tab>event"; a nil events map writes "none".
func writeReconEvents(path string, pairs [][2]string, events map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range pairs {
		event := noEvent
		if events != nil {
			event = events[p[0]]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p[0], p[1], event)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return nil
}

func readReconEvents(path string, from, to *tree.Tree) (phylo.Recon, map[*tree.Node]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, nil, err
	}

	rec := make(phylo.Recon, len(lines))
	events := make(map[*tree.Node]string, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("%s: malformed mapping line %q", path, line)
		}
		src, ok := from.Nodes[fields[0]]
		if !ok {
			return nil, nil, fmt.Errorf("%s: unknown node %q", path, fields[0])
		}
		dst, ok := to.Nodes[fields[1]]
		if !ok {
			return nil, nil, fmt.Errorf("%s: unknown node %q", path, fields[1])
		}
		rec[src] = dst
		if len(fields) >= 3 && fields[2] != noEvent {
			events[src] = fields[2]
		}
	}
	return rec, events, nil
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}
