package phylo

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadGeneToSpecies parses a gene-to-species map: one
// "pattern<tab>species" rule per line. A pattern ending in "*" matches
// gene names by prefix; otherwise it matches exactly. Exact rules win
// over prefix rules; prefix rules apply in file order. Genes matching
// no rule map to the empty string.
func ReadGeneToSpecies(r io.Reader) (Gene2Species, error) {
	exact := make(map[string]string)
	type prefixRule struct {
		prefix  string
		species string
	}
	var prefixes []prefixRule

	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("gene map line %d: expected 2 tab-separated fields", lineno)
		}
		pattern, species := fields[0], fields[1]
		if strings.HasSuffix(pattern, "*") {
			prefixes = append(prefixes, prefixRule{strings.TrimSuffix(pattern, "*"), species})
		} else {
			exact[pattern] = species
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return func(gene string) string {
		if sp, ok := exact[gene]; ok {
			return sp
		}
		for _, rule := range prefixes {
			if strings.HasPrefix(gene, rule.prefix) {
				return rule.species
			}
		}
		return ""
	}, nil
}
