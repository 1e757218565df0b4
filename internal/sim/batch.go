package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wutron/dlcoal/internal/reconio"
)

// BatchConfig drives repeated sampling into numbered filesets.
type BatchConfig struct {
	Config
	OutDir string
	Nsims  int
	Start  int
}

// RunBatch samples Nsims gene families and writes each as a fileset
// under OutDir/<i>/<i>.*, returning the fileset prefixes.
func RunBatch(cfg BatchConfig) ([]string, error) {
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("sim: output directory is required")
	}
	prefixes := make([]string, 0, cfg.Nsims)
	for i := cfg.Start; i < cfg.Start+cfg.Nsims; i++ {
		id := strconv.Itoa(i)
		dir := filepath.Join(cfg.OutDir, id)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}

		coalTree, rec, err := Sample(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("sim %d: %w", i, err)
		}
		prefix := filepath.Join(dir, id)
		if err := reconio.Write(prefix, coalTree, rec); err != nil {
			return nil, fmt.Errorf("sim %d: %w", i, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}
