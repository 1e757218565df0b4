package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/wutron/dlcoal/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig records the inputs of a reconciliation search.
type RunConfig struct {
	RunID         string  `json:"run_id"`
	CoalTreePath  string  `json:"coal_tree_path,omitempty"`
	SpeciesTree   string  `json:"species_tree,omitempty"`
	SmapPath      string  `json:"smap_path,omitempty"`
	Popsize       float64 `json:"popsize"`
	Duprate       float64 `json:"duprate"`
	Lossrate      float64 `json:"lossrate"`
	Pretime       float64 `json:"pretime,omitempty"`
	Premean       float64 `json:"premean,omitempty"`
	Nsearch       int     `json:"nsearch"`
	Nsamples      int     `json:"nsamples"`
	NumCoalRecons int     `json:"num_coal_recons"`
	Maxdoom       int     `json:"maxdoom"`
	Seed          int64   `json:"seed"`
	Workers       int     `json:"workers"`
}

// SearchStep is one point of the acceptance trace.
type SearchStep struct {
	Iter     int           `json:"iter"`
	Prob     model.LogProb `json:"prob"`
	Accepted bool          `json:"accepted"`
}

// RunArtifacts is everything written to disk for one search run.
type RunArtifacts struct {
	Config    RunConfig       `json:"config"`
	Trace     []SearchStep    `json:"trace"`
	BestProb  model.LogProb   `json:"best_prob"`
	BestRecon model.ReconDict `json:"best_recon"`
}

type RunIndexEntry struct {
	RunID        string        `json:"run_id"`
	Nsearch      int           `json:"nsearch"`
	Duprate      float64       `json:"duprate"`
	Lossrate     float64       `json:"lossrate"`
	Seed         int64         `json:"seed"`
	BestProb     model.LogProb `json:"best_prob"`
	CreatedAtUTC string        `json:"created_at_utc"`
}

// WriteRunArtifacts lays out one directory per run.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "trace.json"), artifacts.Trace); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "best.json"), map[string]any{
		"prob":  artifacts.BestProb,
		"recon": artifacts.BestRecon,
	}); err != nil {
		return "", err
	}
	if err := WriteProbSeries(runDir, artifacts.Trace); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadTrace(baseDir, runID string) ([]SearchStep, bool, error) {
	path := filepath.Join(baseDir, runID, "trace.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var trace []SearchStep
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, false, err
	}
	return trace, true, nil
}

// ExportRunArtifacts copies a run directory to outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{"config.json", "trace.json", "best.json", "prob_series.csv"} {
		srcPath := filepath.Join(src, file)
		if _, err := os.Stat(srcPath); os.IsNotExist(err) {
			continue
		} else if err != nil {
			return "", err
		}
		if err := copyFile(srcPath, filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// WriteProbSeries writes the per-iteration score as CSV for plotting.
func WriteProbSeries(runDir string, trace []SearchStep) error {
	path := filepath.Join(runDir, "prob_series.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"iter", "prob", "accepted"}); err != nil {
		return err
	}
	for _, step := range trace {
		if err := writer.Write([]string{
			strconv.Itoa(step.Iter),
			strconv.FormatFloat(float64(step.Prob), 'g', -1, 64),
			strconv.FormatBool(step.Accepted),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadProbSeries(baseDir, runID string) ([]float64, bool, error) {
	path := filepath.Join(baseDir, runID, "prob_series.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}

	var series []float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("prob series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
