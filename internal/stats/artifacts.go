// Package stats writes planning-run artifacts: a JSON index of runs
// plus per-run reports and CSV episode exports under a base directory.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"metis/internal/model"
)

const runIndexFile = "run_index.json"

// RunArtifacts is everything persisted for one planning run.
type RunArtifacts struct {
	Summary  model.RunSummary     `json:"summary"`
	Episodes []model.EpisodeStats `json:"episodes"`
}

// WriteRunArtifacts materializes a run directory with the summary and
// per-episode records, and updates the run index. Returns the run
// directory path.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Summary.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Summary.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "summary.json"), artifacts.Summary); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "episodes.json"), artifacts.Episodes); err != nil {
		return "", err
	}
	if err := writeEpisodeCSV(filepath.Join(runDir, "episodes.csv"), artifacts.Episodes); err != nil {
		return "", err
	}
	if err := appendRunIndex(baseDir, artifacts.Summary); err != nil {
		return "", err
	}

	return runDir, nil
}

// ListRunIndex reads the run index, newest first. A missing index is an
// empty list, not an error.
func ListRunIndex(baseDir string) ([]model.RunSummary, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.RunSummary{}, nil
		}
		return nil, err
	}

	var entries []model.RunSummary
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedUnix != entries[j].CreatedUnix {
			return entries[i].CreatedUnix > entries[j].CreatedUnix
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

func appendRunIndex(baseDir string, summary model.RunSummary) error {
	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].ID == summary.ID {
			index[i] = summary
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, summary)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func writeEpisodeCSV(path string, episodes []model.EpisodeStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"episode", "reward_max", "reward_mean", "reward_min", "reward_std", "expl_mean", "action"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, ep := range episodes {
		action := make([]string, len(ep.Action))
		for i, v := range ep.Action {
			action[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row := []string{
			strconv.Itoa(ep.Episode),
			strconv.FormatFloat(ep.Reward.Max, 'g', -1, 64),
			strconv.FormatFloat(ep.Reward.Mean, 'g', -1, 64),
			strconv.FormatFloat(ep.Reward.Min, 'g', -1, 64),
			strconv.FormatFloat(ep.Reward.Std, 'g', -1, 64),
			strconv.FormatFloat(ep.Exploration["mean"], 'g', -1, 64),
			strings.Join(action, ";"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
