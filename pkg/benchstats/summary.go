package benchstats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const SummarySchemaVersion = 1

type MetricSummary struct {
	Stats
	Thresholds map[string]ThresholdOutcome `json:"thresholds,omitempty"`
}

type ThresholdOutcome struct {
	OK bool `json:"ok"`
}

// Summary is the persisted outcome of one benchmark run.
type Summary struct {
	SchemaVersion int                      `json:"schema_version"`
	RunID         string                   `json:"run_id,omitempty"`
	Scenario      string                   `json:"scenario,omitempty"`
	Workflow      string                   `json:"workflow,omitempty"`
	BaseURL       string                   `json:"base_url,omitempty"`
	StartedAt     time.Time                `json:"started_at"`
	FinishedAt    time.Time                `json:"finished_at"`
	Duration      float64                  `json:"duration_seconds"`
	Metrics       map[string]MetricSummary `json:"metrics"`
	Thresholds    []ThresholdResult        `json:"thresholds"`
	Passed        bool                     `json:"passed"`
	// Interrupted marks a run cut short before its scenario finished.
	Interrupted   bool                     `json:"interrupted,omitempty"`
}

// Aggregate reduces snapshots and evaluates thresholds. It does not touch the streams the
// snapshots were taken from and returns the same Summary for the same input.
func Aggregate(snaps []Snapshot, elapsed time.Duration, thresholds []Threshold) *Summary {
	stats := make(map[string]Stats, len(snaps))
	for _, snap := range snaps {
		stats[snap.Name] = Summarize(snap, elapsed)
	}

	metrics := make(map[string]MetricSummary, len(stats))
	for name, st := range stats {
		metrics[name] = MetricSummary{Stats: st}
	}

	results := make([]ThresholdResult, 0, len(thresholds))
	for _, t := range thresholds {
		res := t.Evaluate(stats)
		results = append(results, res)

		m, ok := metrics[t.Metric]
		if !ok {
			m = MetricSummary{Stats: Stats{Values: map[string]float64{}}}
		}
		if m.Thresholds == nil {
			m.Thresholds = map[string]ThresholdOutcome{}
		}
		m.Thresholds[t.Expr] = ThresholdOutcome{OK: res.OK}
		metrics[t.Metric] = m
	}

	return &Summary{
		SchemaVersion: SummarySchemaVersion,
		Duration:      elapsed.Seconds(),
		Metrics:       metrics,
		Thresholds:    results,
		Passed:        Verdict(results),
	}
}

// WriteJSON writes s to path, creating the parent directory.
func WriteJSON(path string, s *Summary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func ReadJSON(path string) (*Summary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
