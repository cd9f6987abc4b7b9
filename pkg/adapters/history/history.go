// Package history is an optional, core-independent adapter that persists
// AnalysisRun snapshots as a JSON-lines ledger, for analyzers (e.g.
// predictive, cost) that want a historical series across runs. The core
// orchestrator never depends on this package; it is wired in by callers
// that opt into persistent history.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot is one point-in-time sample taken from a completed AnalysisRun,
// trimmed to the fields a trend/anomaly analysis needs.
type Snapshot struct {
	Timestamp   int64   `json:"timestamp"`
	DeploymentID string `json:"deployment_id"`
	HealthScore float64 `json:"health_score"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
}

// Ledger appends and loads Snapshots from a local JSON-lines file.
type Ledger struct {
	path string
}

// Open returns a Ledger backed by path, creating its parent directory if
// necessary. It does not create the file itself; Append does that lazily.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	return &Ledger{path: path}, nil
}

// Append writes s as one line to the ledger file.
func (l *Ledger) Append(s Snapshot) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("history: open ledger: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("history: marshal snapshot: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("history: write snapshot: %w", err)
	}
	return nil
}

// LoadWindow returns the most recent n snapshots (or fewer if the ledger
// is shorter), in chronological order. A missing ledger file returns an
// empty slice rather than an error.
func (l *Ledger) LoadWindow(n int) ([]Snapshot, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open ledger: %w", err)
	}
	defer f.Close()

	var all []Snapshot
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s Snapshot
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			continue
		}
		all = append(all, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("history: scan ledger: %w", err)
	}

	if len(all) > n {
		return all[len(all)-n:], nil
	}
	return all, nil
}
