package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/google/uuid"
)

const latestFile = "latest.json"

type runFile struct {
	RunID     string                    `json:"run_id"`
	CreatedAt time.Time                 `json:"created_at"`
	Results   []entities.ScenarioResult `json:"results"`
}

type resultStore struct {
	dir string
}

// NewResultStore - creates a JSON result store under dir
func NewResultStore(dir string) (interfaces.ResultStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &resultStore{dir: dir}, nil
}

// SaveResults - writes results to results-<run id>.json and refreshes latest.json
func (s *resultStore) SaveResults(results []entities.ScenarioResult) (string, error) {
	run := runFile{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Results:   results,
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("results-%s.json", run.RunID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, latestFile), data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// LoadResults - loads the most recent run
func (s *resultStore) LoadResults() ([]entities.ScenarioResult, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, latestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []entities.ScenarioResult{}, nil
		}
		return nil, err
	}

	var run runFile
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return run.Results, nil
}
