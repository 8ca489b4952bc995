package interfaces

import "roadside_e2e/domain/entities"

// ResultStore persists scenario results of a run
type ResultStore interface {
	// SaveResults writes the results of a run and returns where they were written
	SaveResults(results []entities.ScenarioResult) (string, error)

	// LoadResults reads the most recent run
	LoadResults() ([]entities.ScenarioResult, error)
}
