package interfaces

import "roadside_e2e/domain/entities"

// Reporter receives labeled outcomes as the scenario progresses.
// Implementations must be safe for concurrent use.
type Reporter interface {
	ActionFinished(scenario, step string, result entities.ActionResult)

	StepFinished(scenario string, result entities.StepResult)

	ScenarioFinished(result entities.ScenarioResult)
}
