package interfaces

import (
	"context"

	"roadside_e2e/domain/entities"
)

// ActionGuard vetoes actions that must never run against the live site
type ActionGuard interface {
	// Check returns an error when action must not be performed on the page at
	// pageURL. target is the text of the element the action resolved to.
	Check(ctx context.Context, action entities.Action, pageURL, target string) error
}
