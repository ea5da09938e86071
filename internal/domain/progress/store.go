// Package progress defines the user-progress store contract the engine
// consumes. The store is an external collaborator: it owns persistence
// and must provide atomic point-total increments, since concurrent
// reward events for the same user are expected to race on it.
package progress

import (
	"context"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// Store is the get/update contract over user progress.
type Store interface {
	// Get returns the progress snapshot for a user, or an error wrapping
	// shared.ErrNotFound when the user is unknown.
	Get(ctx context.Context, userID shared.UserID) (*shared.UserProgress, error)

	// Update applies a delta and returns the updated snapshot. The
	// point-total increment must be atomic (read-modify-write safety is
	// the store's responsibility, not the engine's).
	Update(ctx context.Context, userID shared.UserID, delta shared.ProgressDelta) (*shared.UserProgress, error)
}
