package stage

import (
	"context"

	"conveyor/internal/envelope"
	"conveyor/internal/routing"
)

// Handler processes one delivery at a time for a pipeline stage.
//
// Handle returns a terminal routing outcome when the envelope's fate is
// decided, or an error when infrastructure failed and the delivery should be
// retried. A handler must be safe for concurrent use: the workflow manager
// runs one goroutine per configured worker.
type Handler interface {
	// Name identifies the stage in logs and health reports.
	Name() string

	// Queue names the queue this stage consumes from.
	Queue() string

	// Handle processes a single envelope.
	Handle(ctx context.Context, env envelope.Envelope) (routing.Outcome, error)

	// HealthCheck reports whether the stage's collaborators are reachable.
	HealthCheck(ctx context.Context) Health
}
