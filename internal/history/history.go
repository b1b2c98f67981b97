package history

import (
	"context"

	"github.com/mcpanel/craftd/internal/event"
)

// Sink is a destination for domain events (the admin statistics surface
// reads these back). Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e event.Event) error
	Close() error
}
