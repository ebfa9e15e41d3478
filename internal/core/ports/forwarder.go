package ports

import (
	"context"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// Forwarder pushes alerts and comments to the municipal agency backends.
type Forwarder interface {
	// ForwardAlert sends the alert to the agency and returns the agency's
	// reference id for it, when one is provided.
	ForwardAlert(ctx context.Context, agency *domain.Agency, alert *domain.Alert) (string, error)
	// ForwardComment relays a citizen comment. Best effort, callers log
	// and move on.
	ForwardComment(ctx context.Context, agency *domain.Agency, alert *domain.Alert, comment domain.Comment) error
	// ProbeHealth reports whether the agency backend answers its health
	// endpoint.
	ProbeHealth(ctx context.Context, agency *domain.Agency) bool
}
