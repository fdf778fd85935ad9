package pvp_out

import (
	"context"

	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
)

// SessionGateway routes outbound events to live connections. Emits are
// best-effort: a closed or missing connection is swallowed, never an error.
// The gateway is one-way; it never calls back into the domain.
type SessionGateway interface {
	// EmitToUser sends event to every live connection bound to userID.
	// Silent no-op when the user is offline.
	EmitToUser(userID, event string, payload any)

	// EmitToRoom sends event to every connection joined to the logical room.
	EmitToRoom(roomID, event string, payload any)

	// IsOnline reports whether at least one connection is bound to userID.
	IsOnline(userID string) bool
}

// ResultPublisher streams finalized matches to downstream consumers.
// Publishing is best-effort; failures are logged, never propagated into
// the finalization path.
type ResultPublisher interface {
	PublishResult(ctx context.Context, m *pvp_entities.Match) error
}
