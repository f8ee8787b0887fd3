package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox"
)

// Principal is the caller on whose behalf a service method runs.
type Principal struct {
	UserID uuid.UUID
	Staff  bool
	System bool
}

// SystemPrincipal is used by scheduled jobs.
func SystemPrincipal() Principal {
	return Principal{System: true}
}

// CanAccess reports whether the principal may see or act on order.
func (p Principal) CanAccess(order *models.Order) bool {
	if order == nil {
		return false
	}
	return p.System || p.Staff || (p.UserID != uuid.Nil && order.UserID == p.UserID)
}

// Role is the actor role recorded in logs, metrics and event envelopes.
func (p Principal) Role() string {
	switch {
	case p.System:
		return outbox.ActorRoleSystem
	case p.Staff:
		return enums.UserRoleStaff.String()
	default:
		return enums.UserRoleCustomer.String()
	}
}

// Actor is the envelope actor for events emitted on behalf of p.
func (p Principal) Actor() *outbox.ActorRef {
	if p.System {
		return outbox.SystemActor()
	}
	id := p.UserID
	return &outbox.ActorRef{UserID: &id, Role: p.Role()}
}
