package identity

import (
	"github.com/google/uuid"

	"github.com/zoravo/oms/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeUser = "User"

// Event type constants
const (
	EventTypeUserCreated     = "user_created"
	EventTypeUserDeactivated = "user_deactivated"
)

func userTenantID(user *User) uuid.UUID {
	if user.TenantID != nil {
		return *user.TenantID
	}
	return uuid.Nil
}

// UserCreatedEvent is published when a new user is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(user *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, AggregateTypeUser, user.ID, userTenantID(user)),
		Email:           user.Email,
		Name:            user.Name,
		IsSuperAdmin:    user.IsSuperAdmin,
	}
}

// UserDeactivatedEvent is published when a user is deactivated
type UserDeactivatedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewUserDeactivatedEvent creates a new UserDeactivatedEvent
func NewUserDeactivatedEvent(user *User) *UserDeactivatedEvent {
	return &UserDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserDeactivated, AggregateTypeUser, user.ID, userTenantID(user)),
		Email:           user.Email,
	}
}
