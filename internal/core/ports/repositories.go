package ports

import (
	"context"
	"time"

	"github.com/meetkit/meetkit/internal/core/domain"
)

// UserRepository defines persistence for human principals.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// ProjectRepository defines persistence for tenants.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	// FindByUserAndID filters by owner; the ownership guard depends on this
	// returning domain.ErrProjectNotFound for projects the user does not own.
	FindByUserAndID(ctx context.Context, userID, projectID string) (*domain.Project, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Project, error)
	AddDeviceGroup(ctx context.Context, projectID, group string) error
}

// DeviceRepository defines persistence for registered devices.
type DeviceRepository interface {
	// Create returns domain.ErrDeviceExists when the project already has a
	// device with the same name.
	Create(ctx context.Context, device *domain.Device) error
	ListByProject(ctx context.Context, projectID string) ([]*domain.Device, error)
}

// ApiKeyRepository defines persistence for signing key pairs.
type ApiKeyRepository interface {
	Create(ctx context.Context, pair *domain.ApiKeyPair) error
	FindByPublicID(ctx context.Context, publicID string) (*domain.ApiKeyPair, error)
	// FindLoginKeyForUser returns the user's Login-kind pair, or
	// domain.ErrKeyPairNotFound when none exists yet.
	FindLoginKeyForUser(ctx context.Context, userID string) (*domain.ApiKeyPair, error)
}

// SessionRepository defines persistence for project sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	FindByID(ctx context.Context, projectID, sessionID string) (*domain.Session, error)
	List(ctx context.Context, projectID string) ([]*domain.Session, error)
	// UpdateStatus transitions sessionID from status `from` to `to`
	// atomically; it returns domain.ErrInactiveSession when the session is
	// not currently in `from`.
	UpdateStatus(ctx context.Context, sessionID string, from, to domain.SessionStatus, at time.Time) error
	Delete(ctx context.Context, projectID, sessionID string) error
}

// EgressRepository defines persistence for normalized egress rows.
type EgressRepository interface {
	// Upsert inserts or replaces the row keyed by EgressID, so reconciliation
	// re-runs never duplicate rows.
	Upsert(ctx context.Context, egress *domain.SessionEgress) error
	ListBySession(ctx context.Context, sessionID string) ([]*domain.SessionEgress, error)
}

// LoginSessionStore holds login sessions with a bounded lifetime. Deleting a
// row invalidates every login/refresh token referencing it.
type LoginSessionStore interface {
	Create(ctx context.Context, ls *domain.LoginSession, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.LoginSession, error)
	// SetRefreshTokenID rotates the stored refresh jti, preserving the TTL.
	SetRefreshTokenID(ctx context.Context, id, refreshTokenID string) error
	Delete(ctx context.Context, id string) error
}
