package ports

import (
	"context"

	"github.com/meetkit/meetkit/internal/core/domain"
)

// CreateSessionInput carries everything needed to start a session.
type CreateSessionInput struct {
	Name            string
	Comments        string
	MaxParticipants int
	EmptyTimeout    int
	// DeviceGroups must be a subset of the project's registered groups.
	DeviceGroups []string
}

// SessionTokenInput requests a media-room access token for a session.
type SessionTokenInput struct {
	// Room must match the session's external room name.
	Room       string
	Identity   string
	CanPublish bool
}

// EgressView is one egress row enriched with a signed download URL when the
// recording completed.
type EgressView struct {
	Egress      *domain.SessionEgress
	DownloadURL string
}

// SessionService is the session orchestrator.
type SessionService interface {
	Create(ctx context.Context, project *domain.Project, input CreateSessionInput) (*domain.Session, error)
	Get(ctx context.Context, projectID, sessionID string) (*domain.Session, error)
	List(ctx context.Context, projectID string) ([]*domain.Session, error)
	// Stop is only valid from started: it deletes the external room, cancels
	// the watcher, and marks the session stopped.
	Stop(ctx context.Context, project *domain.Project, sessionID string) error
	// Delete removes the session row, tearing down the room first (best
	// effort) when the session is not already stopped.
	Delete(ctx context.Context, project *domain.Project, sessionID string) error
	// AccessToken mints a media-room join token for an active session.
	AccessToken(ctx context.Context, project *domain.Project, sessionID string, input SessionTokenInput) (string, error)
	ListEgresses(ctx context.Context, project *domain.Project, sessionID string) ([]EgressView, error)
}
