package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
	"github.com/meetkit/meetkit/internal/pkg/secrets"
)

// sessionTokenTTL bounds media-room join tokens minted for participants.
const sessionTokenTTL = 6 * time.Hour

// SessionOrchestrator drives the session state machine and keeps it
// consistent with the external room resource, which is only observable by
// polling.
type SessionOrchestrator struct {
	sessions    ports.SessionRepository
	egresses    ports.EgressRepository
	rooms       ports.RoomService
	store       ports.ObjectStore
	notifier    ports.Notifier
	watchers    *WatcherRegistry
	reconciler  *EgressReconciler
	vault       *secrets.Vault
	interval    time.Duration
	maxMisses   int
	egressGrace time.Duration
	urlTTL      time.Duration
	log         zerolog.Logger
}

// OrchestratorConfig carries the watcher tuning knobs.
type OrchestratorConfig struct {
	PollInterval time.Duration
	MaxMisses    int
	EgressGrace  time.Duration
	SignedURLTTL time.Duration
}

func NewSessionOrchestrator(
	sessions ports.SessionRepository,
	egresses ports.EgressRepository,
	rooms ports.RoomService,
	store ports.ObjectStore,
	notifier ports.Notifier,
	watchers *WatcherRegistry,
	reconciler *EgressReconciler,
	vault *secrets.Vault,
	cfg OrchestratorConfig,
	log zerolog.Logger,
) *SessionOrchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxMisses <= 0 {
		cfg.MaxMisses = 10
	}
	if cfg.EgressGrace <= 0 {
		cfg.EgressGrace = 30 * time.Second
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = time.Hour
	}
	return &SessionOrchestrator{
		sessions:    sessions,
		egresses:    egresses,
		rooms:       rooms,
		store:       store,
		notifier:    notifier,
		watchers:    watchers,
		reconciler:  reconciler,
		vault:       vault,
		interval:    cfg.PollInterval,
		maxMisses:   cfg.MaxMisses,
		egressGrace: cfg.EgressGrace,
		urlTTL:      cfg.SignedURLTTL,
		log:         log,
	}
}

// Create validates the requested device groups, provisions the external room
// with the correlation payload, persists the session as started, registers
// its watcher, and notifies each device group.
func (s *SessionOrchestrator) Create(ctx context.Context, project *domain.Project, input ports.CreateSessionInput) (*domain.Session, error) {
	var unregistered []string
	for _, g := range input.DeviceGroups {
		if !project.HasDeviceGroup(g) {
			unregistered = append(unregistered, g)
		}
	}
	if len(unregistered) > 0 {
		// Checked before any external call: no room is created for a
		// rejected request.
		return nil, domain.NewInvalidDeviceGroupError(unregistered)
	}

	creds, err := s.roomCredentials(project)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	roomName := "mk-" + sessionID

	meta := domain.RoomMetadata{
		SessionID: sessionID,
		ProjectID: project.ID,
		Comments:  input.Comments,
	}
	room, err := s.rooms.CreateRoom(ctx, creds, roomName, ports.RoomOptions{
		Metadata:        meta.Format(),
		MaxParticipants: input.MaxParticipants,
		EmptyTimeout:    input.EmptyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	session := &domain.Session{
		ID:              sessionID,
		ProjectID:       project.ID,
		Name:            input.Name,
		RoomName:        room.Name,
		Status:          domain.SessionStarted,
		MaxParticipants: input.MaxParticipants,
		EmptyTimeout:    input.EmptyTimeout,
		Comments:        input.Comments,
		DeviceGroups:    input.DeviceGroups,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		// Roll back the room so it does not leak.
		if derr := s.rooms.DeleteRoom(ctx, creds, room.Name); derr != nil {
			s.log.Error().Err(derr).Str("room", room.Name).Msg("room teardown after failed persist")
		}
		return nil, err
	}

	if err := s.spawnWatcher(session, creds); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("watcher not spawned")
	}

	event := ports.SessionCreatedEvent{
		SessionID: session.ID,
		ProjectID: project.ID,
		RoomName:  session.RoomName,
		Name:      session.Name,
		CreatedAt: session.CreatedAt,
	}
	for _, group := range input.DeviceGroups {
		key := domain.RoutingKey(project.ID, group)
		if err := s.notifier.PublishSessionCreated(ctx, key, event); err != nil {
			// Fire and forget: a missed notification never fails the create.
			s.log.Warn().Err(err).Str("routing_key", key).Msg("session notification failed")
		}
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("project_id", project.ID).
		Str("room", session.RoomName).
		Msg("session created")
	return session, nil
}

func (s *SessionOrchestrator) Get(ctx context.Context, projectID, sessionID string) (*domain.Session, error) {
	return s.sessions.FindByID(ctx, projectID, sessionID)
}

func (s *SessionOrchestrator) List(ctx context.Context, projectID string) ([]*domain.Session, error) {
	return s.sessions.List(ctx, projectID)
}

// Stop explicitly ends a started session: the external room is deleted, the
// watcher cancelled, the row marked stopped, and egresses reconciled. A
// session that is not started yields ErrInactiveSession, so a double stop
// never deletes the room twice.
func (s *SessionOrchestrator) Stop(ctx context.Context, project *domain.Project, sessionID string) error {
	session, err := s.sessions.FindByID(ctx, project.ID, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.SessionStarted {
		return domain.ErrInactiveSession
	}

	creds, err := s.roomCredentials(project)
	if err != nil {
		return err
	}
	if err := s.rooms.DeleteRoom(ctx, creds, session.RoomName); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}

	s.watchers.Cancel(sessionID)

	now := time.Now().UTC()
	if err := s.sessions.UpdateStatus(ctx, sessionID, domain.SessionStarted, domain.SessionStopped, now); err != nil {
		return err
	}

	// The room is gone, so there is no roster to drain; reconciliation is
	// idempotent if the watcher already ran.
	if err := s.reconciler.Reconcile(ctx, creds, session, nil); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("egress reconciliation on stop failed")
	}

	s.log.Info().Str("session_id", sessionID).Msg("session stopped")
	return nil
}

// Delete removes the session row. A session that is not yet stopped gets its
// room torn down first, best effort: room deletion failure is surfaced in
// the logs but never blocks the row deletion.
func (s *SessionOrchestrator) Delete(ctx context.Context, project *domain.Project, sessionID string) error {
	session, err := s.sessions.FindByID(ctx, project.ID, sessionID)
	if err != nil {
		return err
	}

	if session.Status != domain.SessionStopped {
		s.watchers.Cancel(sessionID)
		creds, err := s.roomCredentials(project)
		if err != nil {
			return err
		}
		if err := s.rooms.DeleteRoom(ctx, creds, session.RoomName); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("room teardown on delete failed")
		}
	}

	return s.sessions.Delete(ctx, project.ID, sessionID)
}

// AccessToken mints a media-room join token for an active session. This
// authenticates into the media room, not into this platform.
func (s *SessionOrchestrator) AccessToken(ctx context.Context, project *domain.Project, sessionID string, input ports.SessionTokenInput) (string, error) {
	session, err := s.sessions.FindByID(ctx, project.ID, sessionID)
	if err != nil {
		return "", err
	}
	if session.Status != domain.SessionStarted {
		return "", domain.ErrInactiveSession
	}
	if input.Room != session.RoomName {
		return "", fmt.Errorf("%w: grant room %q does not match session room %q",
			domain.ErrConfiguration, input.Room, session.RoomName)
	}

	creds, err := s.roomCredentials(project)
	if err != nil {
		return "", err
	}
	return s.rooms.AccessToken(creds, ports.RoomGrant{
		Room:         session.RoomName,
		Identity:     input.Identity,
		CanPublish:   input.CanPublish,
		CanSubscribe: true,
		TTL:          sessionTokenTTL,
	})
}

// ListEgresses returns the session's egress rows, attaching a signed download
// URL to every completed recording. Signing failures degrade to an empty URL.
func (s *SessionOrchestrator) ListEgresses(ctx context.Context, project *domain.Project, sessionID string) ([]ports.EgressView, error) {
	if _, err := s.sessions.FindByID(ctx, project.ID, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.egresses.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	views := make([]ports.EgressView, 0, len(rows))
	for _, row := range rows {
		view := ports.EgressView{Egress: row}
		if row.Status == domain.EgressComplete && row.Destination != "" {
			url, err := s.signedURL(ctx, project, row.Destination)
			if err != nil {
				s.log.Warn().Err(err).Str("egress_id", row.EgressID).Msg("signed url failed")
			} else {
				view.DownloadURL = url
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *SessionOrchestrator) spawnWatcher(session *domain.Session, creds ports.RoomCredentials) error {
	w := &roomWatcher{
		session:     *session,
		creds:       creds,
		rooms:       s.rooms,
		sessions:    s.sessions,
		reconciler:  s.reconciler,
		interval:    s.interval,
		maxMisses:   s.maxMisses,
		egressGrace: s.egressGrace,
		log:         s.log.With().Str("session_id", session.ID).Logger(),
	}
	return s.watchers.Spawn(session.ID, w.run)
}

// roomCredentials decrypts the project's room-service credentials for the
// duration of one operation; plaintext is never cached.
func (s *SessionOrchestrator) roomCredentials(project *domain.Project) (ports.RoomCredentials, error) {
	apiKey, err := s.vault.Decrypt(project.RoomAPIKey)
	if err != nil {
		return ports.RoomCredentials{}, err
	}
	apiSecret, err := s.vault.Decrypt(project.RoomAPISecret)
	if err != nil {
		return ports.RoomCredentials{}, err
	}
	return ports.RoomCredentials{APIKey: apiKey, APISecret: apiSecret}, nil
}

func (s *SessionOrchestrator) signedURL(ctx context.Context, project *domain.Project, object string) (string, error) {
	accessKey, err := s.vault.Decrypt(project.StorageAccessKey)
	if err != nil {
		return "", err
	}
	secretKey, err := s.vault.Decrypt(project.StorageSecretKey)
	if err != nil {
		return "", err
	}
	return s.store.SignedURL(ctx, ports.StorageCredentials{
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    project.StorageBucket,
	}, object, s.urlTTL)
}
