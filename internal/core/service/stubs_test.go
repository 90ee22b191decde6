package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
	"github.com/meetkit/meetkit/internal/pkg/secrets"
)

// Shared in-memory stubs for the ports exercised by the service tests.

func testVault(t *testing.T) *secrets.Vault {
	t.Helper()
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	v, err := secrets.NewVault(key)
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	return v
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubUserRepo struct {
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return &clone, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

type stubDeviceRepo struct {
	devices map[string]*domain.Device
}

func newStubDeviceRepo() *stubDeviceRepo {
	return &stubDeviceRepo{devices: make(map[string]*domain.Device)}
}

func (r *stubDeviceRepo) Create(_ context.Context, device *domain.Device) error {
	for _, d := range r.devices {
		if d.ProjectID == device.ProjectID && d.Name == device.Name {
			return domain.ErrDeviceExists
		}
	}
	clone := *device
	r.devices[device.ID] = &clone
	return nil
}

func (r *stubDeviceRepo) ListByProject(_ context.Context, projectID string) ([]*domain.Device, error) {
	var out []*domain.Device
	for _, d := range r.devices {
		if d.ProjectID == projectID {
			clone := *d
			out = append(out, &clone)
		}
	}
	return out, nil
}

type stubKeyRepo struct {
	pairs map[string]*domain.ApiKeyPair
}

func newStubKeyRepo() *stubKeyRepo {
	return &stubKeyRepo{pairs: make(map[string]*domain.ApiKeyPair)}
}

func (r *stubKeyRepo) Create(_ context.Context, pair *domain.ApiKeyPair) error {
	clone := *pair
	r.pairs[pair.PublicID] = &clone
	return nil
}

func (r *stubKeyRepo) FindByPublicID(_ context.Context, publicID string) (*domain.ApiKeyPair, error) {
	p, ok := r.pairs[publicID]
	if !ok {
		return nil, domain.ErrKeyPairNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubKeyRepo) FindLoginKeyForUser(_ context.Context, userID string) (*domain.ApiKeyPair, error) {
	for _, p := range r.pairs {
		if p.UserID == userID && p.Kind == domain.KeyKindLogin {
			clone := *p
			return &clone, nil
		}
	}
	return nil, domain.ErrKeyPairNotFound
}

type stubLoginSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.LoginSession
}

func newStubLoginSessions() *stubLoginSessions {
	return &stubLoginSessions{sessions: make(map[string]*domain.LoginSession)}
}

func (s *stubLoginSessions) Create(_ context.Context, ls *domain.LoginSession, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *ls
	s.sessions[ls.ID] = &clone
	return nil
}

func (s *stubLoginSessions) Get(_ context.Context, id string) (*domain.LoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrLoginSessionNotFound
	}
	clone := *ls
	return &clone, nil
}

func (s *stubLoginSessions) SetRefreshTokenID(_ context.Context, id, refreshTokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, ok := s.sessions[id]
	if !ok {
		return domain.ErrLoginSessionNotFound
	}
	ls.RefreshTokenID = refreshTokenID
	return nil
}

func (s *stubLoginSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type stubProjectRepo struct {
	projects map[string]*domain.Project
}

func newStubProjectRepo() *stubProjectRepo {
	return &stubProjectRepo{projects: make(map[string]*domain.Project)}
}

func (r *stubProjectRepo) Create(_ context.Context, p *domain.Project) error {
	clone := *p
	r.projects[p.ID] = &clone
	return nil
}

func (r *stubProjectRepo) FindByID(_ context.Context, id string) (*domain.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProjectRepo) FindByUserAndID(_ context.Context, userID, projectID string) (*domain.Project, error) {
	p, ok := r.projects[projectID]
	if !ok || p.UserID != userID {
		return nil, domain.ErrProjectNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProjectRepo) ListByUser(_ context.Context, userID string) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range r.projects {
		if p.UserID == userID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubProjectRepo) AddDeviceGroup(_ context.Context, projectID, group string) error {
	p, ok := r.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	if p.HasDeviceGroup(group) {
		return domain.ErrDeviceGroupExists
	}
	p.DeviceGroups = append(p.DeviceGroups, group)
	return nil
}

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *stubSessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *s
	r.sessions[s.ID] = &clone
	return nil
}

func (r *stubSessionRepo) FindByID(_ context.Context, projectID, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.ProjectID != projectID {
		return nil, domain.ErrSessionNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *stubSessionRepo) List(_ context.Context, projectID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.ProjectID == projectID {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubSessionRepo) UpdateStatus(_ context.Context, sessionID string, from, to domain.SessionStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if s.Status != from {
		return domain.ErrInactiveSession
	}
	s.Status = to
	if to == domain.SessionStopped {
		s.StoppedAt = &at
	}
	return nil
}

func (r *stubSessionRepo) Delete(_ context.Context, projectID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.ProjectID != projectID {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *stubSessionRepo) get(sessionID string) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	clone := *s
	return &clone
}

type stubEgressRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.SessionEgress
}

func newStubEgressRepo() *stubEgressRepo {
	return &stubEgressRepo{rows: make(map[string]*domain.SessionEgress)}
}

func (r *stubEgressRepo) Upsert(_ context.Context, e *domain.SessionEgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.rows[e.EgressID] = &clone
	return nil
}

func (r *stubEgressRepo) ListBySession(_ context.Context, sessionID string) ([]*domain.SessionEgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SessionEgress
	for _, e := range r.rows {
		if e.SessionID == sessionID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

// fakeRoomService scripts the external room registry for watcher and
// orchestrator tests.
type fakeRoomService struct {
	mu          sync.Mutex
	rooms       map[string]*ports.Room
	egresses    map[string][]ports.EgressRecord
	roster      []ports.Participant
	createCalls int
	deleteCalls int
	createErr   error
	rosterErr   error
}

func newFakeRoomService() *fakeRoomService {
	return &fakeRoomService{
		rooms:    make(map[string]*ports.Room),
		egresses: make(map[string][]ports.EgressRecord),
	}
}

func (f *fakeRoomService) CreateRoom(_ context.Context, _ ports.RoomCredentials, name string, opts ports.RoomOptions) (*ports.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	room := &ports.Room{Name: name, Metadata: opts.Metadata}
	f.rooms[name] = room
	clone := *room
	return &clone, nil
}

func (f *fakeRoomService) DeleteRoom(_ context.Context, _ ports.RoomCredentials, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	delete(f.rooms, name)
	return nil
}

func (f *fakeRoomService) GetRoom(_ context.Context, _ ports.RoomCredentials, name string) (*ports.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[name]
	if !ok {
		return nil, nil
	}
	clone := *room
	return &clone, nil
}

func (f *fakeRoomService) ListEgress(_ context.Context, _ ports.RoomCredentials, roomName string) ([]ports.EgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.EgressRecord(nil), f.egresses[roomName]...), nil
}

func (f *fakeRoomService) Roster(_ context.Context, _ string, _ string) ([]ports.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	return append([]ports.Participant(nil), f.roster...), nil
}

func (f *fakeRoomService) AccessToken(_ ports.RoomCredentials, grant ports.RoomGrant) (string, error) {
	return "room-token-" + grant.Identity, nil
}

func (f *fakeRoomService) removeRoom(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, name)
}

func (f *fakeRoomService) setMetadata(name, metadata string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.rooms[name]; ok {
		room.Metadata = metadata
	}
}

type stubNotifier struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (n *stubNotifier) PublishSessionCreated(_ context.Context, routingKey string, _ ports.SessionCreatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.published = append(n.published, routingKey)
	return nil
}

func (n *stubNotifier) keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.published...)
}

type stubObjectStore struct {
	err error
}

func (s *stubObjectStore) SignedURL(_ context.Context, creds ports.StorageCredentials, object string, _ time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://store.example/" + creds.Bucket + "/" + object, nil
}

var errBoom = errors.New("boom")
