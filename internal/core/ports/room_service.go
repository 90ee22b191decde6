package ports

import (
	"context"
	"time"
)

// RoomCredentials are a project's decrypted media-room service credentials,
// held in memory only for the duration of one operation.
type RoomCredentials struct {
	APIKey    string
	APISecret string
}

// StorageCredentials are a project's decrypted object-store credentials.
type StorageCredentials struct {
	AccessKey string
	SecretKey string
	Bucket    string
}

// Room is the external media room resource as observed via the registry.
type Room struct {
	Name            string
	Metadata        string
	NumParticipants int
}

// RoomOptions are passed on room creation.
type RoomOptions struct {
	Metadata        string
	MaxParticipants int
	EmptyTimeout    int
}

// Participant is one entry in a room's final roster.
type Participant struct {
	Identity string
	Name     string
	TrackIDs []string
}

// EgressRecord is a provider egress/recording record, untranslated.
type EgressRecord struct {
	EgressID    string
	RoomName    string
	RequestType string
	Status      string
	TrackID     string
	Location    string
	Filename    string
	StartedAt   time.Time
}

// RoomGrant describes the capabilities minted into a media-room access token.
// This authenticates into the room service itself, not into this platform.
type RoomGrant struct {
	Room         string
	Identity     string
	CanPublish   bool
	CanSubscribe bool
	// Hidden participants are not listed to others; used for the watcher's
	// final roster drain.
	Hidden    bool
	RoomAdmin bool
	TTL       time.Duration
}

// RoomService is the narrow client contract against the external media-room
// service. The registry offers no push notifications; room lifecycle is only
// observable by polling GetRoom.
type RoomService interface {
	CreateRoom(ctx context.Context, creds RoomCredentials, name string, opts RoomOptions) (*Room, error)
	DeleteRoom(ctx context.Context, creds RoomCredentials, name string) error
	// GetRoom returns (nil, nil) when no room with that name exists.
	GetRoom(ctx context.Context, creds RoomCredentials, name string) (*Room, error)
	ListEgress(ctx context.Context, creds RoomCredentials, roomName string) ([]EgressRecord, error)
	// Roster drains the room's current participants using accessToken.
	Roster(ctx context.Context, roomName, accessToken string) ([]Participant, error)
	// AccessToken mints a room-scoped token signed with the project's room
	// credentials.
	AccessToken(creds RoomCredentials, grant RoomGrant) (string, error)
}

// ObjectStore signs time-limited access URLs for stored egress objects.
type ObjectStore interface {
	SignedURL(ctx context.Context, creds StorageCredentials, object string, ttl time.Duration) (string, error)
}
