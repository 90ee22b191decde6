package roomservice

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meetkit/meetkit/internal/core/ports"
)

var errNotFound = errors.New("room service: not found")

func isNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

// adminTokenTTL bounds the per-request admin tokens minted for registry calls.
const adminTokenTTL = time.Minute

// videoGrant mirrors the room service's capability claim.
type videoGrant struct {
	Room         string `json:"room,omitempty"`
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	RoomCreate   bool   `json:"roomCreate,omitempty"`
	RoomList     bool   `json:"roomList,omitempty"`
	RoomAdmin    bool   `json:"roomAdmin,omitempty"`
	CanPublish   *bool  `json:"canPublish,omitempty"`
	CanSubscribe *bool  `json:"canSubscribe,omitempty"`
	Hidden       bool   `json:"hidden,omitempty"`
}

type grantClaims struct {
	jwt.RegisteredClaims
	Video videoGrant `json:"video"`
}

func signGrant(creds ports.RoomCredentials, identity string, grant videoGrant, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    creds.APIKey,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video: grant,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(creds.APISecret))
}

// adminToken mints a short-lived registry-admin token for one API call.
func adminToken(creds ports.RoomCredentials) (string, error) {
	return signGrant(creds, "", videoGrant{
		RoomCreate: true,
		RoomList:   true,
		RoomAdmin:  true,
	}, adminTokenTTL)
}

// AccessToken mints a participant join token for one room, signed with the
// project's room credentials.
func (c *Client) AccessToken(creds ports.RoomCredentials, grant ports.RoomGrant) (string, error) {
	ttl := grant.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	canPublish := grant.CanPublish
	canSubscribe := grant.CanSubscribe
	return signGrant(creds, grant.Identity, videoGrant{
		Room:         grant.Room,
		RoomJoin:     true,
		RoomAdmin:    grant.RoomAdmin,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
		Hidden:       grant.Hidden,
	}, ttl)
}
