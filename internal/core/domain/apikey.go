package domain

import (
	"errors"
	"time"
)

// KeyKind discriminates what a key pair signs: interactive login tokens or
// machine api/project tokens.
type KeyKind string

const (
	KeyKindLogin KeyKind = "login"
	KeyKindAPI   KeyKind = "api"
)

var ErrKeyPairNotFound = errors.New("api key pair not found")

// ApiKeyPair is a signing identity owned by a principal. PublicID becomes the
// `iss` claim of every token signed with the pair; Secret holds vault
// ciphertext and is decrypted per verification, never cached.
type ApiKeyPair struct {
	PublicID string  `json:"public_id" bson:"public_id"`
	Secret   string  `json:"-" bson:"secret"`
	Kind     KeyKind `json:"kind" bson:"kind"`

	// Exactly one of UserID / ProjectID is set.
	UserID    string `json:"user_id,omitempty" bson:"user_id,omitempty"`
	ProjectID string `json:"project_id,omitempty" bson:"project_id,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
