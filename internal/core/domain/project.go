package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrProjectNotFound = errors.New("project not found")
var ErrForbidden = errors.New("access forbidden")
var ErrDeviceGroupExists = errors.New("device group already registered")
var ErrDeviceExists = errors.New("device already registered")

// Project is a registered tenant. All credential fields hold vault ciphertext
// and are decrypted only transiently for the duration of a single operation.
type Project struct {
	ID     string `json:"id" bson:"_id"`
	UserID string `json:"user_id" bson:"user_id"`
	Name   string `json:"name" bson:"name"`

	// Credentials for the external media-room service.
	RoomAPIKey    string `json:"-" bson:"room_api_key"`
	RoomAPISecret string `json:"-" bson:"room_api_secret"`

	// Credentials for the object store holding egress recordings.
	StorageAccessKey string `json:"-" bson:"storage_access_key"`
	StorageSecretKey string `json:"-" bson:"storage_secret_key"`
	StorageBucket    string `json:"storage_bucket,omitempty" bson:"storage_bucket,omitempty"`

	// DeviceGroups define the allowed broker routing-key namespace for this
	// project: {project_id}.{device_group}.
	DeviceGroups []string `json:"device_groups" bson:"device_groups"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// HasDeviceGroup reports whether group is registered on the project.
func (p *Project) HasDeviceGroup(group string) bool {
	for _, g := range p.DeviceGroups {
		if g == group {
			return true
		}
	}
	return false
}

// RoutingKeys returns every broker routing key the project is entitled to.
func (p *Project) RoutingKeys() []string {
	keys := make([]string, 0, len(p.DeviceGroups))
	for _, g := range p.DeviceGroups {
		keys = append(keys, RoutingKey(p.ID, g))
	}
	return keys
}

// RoutingKey builds the topic-exchange routing key for one device group.
func RoutingKey(projectID, deviceGroup string) string {
	return fmt.Sprintf("%s.%s", projectID, deviceGroup)
}

// Device is a registered endpoint belonging to a project's device group.
type Device struct {
	ID          string    `json:"id" bson:"_id"`
	ProjectID   string    `json:"project_id" bson:"project_id"`
	Name        string    `json:"name" bson:"name"`
	DeviceGroup string    `json:"device_group" bson:"device_group"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}
