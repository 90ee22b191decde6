package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SessionStatus represents the lifecycle state of a project session.
type SessionStatus string

const (
	SessionCreated SessionStatus = "created"
	SessionStarted SessionStatus = "started"
	SessionStopped SessionStatus = "stopped"
)

// validTransitions defines the allowed state machine transitions.
// "created" is transient: a session is persisted already as "started" once
// the external room is provisioned. "stopped" is terminal.
var validTransitions = map[SessionStatus][]SessionStatus{
	SessionCreated: {SessionStarted},
	SessionStarted: {SessionStopped},
}

var ErrSessionNotFound = errors.New("session not found")
var ErrInactiveSession = errors.New("session is not active")
var ErrConfiguration = errors.New("configuration mismatch")

// CanTransitionTo reports whether a transition from s to next is valid.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session correlates one logical meeting with one external media room.
// Immutable once stopped, except for egress attachment.
type Session struct {
	ID              string        `json:"id" bson:"_id"`
	ProjectID       string        `json:"project_id" bson:"project_id"`
	Name            string        `json:"name" bson:"name"`
	RoomName        string        `json:"room_name" bson:"room_name"`
	Status          SessionStatus `json:"status" bson:"status"`
	MaxParticipants int           `json:"max_participants,omitempty" bson:"max_participants,omitempty"`
	EmptyTimeout    int           `json:"empty_timeout,omitempty" bson:"empty_timeout,omitempty"`
	Comments        string        `json:"comments,omitempty" bson:"comments,omitempty"`
	DeviceGroups    []string      `json:"device_groups,omitempty" bson:"device_groups,omitempty"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	StoppedAt       *time.Time    `json:"stopped_at,omitempty" bson:"stopped_at,omitempty"`
}

// InvalidDeviceGroupError reports session device groups that are not
// registered on the project. Groups is sorted for stable messages.
type InvalidDeviceGroupError struct {
	Groups []string
}

func (e *InvalidDeviceGroupError) Error() string {
	return fmt.Sprintf("unregistered device groups: %s", strings.Join(e.Groups, ", "))
}

// NewInvalidDeviceGroupError builds the error from the offending groups.
func NewInvalidDeviceGroupError(groups []string) *InvalidDeviceGroupError {
	sorted := append([]string(nil), groups...)
	sort.Strings(sorted)
	return &InvalidDeviceGroupError{Groups: sorted}
}
