package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RoomMetadata is the correlation payload written into the external room's
// metadata field, linking the room back to the session that provisioned it.
// The watcher compares it on every poll; a mismatch means the room was
// recreated or edited by someone else.
type RoomMetadata struct {
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`
	Comments  string `json:"comments,omitempty"`
}

// Format renders the payload as compact JSON. JSON replaced the historical
// pipe-delimited string so comments containing '|' cannot break parsing.
func (m RoomMetadata) Format() string {
	b, _ := json.Marshal(m)
	return string(b)
}

// Matches reports whether the metadata still correlates to sessionID.
func (m RoomMetadata) Matches(sessionID string) bool {
	return m.SessionID == sessionID
}

// ParseRoomMetadata decodes a room metadata string. JSON payloads are tried
// first; the legacy `|session_id:<id>|project_id:<id>|comments:<text>|` form
// is still accepted for rooms provisioned by older deployments.
func ParseRoomMetadata(s string) (RoomMetadata, error) {
	var m RoomMetadata
	if strings.HasPrefix(strings.TrimSpace(s), "{") {
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return RoomMetadata{}, fmt.Errorf("%w: room metadata: %v", ErrConfiguration, err)
		}
		if m.SessionID == "" || m.ProjectID == "" {
			return RoomMetadata{}, fmt.Errorf("%w: room metadata missing ids", ErrConfiguration)
		}
		return m, nil
	}
	return parseLegacyRoomMetadata(s)
}

// parseLegacyRoomMetadata handles the pipe-delimited form: exactly three
// ordered key:value segments, values trimmed.
func parseLegacyRoomMetadata(s string) (RoomMetadata, error) {
	trimmed := strings.Trim(strings.TrimSpace(s), "|")
	segments := strings.Split(trimmed, "|")
	if len(segments) != 3 {
		return RoomMetadata{}, fmt.Errorf("%w: room metadata has %d segments, want 3", ErrConfiguration, len(segments))
	}

	var m RoomMetadata
	keys := []string{"session_id", "project_id", "comments"}
	for i, seg := range segments {
		key, value, found := strings.Cut(strings.TrimSpace(seg), ":")
		if !found || strings.TrimSpace(key) != keys[i] {
			return RoomMetadata{}, fmt.Errorf("%w: room metadata segment %q, want %q", ErrConfiguration, seg, keys[i])
		}
		switch i {
		case 0:
			m.SessionID = strings.TrimSpace(value)
		case 1:
			m.ProjectID = strings.TrimSpace(value)
		case 2:
			m.Comments = strings.TrimSpace(value)
		}
	}
	if m.SessionID == "" || m.ProjectID == "" {
		return RoomMetadata{}, fmt.Errorf("%w: room metadata missing ids", ErrConfiguration)
	}
	return m, nil
}
