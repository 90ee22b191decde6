package domain

import "time"

// SessionEgressType classifies an egress record by what it captured.
type SessionEgressType string

const (
	EgressRoomComposite  SessionEgressType = "room_composite"
	EgressParticipant    SessionEgressType = "participant"
	EgressTrack          SessionEgressType = "track"
	EgressTrackComposite SessionEgressType = "track_composite"
	EgressWeb            SessionEgressType = "web"
)

// SessionEgressStatus is the local status enum for egress jobs.
type SessionEgressStatus string

const (
	EgressStarting     SessionEgressStatus = "starting"
	EgressActive       SessionEgressStatus = "active"
	EgressEnding       SessionEgressStatus = "ending"
	EgressComplete     SessionEgressStatus = "complete"
	EgressFailed       SessionEgressStatus = "failed"
	EgressAborted      SessionEgressStatus = "aborted"
	EgressLimitReached SessionEgressStatus = "limit_reached"
)

// egressStatusByProvider maps provider status strings to the local enum.
var egressStatusByProvider = map[string]SessionEgressStatus{
	"EGRESS_STARTING":      EgressStarting,
	"EGRESS_ACTIVE":        EgressActive,
	"EGRESS_ENDING":        EgressEnding,
	"EGRESS_COMPLETE":      EgressComplete,
	"EGRESS_FAILED":        EgressFailed,
	"EGRESS_ABORTED":       EgressAborted,
	"EGRESS_LIMIT_REACHED": EgressLimitReached,
}

// EgressStatusFromProvider maps a provider status string to the local enum.
// Unknown strings map to failed, so an unmapped provider state never reads
// as a successful recording.
func EgressStatusFromProvider(s string) SessionEgressStatus {
	if st, ok := egressStatusByProvider[s]; ok {
		return st
	}
	return EgressFailed
}

// egressTypeByRequest maps provider request-type strings to the local enum.
var egressTypeByRequest = map[string]SessionEgressType{
	"room_composite":  EgressRoomComposite,
	"participant":     EgressParticipant,
	"track":           EgressTrack,
	"track_composite": EgressTrackComposite,
	"web":             EgressWeb,
}

// EgressTypeFromRequest maps a provider request type; ok is false for
// unrecognised request shapes.
func EgressTypeFromRequest(s string) (SessionEgressType, bool) {
	t, ok := egressTypeByRequest[s]
	return t, ok
}

// SessionEgress is one normalized per-track egress row, written only after
// the owning session reaches stopped. Append-only per EgressID.
type SessionEgress struct {
	SessionID     string              `json:"session_id" bson:"session_id"`
	RoomName      string              `json:"room_name" bson:"room_name"`
	TrackID       string              `json:"track_id,omitempty" bson:"track_id,omitempty"`
	EgressID      string              `json:"egress_id" bson:"_id"`
	EgressType    SessionEgressType   `json:"egress_type" bson:"egress_type"`
	Status        SessionEgressStatus `json:"status" bson:"status"`
	Destination   string              `json:"destination,omitempty" bson:"destination,omitempty"`
	ParticipantID string              `json:"participant_id,omitempty" bson:"participant_id,omitempty"`
	StartedAt     time.Time           `json:"started_at" bson:"started_at"`
}
