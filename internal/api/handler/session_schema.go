package handler

import (
	"time"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

type createSessionRequest struct {
	Name            string   `json:"name" validate:"required,min=1"`
	Comments        string   `json:"comments"`
	MaxParticipants int      `json:"max_participants" validate:"gte=0"`
	EmptyTimeout    int      `json:"empty_timeout" validate:"gte=0"`
	DeviceGroups    []string `json:"device_groups" validate:"required,min=1"`
}

type sessionTokenRequest struct {
	Room       string `json:"room" validate:"required"`
	Identity   string `json:"identity" validate:"required"`
	CanPublish bool   `json:"can_publish"`
}

type sessionTokenResponse struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	RoomName        string   `json:"room_name"`
	Status          string   `json:"status"`
	MaxParticipants int      `json:"max_participants,omitempty"`
	EmptyTimeout    int      `json:"empty_timeout,omitempty"`
	Comments        string   `json:"comments,omitempty"`
	DeviceGroups    []string `json:"device_groups,omitempty"`
	CreatedAt       string   `json:"created_at"`
	StoppedAt       string   `json:"stopped_at,omitempty"`
}

type egressResponse struct {
	EgressID      string `json:"egress_id"`
	EgressType    string `json:"egress_type"`
	Status        string `json:"status"`
	TrackID       string `json:"track_id,omitempty"`
	ParticipantID string `json:"participant_id,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
	DownloadURL   string `json:"download_url,omitempty"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	resp := sessionResponse{
		ID:              s.ID,
		Name:            s.Name,
		RoomName:        s.RoomName,
		Status:          string(s.Status),
		MaxParticipants: s.MaxParticipants,
		EmptyTimeout:    s.EmptyTimeout,
		Comments:        s.Comments,
		DeviceGroups:    s.DeviceGroups,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
	}
	if s.StoppedAt != nil {
		resp.StoppedAt = s.StoppedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toEgressResponse(v ports.EgressView) egressResponse {
	resp := egressResponse{
		EgressID:      v.Egress.EgressID,
		EgressType:    string(v.Egress.EgressType),
		Status:        string(v.Egress.Status),
		TrackID:       v.Egress.TrackID,
		ParticipantID: v.Egress.ParticipantID,
		DownloadURL:   v.DownloadURL,
	}
	if !v.Egress.StartedAt.IsZero() {
		resp.StartedAt = v.Egress.StartedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
