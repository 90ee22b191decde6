package roomservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/ports"
)

const requestTimeout = 10 * time.Second

// Client is an HTTP client for the external media-room service. Every call
// authenticates with a short-lived admin token signed with the project's own
// room credentials, so the client itself holds no secrets.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

type roomPayload struct {
	Name            string `json:"name"`
	Metadata        string `json:"metadata,omitempty"`
	MaxParticipants int    `json:"max_participants,omitempty"`
	EmptyTimeout    int    `json:"empty_timeout,omitempty"`
	NumParticipants int    `json:"num_participants,omitempty"`
}

type participantPayload struct {
	Identity string   `json:"identity"`
	Name     string   `json:"name,omitempty"`
	TrackIDs []string `json:"track_ids,omitempty"`
}

type egressPayload struct {
	EgressID    string `json:"egress_id"`
	RoomName    string `json:"room_name"`
	RequestType string `json:"request_type"`
	Status      string `json:"status"`
	TrackID     string `json:"track_id,omitempty"`
	Location    string `json:"location,omitempty"`
	Filename    string `json:"filename,omitempty"`
	StartedAt   int64  `json:"started_at,omitempty"`
}

func (c *Client) CreateRoom(ctx context.Context, creds ports.RoomCredentials, name string, opts ports.RoomOptions) (*ports.Room, error) {
	body := roomPayload{
		Name:            name,
		Metadata:        opts.Metadata,
		MaxParticipants: opts.MaxParticipants,
		EmptyTimeout:    opts.EmptyTimeout,
	}

	var created roomPayload
	if err := c.do(ctx, creds, http.MethodPost, "/rooms", body, &created); err != nil {
		return nil, err
	}
	return &ports.Room{
		Name:            created.Name,
		Metadata:        created.Metadata,
		NumParticipants: created.NumParticipants,
	}, nil
}

func (c *Client) DeleteRoom(ctx context.Context, creds ports.RoomCredentials, name string) error {
	return c.do(ctx, creds, http.MethodDelete, "/rooms/"+url.PathEscape(name), nil, nil)
}

// GetRoom returns (nil, nil) when the registry has no room with that name.
func (c *Client) GetRoom(ctx context.Context, creds ports.RoomCredentials, name string) (*ports.Room, error) {
	var room roomPayload
	err := c.do(ctx, creds, http.MethodGet, "/rooms/"+url.PathEscape(name), nil, &room)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &ports.Room{
		Name:            room.Name,
		Metadata:        room.Metadata,
		NumParticipants: room.NumParticipants,
	}, nil
}

func (c *Client) ListEgress(ctx context.Context, creds ports.RoomCredentials, roomName string) ([]ports.EgressRecord, error) {
	var payload []egressPayload
	if err := c.do(ctx, creds, http.MethodGet, "/rooms/"+url.PathEscape(roomName)+"/egress", nil, &payload); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	records := make([]ports.EgressRecord, 0, len(payload))
	for _, e := range payload {
		rec := ports.EgressRecord{
			EgressID:    e.EgressID,
			RoomName:    e.RoomName,
			RequestType: e.RequestType,
			Status:      e.Status,
			TrackID:     e.TrackID,
			Location:    e.Location,
			Filename:    e.Filename,
		}
		if e.StartedAt > 0 {
			rec.StartedAt = time.Unix(e.StartedAt, 0).UTC()
		}
		records = append(records, rec)
	}
	return records, nil
}

// Roster fetches the room's participant list using an already-minted access
// token instead of the admin token.
func (c *Client) Roster(ctx context.Context, roomName, accessToken string) ([]ports.Participant, error) {
	endpoint := c.baseURL + "/rooms/" + url.PathEscape(roomName) + "/participants"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var payload []participantPayload
	if err := c.send(req, &payload); err != nil {
		return nil, err
	}

	roster := make([]ports.Participant, 0, len(payload))
	for _, p := range payload {
		roster = append(roster, ports.Participant{
			Identity: p.Identity,
			Name:     p.Name,
			TrackIDs: p.TrackIDs,
		})
	}
	return roster, nil
}

func (c *Client) do(ctx context.Context, creds ports.RoomCredentials, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := adminToken(creds)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("room service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("room service %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode room service response: %w", err)
	}
	return nil
}
