package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

// EgressReconciler normalizes the provider's egress records for a terminated
// room into per-track SessionEgress rows.
type EgressReconciler struct {
	egresses ports.EgressRepository
	rooms    ports.RoomService
	log      zerolog.Logger
}

func NewEgressReconciler(egresses ports.EgressRepository, rooms ports.RoomService, log zerolog.Logger) *EgressReconciler {
	return &EgressReconciler{egresses: egresses, rooms: rooms, log: log}
}

// Reconcile fetches all egress records for the session's room and upserts one
// row per egress id. Upserting keyed by egress id makes re-runs idempotent:
// the finalize step can in principle run more than once under process
// restart.
func (r *EgressReconciler) Reconcile(ctx context.Context, creds ports.RoomCredentials, session *domain.Session, roster []ports.Participant) error {
	records, err := r.rooms.ListEgress(ctx, creds, session.RoomName)
	if err != nil {
		return fmt.Errorf("list egress for room %s: %w", session.RoomName, err)
	}

	identityByTrack := make(map[string]string)
	for _, p := range roster {
		for _, trackID := range p.TrackIDs {
			identityByTrack[trackID] = p.Identity
		}
	}

	for _, rec := range records {
		egressType, ok := domain.EgressTypeFromRequest(rec.RequestType)
		if !ok {
			r.log.Warn().
				Str("egress_id", rec.EgressID).
				Str("request_type", rec.RequestType).
				Msg("skipping egress with unrecognised request type")
			continue
		}

		status := domain.EgressStatusFromProvider(rec.Status)

		// A destination only makes sense for a recording that finished.
		destination := ""
		if status == domain.EgressComplete && rec.Location != "" && rec.Filename != "" {
			destination = rec.Location + "/" + rec.Filename
		}

		row := &domain.SessionEgress{
			SessionID:     session.ID,
			RoomName:      session.RoomName,
			TrackID:       rec.TrackID,
			EgressID:      rec.EgressID,
			EgressType:    egressType,
			Status:        status,
			Destination:   destination,
			ParticipantID: identityByTrack[rec.TrackID],
			StartedAt:     rec.StartedAt,
		}
		if err := r.egresses.Upsert(ctx, row); err != nil {
			return fmt.Errorf("upsert egress %s: %w", rec.EgressID, err)
		}
	}

	r.log.Info().
		Str("session_id", session.ID).
		Int("records", len(records)).
		Msg("egress reconciliation complete")
	return nil
}
