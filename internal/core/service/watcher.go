package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetkit/meetkit/internal/core/domain"
	"github.com/meetkit/meetkit/internal/core/ports"
)

// ErrWatcherExists is returned when a watcher is already registered for a
// session id, which keeps the one-watcher-per-session invariant even if a
// creation path runs twice.
var ErrWatcherExists = errors.New("watcher already registered for session")

// WatcherRegistry tracks the background watcher of every active session and
// supports cooperative cancellation, so explicit stops and process shutdown
// can deterministically end a watcher instead of abandoning it.
type WatcherRegistry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	log     zerolog.Logger
}

func NewWatcherRegistry(log zerolog.Logger) *WatcherRegistry {
	return &WatcherRegistry{cancels: make(map[string]context.CancelFunc), log: log}
}

// Spawn runs fn on its own goroutine under a cancellable context keyed by
// sessionID. The task outlives the HTTP request that triggered it.
func (r *WatcherRegistry) Spawn(sessionID string, fn func(ctx context.Context)) error {
	r.mu.Lock()
	if _, ok := r.cancels[sessionID]; ok {
		r.mu.Unlock()
		return ErrWatcherExists
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancels[sessionID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.remove(sessionID)
		fn(ctx)
	}()
	return nil
}

// Cancel stops the watcher for sessionID, if one is running.
func (r *WatcherRegistry) Cancel(sessionID string) {
	r.mu.Lock()
	cancel, ok := r.cancels[sessionID]
	delete(r.cancels, sessionID)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels every watcher and waits for them to return.
func (r *WatcherRegistry) Shutdown() {
	r.mu.Lock()
	for id, cancel := range r.cancels {
		cancel()
		delete(r.cancels, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Active reports how many watchers are currently running.
func (r *WatcherRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}

func (r *WatcherRegistry) remove(sessionID string) {
	r.mu.Lock()
	if cancel, ok := r.cancels[sessionID]; ok {
		delete(r.cancels, sessionID)
		cancel()
	}
	r.mu.Unlock()
}

// roomWatcher polls the external room registry until the session's room
// disappears or its correlation metadata stops matching, then finalizes the
// session. The registry offers no push notifications, so polling is the only
// way to observe termination.
type roomWatcher struct {
	session     domain.Session
	creds       ports.RoomCredentials
	rooms       ports.RoomService
	sessions    ports.SessionRepository
	reconciler  *EgressReconciler
	interval    time.Duration
	maxMisses   int
	egressGrace time.Duration
	log         zerolog.Logger
}

func (w *roomWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	seen := false
	misses := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		room, err := w.rooms.GetRoom(ctx, w.creds, w.session.RoomName)
		if err != nil {
			// Network errors are retried on the next tick; only the poll
			// loop retries external-service failures.
			w.log.Warn().Err(err).Str("room", w.session.RoomName).Msg("room poll failed")
			continue
		}

		if !seen {
			if room == nil {
				// Covers the window between session row creation and the
				// room actually provisioning.
				misses++
				if misses >= w.maxMisses {
					w.log.Warn().
						Str("session_id", w.session.ID).
						Int("misses", misses).
						Msg("room never observed, treating as gone")
					w.finalize(ctx, nil)
					return
				}
				continue
			}
			seen = true
			misses = 0
		}

		if room == nil {
			w.finalize(ctx, room)
			return
		}

		meta, err := domain.ParseRoomMetadata(room.Metadata)
		if err != nil || !meta.Matches(w.session.ID) {
			// The room was recreated under the same name or its metadata was
			// edited; either way it no longer belongs to this session.
			w.log.Info().
				Str("session_id", w.session.ID).
				Str("room", w.session.RoomName).
				Msg("room metadata no longer correlates, session ended")
			w.finalize(ctx, room)
			return
		}
	}
}

// finalize marks the session stopped and reconciles its egresses. Enrichment
// steps (roster drain, egress listing) are best effort: their failure never
// blocks status finalization.
func (w *roomWatcher) finalize(ctx context.Context, room *ports.Room) {
	var roster []ports.Participant
	if room != nil {
		roster = w.drainRoster(ctx)
	}

	now := time.Now().UTC()
	if err := w.sessions.UpdateStatus(ctx, w.session.ID, domain.SessionStarted, domain.SessionStopped, now); err != nil {
		// Already stopped (explicit stop raced the watcher) or deleted.
		w.log.Warn().Err(err).Str("session_id", w.session.ID).Msg("session finalize status update")
	} else {
		w.log.Info().Str("session_id", w.session.ID).Msg("session stopped by watcher")
	}

	w.waitForEgressSettle(ctx)

	if err := w.reconciler.Reconcile(ctx, w.creds, &w.session, roster); err != nil {
		w.log.Error().Err(err).Str("session_id", w.session.ID).Msg("egress reconciliation failed")
	}
}

// drainRoster connects as a hidden, subscribe-only room admin and fetches the
// final participant/track roster.
func (w *roomWatcher) drainRoster(ctx context.Context) []ports.Participant {
	token, err := w.rooms.AccessToken(w.creds, ports.RoomGrant{
		Room:         w.session.RoomName,
		Identity:     "meetkit-observer-" + w.session.ID,
		CanSubscribe: true,
		Hidden:       true,
		RoomAdmin:    true,
		TTL:          time.Minute,
	})
	if err != nil {
		w.log.Warn().Err(err).Str("session_id", w.session.ID).Msg("observer token mint failed")
		return nil
	}

	roster, err := w.rooms.Roster(ctx, w.session.RoomName, token)
	if err != nil {
		w.log.Warn().Err(err).Str("session_id", w.session.ID).Msg("final roster drain failed")
		return nil
	}
	return roster
}

// waitForEgressSettle grace-polls while any egress job is still ending, so
// the reconciler sees terminal statuses where possible.
func (w *roomWatcher) waitForEgressSettle(ctx context.Context) {
	deadline := time.Now().Add(w.egressGrace)
	for time.Now().Before(deadline) {
		records, err := w.rooms.ListEgress(ctx, w.creds, w.session.RoomName)
		if err != nil {
			w.log.Warn().Err(err).Str("session_id", w.session.ID).Msg("egress grace poll failed")
			return
		}
		ending := false
		for _, rec := range records {
			if domain.EgressStatusFromProvider(rec.Status) == domain.EgressEnding {
				ending = true
				break
			}
		}
		if !ending {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
	}
}
