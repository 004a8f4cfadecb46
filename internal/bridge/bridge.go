// Package bridge relays PotatoMesh text messages into a Matrix room through
// per-node puppet accounts.
package bridge

//go:generate mockgen -destination=mock_bridge.go -package=bridge github.com/l5yth/potato-mesh/internal/bridge MeshClient,ChatClient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/l5yth/potato-mesh/internal/metrics"
	"github.com/l5yth/potato-mesh/internal/models"
	"github.com/l5yth/potato-mesh/internal/store"
)

// MeshClient reads messages and node metadata from PotatoMesh.
type MeshClient interface {
	FetchMessages(ctx context.Context, plan models.FetchPlan) ([]models.Message, error)
	GetNode(ctx context.Context, nodeID string) (*models.Node, error)
}

// ChatClient performs the Matrix operations needed to post as a puppet.
type ChatClient interface {
	EnsureUserRegistered(ctx context.Context, localpart string) error
	EnsureUserJoinedRoom(ctx context.Context, userID string) error
	SetDisplayName(ctx context.Context, userID, displayName string) error
	SendFormattedMessageAs(ctx context.Context, userID, body, formattedBody string) (string, error)
}

// Options configures a Bridge.
type Options struct {
	Mesh  MeshClient
	Chat  ChatClient
	Store store.CheckpointStore
	// Checkpoint is the state loaded at startup. Nil starts empty.
	Checkpoint *models.Checkpoint
	ServerName string
	Interval   time.Duration
	Logger     zerolog.Logger
}

// PollResult summarizes one poll cycle.
type PollResult struct {
	CycleID  string
	Fetched  int
	Relayed  int
	Recorded int // non-text messages advanced without relay
	Skipped  int // already seen
	Failed   int
}

// Status is the outcome of the most recent poll cycle.
type Status struct {
	At     time.Time
	Result PollResult
	Err    string
}

// Bridge owns the checkpoint and runs the forwarding loop. PollOnce and Run
// must not be called concurrently; Checkpoint and LastStatus are safe from
// any goroutine.
type Bridge struct {
	mesh       MeshClient
	chat       ChatClient
	store      store.CheckpointStore
	serverName string
	interval   time.Duration
	logger     zerolog.Logger

	mu        sync.RWMutex
	cp        *models.Checkpoint
	status    Status
	hasPolled bool
}

// New creates a Bridge.
func New(opts Options) *Bridge {
	cp := opts.Checkpoint
	if cp == nil {
		cp = &models.Checkpoint{}
	}
	cp = cp.Clone()
	cp.Normalize()

	interval := opts.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	return &Bridge{
		mesh:       opts.Mesh,
		chat:       opts.Chat,
		store:      opts.Store,
		serverName: opts.ServerName,
		interval:   interval,
		logger:     opts.Logger,
		cp:         cp,
	}
}

// Checkpoint returns a copy of the current checkpoint.
func (b *Bridge) Checkpoint() *models.Checkpoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cp.Clone()
}

// LastStatus returns the most recent poll outcome and whether any poll has
// completed yet.
func (b *Bridge) LastStatus() (Status, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status, b.hasPolled
}

// Run polls until ctx is cancelled, sleeping a fixed interval between cycles.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info().Dur("interval", b.interval).Msg("Forwarding loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Forwarding loop stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := b.PollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error().Err(err).Msg("Poll cycle failed")
		}
		timer.Reset(b.interval)
	}
}

// PollOnce runs a single fetch-and-relay cycle. Only a failed fetch is
// returned as an error; per-message failures are logged and counted.
func (b *Bridge) PollOnce(ctx context.Context) (PollResult, error) {
	start := time.Now()
	result := PollResult{CycleID: uuid.Must(uuid.NewV7()).String()}
	log := b.logger.With().Str("cycle_id", result.CycleID).Logger()

	defer func() {
		metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	plan := PlanFetch(b.Checkpoint())
	msgs, err := b.mesh.FetchMessages(ctx, plan)
	if err != nil {
		metrics.FetchErrors.Inc()
		err = fmt.Errorf("%w: %w", ErrFetch, err)
		b.finish(result, err)
		return result, err
	}
	result.Fetched = len(msgs)

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].RxTime < msgs[j].RxTime
	})

	for i := range msgs {
		msg := &msgs[i]

		if !b.admit(msg) {
			result.Skipped++
			metrics.MessagesSkipped.WithLabelValues("seen").Inc()
			continue
		}

		if !msg.IsText() {
			b.advance(ctx, log, msg)
			result.Recorded++
			metrics.MessagesSkipped.WithLabelValues("non_text").Inc()
			continue
		}

		if err := b.relay(ctx, log, msg); err != nil {
			result.Failed++
			log.Error().Err(err).Uint64("message_id", msg.ID).Msg("Error handling message")
			continue
		}

		b.advance(ctx, log, msg)
		result.Relayed++
		metrics.MessagesRelayed.Inc()
	}

	log.Debug().
		Int("fetched", result.Fetched).
		Int("relayed", result.Relayed).
		Int("recorded", result.Recorded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Poll cycle complete")

	b.finish(result, nil)
	return result, nil
}

func (b *Bridge) admit(msg *models.Message) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cp.ShouldForward(msg)
}

// advance records msg in the checkpoint and persists it. A failed write is
// logged; the in-memory checkpoint still moves forward.
func (b *Bridge) advance(ctx context.Context, log zerolog.Logger, msg *models.Message) {
	b.mu.Lock()
	b.cp.Record(msg)
	snapshot := b.cp.Clone()
	b.mu.Unlock()

	if snapshot.LastRxTime != nil {
		metrics.LastRxTime.Set(float64(*snapshot.LastRxTime))
	}
	log.Info().
		Uint64("message_id", msg.ID).
		Interface("checkpoint", snapshot).
		Msg("Updated state")

	if b.store == nil {
		return
	}
	start := time.Now()
	err := b.store.Save(ctx, snapshot)
	metrics.CheckpointWriteLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CheckpointWrites.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("Error saving state")
		return
	}
	metrics.CheckpointWrites.WithLabelValues("ok").Inc()
}

// relay posts msg as its node's puppet. Registration and display name
// failures are tolerated; lookup, join and send failures abort.
func (b *Bridge) relay(ctx context.Context, log zerolog.Logger, msg *models.Message) error {
	node, err := b.mesh.GetNode(ctx, msg.NodeID)
	if err != nil {
		metrics.RelayFailures.WithLabelValues("lookup").Inc()
		return fmt.Errorf("%w: %s: %w", ErrLookup, msg.NodeID, err)
	}

	localpart := Localpart(msg.NodeID)
	userID := UserID(localpart, b.serverName)

	if err := b.chat.EnsureUserRegistered(ctx, localpart); err != nil {
		log.Warn().Err(err).Str("localpart", localpart).Msg("Puppet registration failed, continuing")
	}

	if err := b.chat.EnsureUserJoinedRoom(ctx, userID); err != nil {
		metrics.RelayFailures.WithLabelValues("join").Inc()
		return fmt.Errorf("%w: join %s: %w", ErrRelay, userID, err)
	}

	if err := b.chat.SetDisplayName(ctx, userID, DisplayName(node)); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to set display name")
	}

	plain, rich := FormatMessage(MessagePrefix(msg), msg.Text)
	eventID, err := b.chat.SendFormattedMessageAs(ctx, userID, plain, rich)
	if err != nil {
		metrics.RelayFailures.WithLabelValues("send").Inc()
		return fmt.Errorf("%w: send as %s: %w", ErrRelay, userID, err)
	}

	log.Info().
		Uint64("message_id", msg.ID).
		Uint64("rx_time", msg.RxTime).
		Str("user_id", userID).
		Str("event_id", eventID).
		Msg("Bridged message")
	return nil
}

func (b *Bridge) finish(result PollResult, err error) {
	status := Status{At: time.Now(), Result: result}
	if err != nil {
		status.Err = err.Error()
	}
	b.mu.Lock()
	b.status = status
	b.hasPolled = true
	b.mu.Unlock()
}
