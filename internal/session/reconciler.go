package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
)

const defaultFallbackTimeout = 5 * time.Second

type intentEmitter interface {
	Emit(out protocol.Outbound) error
}

type snapshotFetcher interface {
	FetchRoom(ctx context.Context, roomID string) (*entity.RoomState, error)
}

// Reconciler merges the fallback snapshot with pushed snapshots. The first applied snapshot wins.
type Reconciler struct {
	logger  *slog.Logger
	model   *Model
	emitter intentEmitter
	fetcher snapshotFetcher
	timeout time.Duration

	mu      sync.Mutex
	current *Mount
}

func NewReconciler(logger *slog.Logger, model *Model, emitter intentEmitter, fetcher snapshotFetcher, timeout time.Duration) *Reconciler {
	if timeout <= 0 {
		timeout = defaultFallbackTimeout
	}

	return &Reconciler{
		logger:  logger.With("component", "reconciler"),
		model:   model,
		emitter: emitter,
		fetcher: fetcher,
		timeout: timeout,
	}
}

// Mount is one mounted session view.
type Mount struct {
	ID     string
	RoomID string

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unmount - cancels the fallback fetch. A result arriving later is ignored. Safe to call repeatedly.
func (that *Mount) Unmount() {
	that.once.Do(that.cancel)
}

// Wait - blocks until the fallback fetch, if any, settled.
func (that *Mount) Wait() {
	<-that.done
}

// Mount - binds the model to roomID and applies initial, or issues exactly one fallback fetch when initial is nil.
func (that *Reconciler) Mount(ctx context.Context, roomID string, initial *entity.RoomState) *Mount {
	ctx, cancel := context.WithCancel(ctx)

	mount := &Mount{
		ID:     uuid.NewString(),
		RoomID: roomID,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	log := that.logger.With("method", "Mount", "roomID", roomID, "mountID", mount.ID)

	that.model.Bind(roomID)

	if err := that.emitter.Emit(protocol.Ping{}); err != nil {
		log.Warn("failed to send liveness ping", "error", err)
	}

	if initial != nil {
		close(mount.done)

		if _, err := that.model.ApplyInitial(*initial); err != nil {
			log.Error("dropping initial snapshot", "error", err)
		}

		return mount
	}

	go func() {
		defer close(mount.done)
		that.fetch(ctx, log, roomID)
	}()

	return mount
}

// Open - replaces the current mount with a new one for roomID.
func (that *Reconciler) Open(ctx context.Context, roomID string, initial *entity.RoomState) *Mount {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.current != nil {
		that.current.Unmount()
	}

	that.current = that.Mount(ctx, roomID, initial)

	return that.current
}

// Close - unmounts the current mount and waits for its fallback fetch to settle.
func (that *Reconciler) Close() {
	that.mu.Lock()
	current := that.current
	that.current = nil
	that.mu.Unlock()

	if current != nil {
		current.Unmount()
		current.Wait()
	}
}

// fetch - runs once per mount and is never retried, the push channel catches up on failure.
func (that *Reconciler) fetch(ctx context.Context, log *slog.Logger, roomID string) {
	fetchCtx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	state, err := that.fetcher.FetchRoom(fetchCtx, roomID)

	if ctx.Err() != nil {
		log.Debug("mount gone, ignoring fallback result")
		return
	}

	if err != nil {
		if errors.Is(err, apperror.ErrNoSnapshot) {
			log.Debug("fallback has no snapshot", "error", err)
		} else {
			log.Warn("fallback fetch failed", "error", err)
		}

		return
	}

	applied, err := that.model.ApplyInitial(*state)
	if err != nil {
		log.Error("dropping fallback snapshot", "error", err)
		return
	}

	if !applied {
		log.Debug("fallback snapshot discarded, a pushed snapshot was applied first")
		return
	}

	log.Info("fallback snapshot applied")
}
