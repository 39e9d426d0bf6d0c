package session

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeEmitter struct {
	mu   sync.Mutex
	sent []protocol.Outbound
	err  error
}

func (that *fakeEmitter) Emit(out protocol.Outbound) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.err != nil {
		return that.err
	}

	that.sent = append(that.sent, out)

	return nil
}

func (that *fakeEmitter) Sent() []protocol.Outbound {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]protocol.Outbound(nil), that.sent...)
}

// fakeFetcher blocks every fetch until release is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	state   *entity.RoomState
	err     error
	release chan struct{}
}

func newFakeFetcher(state *entity.RoomState, err error) *fakeFetcher {
	return &fakeFetcher{state: state, err: err, release: make(chan struct{})}
}

func (that *fakeFetcher) FetchRoom(ctx context.Context, _ string) (*entity.RoomState, error) {
	that.mu.Lock()
	that.calls++
	that.mu.Unlock()

	select {
	case <-that.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if that.err != nil {
		return nil, that.err
	}

	state := *that.state

	return &state, nil
}

func (that *fakeFetcher) Calls() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.calls
}

// idleReconciler answers every fallback fetch with no snapshot.
func idleReconciler(model *Model) *Reconciler {
	fetcher := newFakeFetcher(nil, apperror.ErrNoSnapshot)
	close(fetcher.release)

	return NewReconciler(discardLogger(), model, &fakeEmitter{}, fetcher, 0)
}

func roomState(roomID string, status entity.Status, turn entity.Mark, board ...entity.Cell) entity.RoomState {
	state := entity.NewRoomState(roomID)
	state.Status = status
	state.Turn = turn
	copy(state.Board[:], board)

	return *state
}

func name(s string) *string {
	return &s
}
