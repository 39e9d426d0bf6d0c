package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
)

type fakeSource struct {
	handlers     []connection.Handler
	unsubscribed int
}

func (that *fakeSource) Subscribe(handler connection.Handler) func() {
	that.handlers = append(that.handlers, handler)

	return func() { that.unsubscribed++ }
}

func newTestDispatcher(clock clockwork.Clock) (*Dispatcher, *Model, *Notices) {
	model := NewModel()
	notices := NewNotices(clock, DefaultNoticeTTL)

	return NewDispatcher(discardLogger(), model, notices, idleReconciler(model)), model, notices
}

func TestDispatcher_Handle(t *testing.T) {
	t.Run("Room created with a snapshot sets the assignment and the state", func(t *testing.T) {
		dispatcher, model, _ := newTestDispatcher(clockwork.NewFakeClock())
		model.SetPending(true)

		// Given: the remote answers create_room for Ana
		state := roomState("r1", entity.StatusWaiting, entity.PlayerX)
		state.Player1Name = name("Ana")

		// When: room_created arrives
		dispatcher.Handle(protocol.RoomCreated{RoomID: "r1", Assigned: entity.PlayerX, State: &state})

		// Then: waiting, assigned X, no longer pending
		view := model.View()
		require.NotNil(t, view.State)
		assert.Equal(t, entity.StatusWaiting, view.State.Status)
		assert.Equal(t, entity.PlayerX, view.Assignment)
		assert.Equal(t, "r1", view.RoomID)
		assert.False(t, view.Pending)
	})

	t.Run("Decoded room_created payload drives the model", func(t *testing.T) {
		dispatcher, model, _ := newTestDispatcher(clockwork.NewFakeClock())

		event, err := protocol.Decode(`2["room_created",{"roomId":"r1","assigned":"X","state":` +
			`{"room_id":"r1","player1_name":"Ana","player2_name":null,"board":["","","","","","","","",""],` +
			`"turn":"X","status":"waiting"}}]`)
		require.NoError(t, err)

		dispatcher.Handle(event)

		state, ok := model.State()
		require.True(t, ok)
		assert.Equal(t, entity.StatusWaiting, state.Status)
		assert.Equal(t, entity.PlayerX, model.Assignment())
	})

	t.Run("Room joined sets the assignment only", func(t *testing.T) {
		dispatcher, model, _ := newTestDispatcher(clockwork.NewFakeClock())

		dispatcher.Handle(protocol.RoomJoined{RoomID: "r1", Assigned: entity.PlayerO})

		assert.Equal(t, entity.PlayerO, model.Assignment())
		_, ok := model.State()
		assert.False(t, ok)
	})

	t.Run("Room state always replaces, even after an initial snapshot", func(t *testing.T) {
		dispatcher, model, _ := newTestDispatcher(clockwork.NewFakeClock())
		initial := roomState("r1", entity.StatusWaiting, entity.PlayerX)
		dispatcher.Handle(protocol.RoomCreated{RoomID: "r1", Assigned: entity.PlayerX, State: &initial})

		pushed := roomState("r1", entity.StatusActive, entity.PlayerO, entity.CellX)
		dispatcher.Handle(protocol.RoomStateEvent{State: pushed})

		got, _ := model.State()
		assert.Equal(t, pushed, got)
	})

	t.Run("Room state for another room is dropped", func(t *testing.T) {
		dispatcher, model, _ := newTestDispatcher(clockwork.NewFakeClock())
		model.Bind("r1")

		dispatcher.Handle(protocol.RoomStateEvent{State: roomState("r2", entity.StatusActive, entity.PlayerX)})

		_, ok := model.State()
		assert.False(t, ok)
		assert.Equal(t, "r1", model.RoomID())
	})

	t.Run("Game over sets the ended marker without touching the snapshot", func(t *testing.T) {
		dispatcher, model, _ := newTestDispatcher(clockwork.NewFakeClock())
		active := roomState("r1", entity.StatusActive, entity.PlayerO)
		dispatcher.Handle(protocol.RoomStateEvent{State: active})

		dispatcher.Handle(protocol.GameOver{Status: entity.StatusXWon})

		assert.Equal(t, entity.StatusXWon, model.Ended())
		got, _ := model.State()
		assert.Equal(t, active, got)
		assert.Equal(t, LabelXWon, model.View().Label())
	})

	t.Run("Illegal move shows a cell-occupied notice that clears itself", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		dispatcher, model, notices := newTestDispatcher(clock)
		active := roomState("r1", entity.StatusActive, entity.PlayerX, entity.CellX)
		dispatcher.Handle(protocol.RoomStateEvent{State: active})
		model.SetPending(true)

		// When: the remote rejects a move
		dispatcher.Handle(protocol.IllegalMove{Code: "CELL_OCCUPIED"})

		// Then: a cell-occupied notice is shown, the snapshot is untouched
		notice, ok := notices.Current()
		require.True(t, ok)
		assert.Equal(t, apperror.CategoryCellOccupied, notice.Category)
		got, _ := model.State()
		assert.Equal(t, active, got)
		assert.False(t, model.View().Pending)

		// When: the fixed interval elapses
		clock.Advance(DefaultNoticeTTL)

		// Then: the notice is gone
		assert.Eventually(t, func() bool {
			_, ok := notices.Current()
			return !ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("Protocol errors are classified", func(t *testing.T) {
		dispatcher, _, notices := newTestDispatcher(clockwork.NewFakeClock())

		dispatcher.Handle(protocol.ProtocolError{Code: "ROOM_NOT_FOUND", Message: "no such room"})

		notice, ok := notices.Current()
		require.True(t, ok)
		assert.Equal(t, apperror.CategoryRoomNotFound, notice.Category)
		assert.Equal(t, "no such room", notice.Text)
	})

	t.Run("Connection events only touch the connected flag", func(t *testing.T) {
		dispatcher, model, notices := newTestDispatcher(clockwork.NewFakeClock())

		dispatcher.Handle(protocol.ConnectionAck{SID: "s1"})
		assert.True(t, model.View().Connected)

		dispatcher.Handle(protocol.Disconnected{Reason: "network down"})
		assert.False(t, model.View().Connected)

		dispatcher.Handle(protocol.ConnectError{Message: "denied"})
		dispatcher.Handle(protocol.LivenessAck{})
		dispatcher.Handle(protocol.Unknown{Name: "chat", Payload: []byte(`{}`)})

		_, ok := notices.Current()
		assert.False(t, ok)
		_, ok = model.State()
		assert.False(t, ok)
	})
}

func TestDispatcher_Attach(t *testing.T) {
	t.Run("Attach subscribes once and detach is idempotent", func(t *testing.T) {
		dispatcher, model, _ := newTestDispatcher(clockwork.NewFakeClock())
		source := &fakeSource{}

		dispatcher.Attach(source)
		require.Len(t, source.handlers, 1)

		source.handlers[0](protocol.RoomJoined{RoomID: "r1", Assigned: entity.PlayerO})
		assert.Equal(t, entity.PlayerO, model.Assignment())

		dispatcher.Detach()
		dispatcher.Detach()

		assert.Equal(t, 1, source.unsubscribed)
	})

	t.Run("Attaching again replaces the previous subscription", func(t *testing.T) {
		dispatcher, _, _ := newTestDispatcher(clockwork.NewFakeClock())
		first, second := &fakeSource{}, &fakeSource{}

		dispatcher.Attach(first)
		dispatcher.Attach(second)

		assert.Equal(t, 1, first.unsubscribed)
		assert.Len(t, second.handlers, 1)
	})
}
