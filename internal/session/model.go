package session

import (
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const (
	LabelConnecting = "Connecting…"
	LabelWaiting    = "Waiting for player…"
	LabelXWon       = "X won!"
	LabelOWon       = "O won!"
	LabelDraw       = "Draw!"
)

// View is a consistent copy of everything the model holds.
type View struct {
	RoomID     string
	State      *entity.RoomState
	Assignment entity.Mark
	Ended      entity.Status
	Pending    bool
	Connected  bool
}

// Label - short status line for the current view. The ended marker wins over the snapshot status.
func (that View) Label() string {
	switch that.Ended {
	case entity.StatusXWon:
		return LabelXWon
	case entity.StatusOWon:
		return LabelOWon
	case entity.StatusDraw:
		return LabelDraw
	}

	if that.State == nil {
		return LabelConnecting
	}

	switch that.State.Status {
	case entity.StatusWaiting:
		return LabelWaiting
	case entity.StatusActive:
		return fmt.Sprintf("Turn: %s", that.State.Turn)
	case entity.StatusXWon:
		return LabelXWon
	case entity.StatusOWon:
		return LabelOWon
	case entity.StatusDraw:
		return LabelDraw
	default:
		return LabelConnecting
	}
}

// Model is the single mutable owner of the room snapshot, the assignment and the session markers.
type Model struct {
	mu         sync.RWMutex
	roomID     string
	state      *entity.RoomState
	applied    bool
	assignment entity.Mark
	ended      entity.Status
	pending    bool
	connected  bool

	observersMu sync.Mutex
	observers   []func(View)
}

func NewModel() *Model {
	return &Model{}
}

// OnChange - registers an observer called after every mutation, outside the model lock.
func (that *Model) OnChange(observer func(View)) {
	that.observersMu.Lock()
	defer that.observersMu.Unlock()

	that.observers = append(that.observers, observer)
}

// Bind - binds the model to a room. Switching to another room drops the snapshot, the assignment and the markers.
func (that *Model) Bind(roomID string) {
	that.mu.Lock()
	if that.roomID == roomID {
		that.mu.Unlock()
		return
	}

	that.roomID = roomID
	that.state = nil
	that.applied = false
	that.assignment = entity.Unassigned
	that.ended = ""
	that.pending = false
	view := that.viewLocked()
	that.mu.Unlock()

	that.notify(view)
}

// Replace - fully replaces the snapshot. An unbound model binds to the snapshot's room.
func (that *Model) Replace(state entity.RoomState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	that.mu.Lock()
	if that.roomID != "" && that.roomID != state.RoomID {
		bound := that.roomID
		that.mu.Unlock()

		return fmt.Errorf("%w: bound to %q, got %q", apperror.ErrRoomMismatch, bound, state.RoomID)
	}

	that.roomID = state.RoomID
	that.setLocked(state)
	view := that.viewLocked()
	that.mu.Unlock()

	that.notify(view)

	return nil
}

// ApplyInitial - sets the snapshot only if none was applied since binding.
// Reports whether the snapshot was applied.
func (that *Model) ApplyInitial(state entity.RoomState) (bool, error) {
	if err := state.Validate(); err != nil {
		return false, err
	}

	that.mu.Lock()
	if that.roomID != "" && that.roomID != state.RoomID {
		bound := that.roomID
		that.mu.Unlock()

		return false, fmt.Errorf("%w: bound to %q, got %q", apperror.ErrRoomMismatch, bound, state.RoomID)
	}

	if that.applied {
		that.mu.Unlock()
		return false, nil
	}

	that.roomID = state.RoomID
	that.setLocked(state)
	view := that.viewLocked()
	that.mu.Unlock()

	that.notify(view)

	return true, nil
}

// setLocked - a non terminal snapshot after a game over means the room was restarted.
func (that *Model) setLocked(state entity.RoomState) {
	that.state = &state
	that.applied = true

	if !state.Status.Terminal() {
		that.ended = ""
	}
}

func (that *Model) SetAssignment(mark entity.Mark) {
	that.update(func() { that.assignment = mark })
}

func (that *Model) MarkEnded(status entity.Status) {
	that.update(func() { that.ended = status })
}

func (that *Model) ClearEnded() {
	that.update(func() { that.ended = "" })
}

func (that *Model) SetPending(pending bool) {
	that.update(func() { that.pending = pending })
}

func (that *Model) SetConnected(connected bool) {
	that.update(func() { that.connected = connected })
}

func (that *Model) RoomID() string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.roomID
}

// State - returns a copy of the current snapshot.
func (that *Model) State() (entity.RoomState, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.state == nil {
		return entity.RoomState{}, false
	}

	return *that.state, true
}

func (that *Model) Assignment() entity.Mark {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.assignment
}

func (that *Model) Ended() entity.Status {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.ended
}

func (that *Model) View() View {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.viewLocked()
}

func (that *Model) update(mutate func()) {
	that.mu.Lock()
	mutate()
	view := that.viewLocked()
	that.mu.Unlock()

	that.notify(view)
}

func (that *Model) viewLocked() View {
	view := View{
		RoomID:     that.roomID,
		Assignment: that.assignment,
		Ended:      that.ended,
		Pending:    that.pending,
		Connected:  that.connected,
	}

	if that.state != nil {
		state := *that.state
		view.State = &state
	}

	return view
}

func (that *Model) notify(view View) {
	that.observersMu.Lock()
	observers := make([]func(View), len(that.observers))
	copy(observers, that.observers)
	that.observersMu.Unlock()

	for _, observer := range observers {
		observer(view)
	}
}

// Record - the view as published to the state mirror.
func (that View) Record() entity.SessionRecord {
	return entity.SessionRecord{
		RoomID:     that.RoomID,
		State:      that.State,
		Assignment: that.Assignment,
		Ended:      that.Ended,
		Label:      that.Label(),
		Connected:  that.Connected,
	}
}
