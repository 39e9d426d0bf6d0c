package session

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
)

const (
	DefaultCreatorName = "Player 1"
	DefaultJoinerName  = "Player 2"
)

// Controller is the single entry point for player intents.
type Controller struct {
	logger  *slog.Logger
	model   *Model
	emitter intentEmitter
	notices *Notices
}

func NewController(logger *slog.Logger, model *Model, emitter intentEmitter, notices *Notices) *Controller {
	return &Controller{
		logger:  logger.With("component", "controller"),
		model:   model,
		emitter: emitter,
		notices: notices,
	}
}

// CreateRoom - asks for a new room. An empty name falls back to DefaultCreatorName.
func (that *Controller) CreateRoom(playerName string) error {
	playerName = defaultName(playerName, DefaultCreatorName)

	that.model.SetPending(true)

	return that.emit(protocol.CreateRoom{PlayerName: playerName})
}

// JoinRoom - asks to be seated in roomID. An empty room id is rejected locally.
func (that *Controller) JoinRoom(roomID, playerName string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		that.notices.ShowError(apperror.ErrRoomNotFound)
		return apperror.ErrRoomNotFound
	}

	playerName = defaultName(playerName, DefaultJoinerName)

	that.model.SetPending(true)

	return that.emit(protocol.JoinRoom{RoomID: roomID, PlayerName: playerName})
}

// Move - validates the move locally and forwards it. A rejected move is never sent.
func (that *Controller) Move(index int) error {
	log := that.logger.With("method", "Move", "index", index)

	view := that.model.View()

	if err := ValidateMove(view.State, view.Assignment, view.Ended, index); err != nil {
		log.Debug("move rejected locally", "error", err)
		that.notices.ShowError(err)

		return err
	}

	return that.emit(protocol.MakeMove{RoomID: view.RoomID, Index: index})
}

// Restart - clears the ended marker and asks for a new round. The new status comes from the next snapshot.
func (that *Controller) Restart() error {
	roomID := that.model.RoomID()
	if roomID == "" {
		that.notices.ShowError(apperror.ErrRoomNotFound)
		return apperror.ErrRoomNotFound
	}

	that.model.ClearEnded()

	return that.emit(protocol.Restart{RoomID: roomID})
}

func (that *Controller) Ping() error {
	return that.emit(protocol.Ping{})
}

func (that *Controller) emit(out protocol.Outbound) error {
	if err := that.emitter.Emit(out); err != nil {
		that.logger.Error("failed to emit intent", "event", out.EventName(), "error", err)
		that.notices.ShowError(err)
		that.model.SetPending(false)

		return fmt.Errorf("failed to emit %s: %w", out.EventName(), err)
	}

	return nil
}

func defaultName(name, fallback string) string {
	if name = strings.TrimSpace(name); name == "" {
		return fallback
	}

	return name
}
