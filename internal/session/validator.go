package session

import (
	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// ValidateMove - checks a move against the last known snapshot before it is sent. First failure wins.
// It never mutates and is not authoritative: the remote process validates every move again.
func ValidateMove(state *entity.RoomState, assigned entity.Mark, ended entity.Status, index int) error {
	if state == nil || !state.IsActive() || ended != "" {
		return apperror.ErrGameNotActive
	}

	if !assigned.Valid() {
		return apperror.ErrPlayerNotIdentified
	}

	if state.Turn != assigned {
		return apperror.ErrNotYourTurn
	}

	if index < 0 || index >= entity.BoardSize {
		return apperror.ErrInvalidIndex
	}

	if !state.IsCellEmpty(index) {
		return apperror.ErrCellOccupied
	}

	return nil
}
