package apperror

import (
	"errors"
	"strings"
)

// Category is a stable, user-facing error class. The set is closed.
type Category string

const (
	CategoryNotYourTurn        Category = "not-your-turn"
	CategoryCellOccupied       Category = "cell-occupied"
	CategoryInvalidIndex       Category = "invalid-index"
	CategoryGameNotActive      Category = "game-not-active"
	CategoryRoomNotFound       Category = "room-not-found"
	CategoryGenericIllegalMove Category = "generic-illegal-move"
	CategoryTransportError     Category = "transport-error"
)

var codeCategories = map[string]Category{
	"NOT_YOUR_TURN":      CategoryNotYourTurn,
	"WRONG_TURN":         CategoryNotYourTurn,
	"CELL_OCCUPIED":      CategoryCellOccupied,
	"CELL_TAKEN":         CategoryCellOccupied,
	"INVALID_INDEX":      CategoryInvalidIndex,
	"INVALID_MOVE_INDEX": CategoryInvalidIndex,
	"OUT_OF_RANGE":       CategoryInvalidIndex,
	"GAME_NOT_ACTIVE":    CategoryGameNotActive,
	"GAME_NOT_STARTED":   CategoryGameNotActive,
	"GAME_OVER":          CategoryGameNotActive,
	"GAME_FINISHED":      CategoryGameNotActive,
	"ROOM_NOT_FOUND":     CategoryRoomNotFound,
	"TRANSPORT_ERROR":    CategoryTransportError,
	"CONNECT_ERROR":      CategoryTransportError,
	"TIMEOUT":            CategoryTransportError,
}

var categoryMessages = map[Category]string{
	CategoryNotYourTurn:        "It's not your turn.",
	CategoryCellOccupied:       "That cell is already taken.",
	CategoryInvalidIndex:       "That cell does not exist.",
	CategoryGameNotActive:      "The game is not in progress.",
	CategoryRoomNotFound:       "Room not found.",
	CategoryGenericIllegalMove: "Move not allowed.",
	CategoryTransportError:     "Connection problem, retrying.",
}

// Classify - maps a remote error code to its category. Unknown codes fall back to generic-illegal-move.
func Classify(code string) Category {
	if category, ok := codeCategories[normalizeCode(code)]; ok {
		return category
	}

	return CategoryGenericIllegalMove
}

// CategoryOf - maps an error (local validator rejection, remote rejection or transport failure) to its category.
func CategoryOf(err error) Category {
	var rejection *Rejection

	switch {
	case err == nil:
		return CategoryGenericIllegalMove
	case errors.As(err, &rejection):
		return rejection.Category()
	case errors.Is(err, ErrGameNotActive):
		return CategoryGameNotActive
	case errors.Is(err, ErrNotYourTurn):
		return CategoryNotYourTurn
	case errors.Is(err, ErrInvalidIndex):
		return CategoryInvalidIndex
	case errors.Is(err, ErrCellOccupied):
		return CategoryCellOccupied
	case errors.Is(err, ErrRoomNotFound):
		return CategoryRoomNotFound
	case errors.Is(err, ErrTransport), errors.Is(err, ErrChannelReleased):
		return CategoryTransportError
	default:
		// ErrPlayerNotIdentified lands here: the remote process has no separate code for it.
		return CategoryGenericIllegalMove
	}
}

// Message - short human-readable text for the category.
func (that Category) Message() string {
	if msg, ok := categoryMessages[that]; ok {
		return msg
	}

	return categoryMessages[CategoryGenericIllegalMove]
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))

	return strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(code)
}
