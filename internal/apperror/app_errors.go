package apperror

import "errors"

var (
	ErrGameNotActive       = errors.New("game not active")
	ErrPlayerNotIdentified = errors.New("player not identified")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrInvalidIndex        = errors.New("invalid index")
	ErrCellOccupied        = errors.New("cell occupied")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomMismatch        = errors.New("room id does not match bound session")
	ErrTransport           = errors.New("transport error")
	ErrChannelReleased     = errors.New("channel released")
	ErrNoSnapshot          = errors.New("no snapshot available")
)

// Rejection is an error raised by the remote process for an intent it refused.
type Rejection struct {
	Code    string
	Message string
	Detail  string
}

func (that *Rejection) Error() string {
	if that.Message != "" {
		return that.Code + ": " + that.Message
	}

	return that.Code
}

// Category returns the taxonomy entry of the remote code.
func (that *Rejection) Category() Category {
	return Classify(that.Code)
}
