package entity

import (
	"errors"
	"fmt"
)

type (
	Mark   string
	Cell   string
	Status string
)

const (
	Unassigned Mark = ""
	PlayerX    Mark = "X"
	PlayerO    Mark = "O"
)

const (
	EmptyCell Cell = ""
	CellX     Cell = "X"
	CellO     Cell = "O"
)

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusXWon    Status = "x_won"
	StatusOWon    Status = "o_won"
	StatusDraw    Status = "draw"
)

const BoardSize = 9

var (
	ErrEmptyRoomID   = errors.New("room id is empty")
	ErrUnknownStatus = errors.New("unknown game status")
	ErrUnknownMark   = errors.New("unknown mark")
	ErrUnknownCell   = errors.New("unknown cell value")

	WinCombos = [][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

// RoomState is a complete snapshot of a room as sent by the remote process.
type RoomState struct {
	RoomID      string          `json:"room_id"`
	Player1Name *string         `json:"player1_name"`
	Player2Name *string         `json:"player2_name"`
	Board       [BoardSize]Cell `json:"board"`
	Turn        Mark            `json:"turn"`
	Status      Status          `json:"status"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
}

// NewRoomState - returns the snapshot of a freshly created room.
func NewRoomState(id string) *RoomState {
	return &RoomState{
		RoomID: id,
		Turn:   PlayerX,
		Status: StatusWaiting,
	}
}

func (that *RoomState) Validate() error {
	if that.RoomID == "" {
		return ErrEmptyRoomID
	}

	if !that.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, that.Status)
	}

	if that.Turn != PlayerX && that.Turn != PlayerO {
		return fmt.Errorf("%w: turn %q", ErrUnknownMark, that.Turn)
	}

	for i, cell := range that.Board {
		if !cell.Valid() {
			return fmt.Errorf("%w: %q at %d", ErrUnknownCell, cell, i)
		}
	}

	return nil
}

func (that *RoomState) IsActive() bool {
	return that.Status == StatusActive
}

// IsCellEmpty - reports whether index addresses an empty cell. Out of range indexes are never empty.
func (that *RoomState) IsCellEmpty(index int) bool {
	if index < 0 || index >= BoardSize {
		return false
	}

	return that.Board[index] == EmptyCell
}

// WinningLine - the first completed line on the board.
func (that *RoomState) WinningLine() ([3]int, bool) {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return combo, true
		}
	}

	return [3]int{}, false
}

func (that Status) Valid() bool {
	switch that {
	case StatusWaiting, StatusActive, StatusXWon, StatusOWon, StatusDraw:
		return true
	default:
		return false
	}
}

func (that Status) Terminal() bool {
	switch that {
	case StatusXWon, StatusOWon, StatusDraw:
		return true
	default:
		return false
	}
}

func (that Cell) Valid() bool {
	return that == EmptyCell || that == CellX || that == CellO
}

func (that Mark) Valid() bool {
	return that == PlayerX || that == PlayerO
}
