package protocol

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// Inbound event names sent by the remote process.
const (
	EventPong        = "pong"
	EventRoomCreated = "room_created"
	EventRoomJoined  = "room_joined"
	EventRoomState   = "room_state"
	EventGameOver    = "game_over"
	EventWsError     = "ws_error"
	EventIllegalMove = "illegal_move"
)

// Outbound event names.
const (
	EventPing       = "ping"
	EventCreateRoom = "create_room"
	EventJoinRoom   = "join_room"
	EventMakeMove   = "make_move"
	EventRestart    = "restart"
)

// Inbound is a decoded message from the remote process. The set of implementations is closed.
type Inbound interface {
	EventName() string
	isInbound()
}

// ConnectionAck is the namespace connect acknowledgement.
type ConnectionAck struct {
	SID string `json:"sid"`
}

// Disconnected is raised locally when the channel loses its connection.
type Disconnected struct {
	Reason string
}

type LivenessAck struct{}

type RoomCreated struct {
	RoomID   string            `json:"roomId"`
	Assigned entity.Mark       `json:"assigned"`
	State    *entity.RoomState `json:"state,omitempty"`
}

type RoomJoined struct {
	RoomID   string      `json:"roomId"`
	Assigned entity.Mark `json:"assigned"`
}

type RoomStateEvent struct {
	State entity.RoomState
}

type GameOver struct {
	Status entity.Status `json:"status"`
}

type ProtocolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type IllegalMove struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// ConnectError is a refused namespace connect.
type ConnectError struct {
	Message string `json:"message"`
}

// Unknown carries an event outside the supported set.
type Unknown struct {
	Name    string
	Payload json.RawMessage
}

func (ConnectionAck) EventName() string  { return "connect" }
func (Disconnected) EventName() string   { return "disconnect" }
func (LivenessAck) EventName() string    { return EventPong }
func (RoomCreated) EventName() string    { return EventRoomCreated }
func (RoomJoined) EventName() string     { return EventRoomJoined }
func (RoomStateEvent) EventName() string { return EventRoomState }
func (GameOver) EventName() string       { return EventGameOver }
func (ProtocolError) EventName() string  { return EventWsError }
func (IllegalMove) EventName() string    { return EventIllegalMove }
func (ConnectError) EventName() string   { return "connect_error" }
func (that Unknown) EventName() string   { return that.Name }

func (ConnectionAck) isInbound()  {}
func (Disconnected) isInbound()   {}
func (LivenessAck) isInbound()    {}
func (RoomCreated) isInbound()    {}
func (RoomJoined) isInbound()     {}
func (RoomStateEvent) isInbound() {}
func (GameOver) isInbound()       {}
func (ProtocolError) isInbound()  {}
func (IllegalMove) isInbound()    {}
func (ConnectError) isInbound()   {}
func (Unknown) isInbound()        {}

// Outbound is an intent sent to the remote process. The set of implementations is closed.
type Outbound interface {
	EventName() string
	isOutbound()
}

type Ping struct{}

type CreateRoom struct {
	PlayerName string `json:"playerName,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
}

type JoinRoom struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName,omitempty"`
}

type MakeMove struct {
	RoomID string `json:"roomId"`
	Index  int    `json:"index"`
}

type Restart struct {
	RoomID string `json:"roomId"`
}

func (Ping) EventName() string       { return EventPing }
func (CreateRoom) EventName() string { return EventCreateRoom }
func (JoinRoom) EventName() string   { return EventJoinRoom }
func (MakeMove) EventName() string   { return EventMakeMove }
func (Restart) EventName() string    { return EventRestart }

func (Ping) isOutbound()       {}
func (CreateRoom) isOutbound() {}
func (JoinRoom) isOutbound()   {}
func (MakeMove) isOutbound()   {}
func (Restart) isOutbound()    {}
