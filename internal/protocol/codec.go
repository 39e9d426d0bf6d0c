package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PacketType is the Socket.IO packet type, the first character of every message.
type PacketType byte

const (
	PacketConnect      PacketType = '0'
	PacketDisconnect   PacketType = '1'
	PacketEvent        PacketType = '2'
	PacketAck          PacketType = '3'
	PacketConnectError PacketType = '4'
	PacketBinaryEvent  PacketType = '5'
	PacketBinaryAck    PacketType = '6'
)

const defaultNamespace = "/"

var (
	ErrMalformedPacket   = errors.New("malformed packet")
	ErrUnsupportedPacket = errors.New("unsupported packet")
	ErrForeignNamespace  = errors.New("packet for another namespace")
)

// ConnectPacket - the namespace connect request for the default namespace.
func ConnectPacket() string {
	return string(PacketConnect)
}

// EncodeEvent - encodes an outbound intent as a Socket.IO EVENT packet.
func EncodeEvent(out Outbound) (string, error) {
	args := []interface{}{out.EventName()}

	if _, isPing := out.(Ping); !isPing {
		args = append(args, out)
	}

	body, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", out.EventName(), err)
	}

	return string(PacketEvent) + string(body), nil
}

// Decode - decodes a Socket.IO packet into an inbound event. Acks are returned as nil, nil.
func Decode(packet string) (Inbound, error) {
	if packet == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedPacket)
	}

	packetType := PacketType(packet[0])
	rest := packet[1:]

	namespace, rest := splitNamespace(rest)
	if namespace != defaultNamespace {
		return nil, fmt.Errorf("%w: %s", ErrForeignNamespace, namespace)
	}

	// ack ids are not used by this client but may be present
	rest = strings.TrimLeft(rest, "0123456789")

	switch packetType {
	case PacketConnect:
		var ack ConnectionAck
		if rest != "" {
			if err := json.Unmarshal([]byte(rest), &ack); err != nil {
				return nil, fmt.Errorf("%w: connect: %w", ErrMalformedPacket, err)
			}
		}
		return ack, nil
	case PacketDisconnect:
		return Disconnected{Reason: "io server disconnect"}, nil
	case PacketConnectError:
		connectErr := ConnectError{Message: rest}
		if strings.HasPrefix(rest, "{") {
			if err := json.Unmarshal([]byte(rest), &connectErr); err != nil {
				return nil, fmt.Errorf("%w: connect error: %w", ErrMalformedPacket, err)
			}
		}
		return connectErr, nil
	case PacketEvent:
		return decodeEventArgs(rest)
	case PacketAck:
		return nil, nil
	case PacketBinaryEvent, PacketBinaryAck:
		return nil, fmt.Errorf("%w: binary packet", ErrUnsupportedPacket)
	default:
		return nil, fmt.Errorf("%w: type %q", ErrMalformedPacket, packetType)
	}
}

func splitNamespace(rest string) (string, string) {
	if !strings.HasPrefix(rest, "/") {
		return defaultNamespace, rest
	}

	idx := strings.IndexByte(rest, ',')
	if idx < 0 {
		return rest, ""
	}

	return rest[:idx], rest[idx+1:]
}

func decodeEventArgs(body string) (Inbound, error) {
	var args []json.RawMessage
	if err := json.Unmarshal([]byte(body), &args); err != nil {
		return nil, fmt.Errorf("%w: event body: %w", ErrMalformedPacket, err)
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("%w: event without name", ErrMalformedPacket)
	}

	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return nil, fmt.Errorf("%w: event name: %w", ErrMalformedPacket, err)
	}

	var payload json.RawMessage
	if len(args) > 1 {
		payload = args[1]
	}

	return DecodeEvent(name, payload)
}

// DecodeEvent - validates and decodes the payload of a named inbound event.
func DecodeEvent(name string, payload json.RawMessage) (Inbound, error) {
	if name == EventPong {
		return LivenessAck{}, nil
	}

	if _, known := schemas[name]; !known {
		return Unknown{Name: name, Payload: payload}, nil
	}

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: %s without payload", ErrMalformedPacket, name)
	}

	if err := validatePayload(name, payload); err != nil {
		return nil, err
	}

	var (
		event Inbound
		err   error
	)

	switch name {
	case EventRoomCreated:
		var msg RoomCreated
		err = json.Unmarshal(payload, &msg)
		event = msg
	case EventRoomJoined:
		var msg RoomJoined
		err = json.Unmarshal(payload, &msg)
		event = msg
	case EventRoomState:
		var msg RoomStateEvent
		err = json.Unmarshal(payload, &msg.State)
		event = msg
	case EventGameOver:
		var msg GameOver
		err = json.Unmarshal(payload, &msg)
		event = msg
	case EventWsError:
		var msg ProtocolError
		err = json.Unmarshal(payload, &msg)
		event = msg
	case EventIllegalMove:
		var msg IllegalMove
		err = json.Unmarshal(payload, &msg)
		event = msg
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPacket, name, err)
	}

	return event, nil
}
