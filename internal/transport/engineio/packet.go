package engineio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PacketType is the Engine.IO v4 packet type.
type PacketType byte

const (
	PacketOpen    PacketType = '0'
	PacketClose   PacketType = '1'
	PacketPing    PacketType = '2'
	PacketPong    PacketType = '3'
	PacketMessage PacketType = '4'
	PacketUpgrade PacketType = '5'
	PacketNoop    PacketType = '6'
)

// recordSeparator delimits packets in a polling payload.
const recordSeparator = "\x1e"

const probe = "probe"

var (
	ErrInvalidPacket    = errors.New("invalid engine.io packet")
	ErrInvalidHandshake = errors.New("invalid engine.io handshake")
)

type Packet struct {
	Type PacketType
	Data string
}

func (that Packet) Encode() string {
	return string(that.Type) + that.Data
}

// DecodePacket - decodes a single Engine.IO packet.
func DecodePacket(raw string) (Packet, error) {
	if raw == "" {
		return Packet{}, fmt.Errorf("%w: empty", ErrInvalidPacket)
	}

	packet := Packet{Type: PacketType(raw[0]), Data: raw[1:]}
	if packet.Type < PacketOpen || packet.Type > PacketNoop {
		return Packet{}, fmt.Errorf("%w: type %q", ErrInvalidPacket, raw[0])
	}

	return packet, nil
}

// EncodePayload - joins packets into a polling payload.
func EncodePayload(packets []Packet) string {
	encoded := make([]string, 0, len(packets))
	for _, packet := range packets {
		encoded = append(encoded, packet.Encode())
	}

	return strings.Join(encoded, recordSeparator)
}

// DecodePayload - splits a polling payload into packets.
func DecodePayload(payload string) ([]Packet, error) {
	if payload == "" {
		return nil, nil
	}

	parts := strings.Split(payload, recordSeparator)
	packets := make([]Packet, 0, len(parts))

	for _, part := range parts {
		// base64 binary packets are not part of this protocol
		if strings.HasPrefix(part, "b") {
			continue
		}

		packet, err := DecodePacket(part)
		if err != nil {
			return nil, err
		}

		packets = append(packets, packet)
	}

	return packets, nil
}

// Handshake is the payload of the open packet.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

func parseHandshake(packet Packet) (Handshake, error) {
	if packet.Type != PacketOpen {
		return Handshake{}, fmt.Errorf("%w: expected open packet, got %q", ErrInvalidHandshake, packet.Type)
	}

	var handshake Handshake
	if err := json.Unmarshal([]byte(packet.Data), &handshake); err != nil {
		return Handshake{}, fmt.Errorf("%w: %w", ErrInvalidHandshake, err)
	}

	if handshake.SID == "" {
		return Handshake{}, fmt.Errorf("%w: missing sid", ErrInvalidHandshake)
	}

	return handshake, nil
}

func (that Handshake) CanUpgrade(transport string) bool {
	for _, upgrade := range that.Upgrades {
		if upgrade == transport {
			return true
		}
	}

	return false
}

// HeartbeatTimeout - the longest silence before the connection is considered lost.
func (that Handshake) HeartbeatTimeout() time.Duration {
	return time.Duration(that.PingInterval+that.PingTimeout) * time.Millisecond
}
