package engineio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const probeTimeout = 10 * time.Second

var ErrProbeFailed = errors.New("websocket probe failed")

type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func dialWebSocket(ctx context.Context, dialer *websocket.Dialer, endpoint *url.URL, sid string) (*wsTransport, error) {
	target := withQuery(endpoint, TransportWebSocket, sid)

	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}

	conn, resp, err := dialer.DialContext(ctx, target.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}

	return &wsTransport{conn: conn}, nil
}

// probe - sends the probe ping and waits for the matching pong.
func (that *wsTransport) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := that.Write(ctx, Packet{Type: PacketPing, Data: probe}); err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = that.conn.SetReadDeadline(deadline)
		defer func() {
			_ = that.conn.SetReadDeadline(time.Time{})
		}()
	}

	packets, err := that.Read(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}

	if len(packets) != 1 || packets[0].Type != PacketPong || packets[0].Data != probe {
		return fmt.Errorf("%w: unexpected answer", ErrProbeFailed)
	}

	return nil
}

func (that *wsTransport) Name() string {
	return TransportWebSocket
}

// Read - one websocket message carries exactly one packet.
func (that *wsTransport) Read(_ context.Context) ([]Packet, error) {
	messageType, data, err := that.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read websocket message: %w", err)
	}

	if messageType != websocket.TextMessage {
		return nil, nil
	}

	packet, err := DecodePacket(string(data))
	if err != nil {
		return nil, err
	}

	return []Packet{packet}, nil
}

func (that *wsTransport) Write(ctx context.Context, packets ...Packet) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = that.conn.SetWriteDeadline(deadline)
		defer func() {
			_ = that.conn.SetWriteDeadline(time.Time{})
		}()
	}

	for _, packet := range packets {
		if err := that.conn.WriteMessage(websocket.TextMessage, []byte(packet.Encode())); err != nil {
			return fmt.Errorf("failed to write websocket message: %w", err)
		}
	}

	return nil
}

func (that *wsTransport) Close() error {
	that.writeMu.Lock()
	_ = that.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	that.writeMu.Unlock()

	if err := that.conn.Close(); err != nil {
		return fmt.Errorf("failed to close websocket: %w", err)
	}

	return nil
}
