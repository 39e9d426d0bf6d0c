package engineio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const writeTimeout = 10 * time.Second

var (
	ErrClosed           = errors.New("engine.io connection closed")
	ErrClosedByServer   = errors.New("engine.io connection closed by server")
	ErrHeartbeatTimeout = errors.New("engine.io heartbeat timeout")
)

type Options struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Clock      clockwork.Clock
	// Upgrade enables the websocket upgrade after the polling handshake.
	Upgrade bool
}

// Conn is an Engine.IO v4 client socket: opened over long-polling, upgraded to a websocket when possible.
type Conn struct {
	logger    *slog.Logger
	clock     clockwork.Clock
	dialer    *websocket.Dialer
	handshake Handshake

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	transport transport

	pauseRequested atomic.Bool
	paused         chan struct{}
	upgraded       chan struct{}

	heartbeat clockwork.Timer

	messages chan string
	done     chan struct{}
	failOnce sync.Once
	err      error
}

// Dial - opens a connection to the Engine.IO endpoint under baseURL.
func Dial(ctx context.Context, baseURL string, opts Options) (*Conn, error) {
	opts = withDefaults(opts)

	endpoint, err := Endpoint(baseURL)
	if err != nil {
		return nil, err
	}

	poller, handshake, err := openPolling(ctx, opts.HTTPClient, endpoint)
	if err != nil {
		return nil, err
	}

	connCtx, cancel := context.WithCancel(context.Background())

	conn := &Conn{
		logger:    opts.Logger.With("component", "engineio", "sid", handshake.SID),
		clock:     opts.Clock,
		dialer:    opts.Dialer,
		handshake: handshake,
		ctx:       connCtx,
		cancel:    cancel,
		transport: poller,
		paused:    make(chan struct{}),
		upgraded:  make(chan struct{}),
		messages:  make(chan string, 16),
		done:      make(chan struct{}),
	}

	conn.heartbeat = conn.clock.AfterFunc(handshake.HeartbeatTimeout(), func() {
		conn.fail(ErrHeartbeatTimeout)
	})

	go conn.readLoop()

	if opts.Upgrade && handshake.CanUpgrade(TransportWebSocket) {
		go conn.upgrade(endpoint)
	}

	return conn, nil
}

func withDefaults(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	if opts.Dialer == nil {
		dialer := *websocket.DefaultDialer
		dialer.Jar = opts.HTTPClient.Jar
		opts.Dialer = &dialer
	}

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return opts
}

func (that *Conn) SID() string {
	return that.handshake.SID
}

// TransportName - the transport currently carrying traffic.
func (that *Conn) TransportName() string {
	return that.currentTransport().Name()
}

// Messages - payloads of message packets, in arrival order.
func (that *Conn) Messages() <-chan string {
	return that.messages
}

// Done - closed once the connection is gone; Err tells why.
func (that *Conn) Done() <-chan struct{} {
	return that.done
}

func (that *Conn) Err() error {
	select {
	case <-that.done:
		return that.err
	default:
		return nil
	}
}

// Send - sends one message packet.
func (that *Conn) Send(ctx context.Context, data string) error {
	return that.write(ctx, Packet{Type: PacketMessage, Data: data})
}

// Close - sends a close packet and tears the connection down.
func (that *Conn) Close() error {
	select {
	case <-that.done:
		return nil
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := that.write(ctx, Packet{Type: PacketClose})

	that.fail(ErrClosed)

	if err != nil && !errors.Is(err, ErrClosed) {
		return fmt.Errorf("failed to send close packet: %w", err)
	}

	return nil
}

func (that *Conn) write(ctx context.Context, packets ...Packet) error {
	select {
	case <-that.done:
		return ErrClosed
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := that.currentTransport().Write(ctx, packets...); err != nil {
		return fmt.Errorf("failed to write packets: %w", err)
	}

	return nil
}

func (that *Conn) currentTransport() transport {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.transport
}

func (that *Conn) readLoop() {
	for {
		current := that.currentTransport()

		packets, err := current.Read(that.ctx)
		if err != nil {
			if that.ctx.Err() != nil {
				return
			}

			// the pending poll may be dropped by the server once the upgrade is under way
			if current.Name() != TransportPolling || !that.pauseRequested.Load() {
				that.fail(err)
				return
			}
		}

		for _, packet := range packets {
			if !that.handle(packet) {
				return
			}
		}

		if current.Name() == TransportPolling && that.pauseRequested.Load() {
			close(that.paused)

			select {
			case <-that.upgraded:
			case <-that.ctx.Done():
				return
			}
		}
	}
}

// handle - processes one packet; returns false when the read loop must stop.
func (that *Conn) handle(packet Packet) bool {
	switch packet.Type {
	case PacketPing:
		that.heartbeat.Reset(that.handshake.HeartbeatTimeout())

		if err := that.write(that.ctx, Packet{Type: PacketPong, Data: packet.Data}); err != nil {
			that.logger.Warn("failed to answer ping", "error", err)
		}
	case PacketMessage:
		select {
		case that.messages <- packet.Data:
		case <-that.ctx.Done():
			return false
		}
	case PacketClose:
		that.fail(ErrClosedByServer)
		return false
	case PacketOpen, PacketPong, PacketUpgrade, PacketNoop:
	}

	return true
}

// upgrade - probes a websocket and switches to it once polling is paused.
func (that *Conn) upgrade(endpoint *url.URL) {
	log := that.logger.With("method", "upgrade")

	ws, err := dialWebSocket(that.ctx, that.dialer, endpoint, that.handshake.SID)
	if err != nil {
		log.Info("websocket unavailable, staying on polling", "error", err)
		return
	}

	if err = ws.probe(that.ctx); err != nil {
		log.Info("websocket probe failed, staying on polling", "error", err)
		_ = ws.Close()
		return
	}

	that.pauseRequested.Store(true)

	select {
	case <-that.paused:
	case <-that.ctx.Done():
		_ = ws.Close()
		return
	}

	ctx, cancel := context.WithTimeout(that.ctx, writeTimeout)
	defer cancel()

	if err = ws.Write(ctx, Packet{Type: PacketUpgrade}); err != nil {
		_ = ws.Close()
		that.fail(fmt.Errorf("failed to complete upgrade: %w", err))
		return
	}

	that.mu.Lock()
	that.transport = ws
	that.mu.Unlock()

	close(that.upgraded)

	log.Debug("upgraded to websocket")
}

func (that *Conn) fail(err error) {
	that.failOnce.Do(func() {
		that.err = err
		that.heartbeat.Stop()
		that.cancel()

		if closeErr := that.currentTransport().Close(); closeErr != nil {
			that.logger.Debug("failed to close transport", "error", closeErr)
		}

		close(that.done)
	})
}
