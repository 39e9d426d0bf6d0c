package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
)

const (
	maxBuffered = 64
	sendTimeout = 10 * time.Second
)

var errNamespaceClosed = errors.New("namespace disconnected by server")

// Handler receives inbound events. Handlers run one at a time, in delivery order.
type Handler func(event protocol.Inbound)

type subscription struct {
	id      uint64
	handler Handler
}

// Channel is the logical, self-repairing connection to the remote process.
type Channel struct {
	logger *slog.Logger
	dial   DialFunc
	clock  clockwork.Clock
	delay  time.Duration
	trace  bool

	ctx      context.Context
	cancel   context.CancelFunc
	released atomic.Bool
	done     chan struct{}

	mu          sync.Mutex
	conn        Conn
	nsConnected bool
	buffer      []string

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64
}

func newChannel(logger *slog.Logger, opts Options) *Channel {
	ctx, cancel := context.WithCancel(context.Background())

	return &Channel{
		logger: logger,
		dial:   opts.Dial,
		clock:  opts.Clock,
		delay:  opts.ReconnectDelay,
		trace:  opts.TraceEvents,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Subscribe - registers a handler. The returned function removes it and may be called any number of times.
func (that *Channel) Subscribe(handler Handler) func() {
	that.subsMu.Lock()
	that.nextID++
	id := that.nextID
	that.subs = append(that.subs, subscription{id: id, handler: handler})
	that.subsMu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			that.subsMu.Lock()
			defer that.subsMu.Unlock()

			for i, sub := range that.subs {
				if sub.id == id {
					that.subs = append(that.subs[:i:i], that.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit - sends an intent, or buffers it until the namespace is connected.
// Transport failures are not returned: the intent stays buffered for the next connection.
func (that *Channel) Emit(out protocol.Outbound) error {
	if that.Released() {
		return apperror.ErrChannelReleased
	}

	packet, err := protocol.EncodeEvent(out)
	if err != nil {
		return err
	}

	if that.trace {
		that.logger.Debug("outbound event", "event", out.EventName(), "packet", packet)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.conn == nil || !that.nsConnected {
		that.bufferLocked(packet)
		return nil
	}

	if err = that.sendLocked(packet); err != nil {
		that.logger.Warn("failed to send, buffering until reconnect", "event", out.EventName(), "error", err)
		that.bufferLocked(packet)
	}

	return nil
}

// Connected - reports whether the namespace is currently connected.
func (that *Channel) Connected() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.conn != nil && that.nsConnected
}

func (that *Channel) Released() bool {
	return that.released.Load()
}

// Done - closed when the channel stopped for good.
func (that *Channel) Done() <-chan struct{} {
	return that.done
}

func (that *Channel) release() {
	if !that.released.CompareAndSwap(false, true) {
		return
	}

	that.cancel()

	that.mu.Lock()
	conn := that.conn
	that.conn = nil
	that.nsConnected = false
	that.buffer = nil
	that.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			that.logger.Debug("failed to close connection", "error", err)
		}
	}
}

// run - connects, serves and reconnects forever with a fixed delay until released.
func (that *Channel) run() {
	defer close(that.done)

	log := that.logger.With("method", "run")

	for attempt := 1; ; attempt++ {
		if that.ctx.Err() != nil {
			return
		}

		conn, err := that.dial(that.ctx)
		if err != nil {
			if that.ctx.Err() != nil {
				return
			}

			log.Warn("failed to connect", "attempt", attempt, "error", err)
		} else {
			attempt = 0

			err = that.serve(conn)
			if that.ctx.Err() != nil {
				return
			}

			log.Warn("connection lost", "error", err)
			that.deliver(protocol.Disconnected{Reason: err.Error()})
		}

		select {
		case <-that.clock.After(that.delay):
		case <-that.ctx.Done():
			return
		}
	}
}

// serve - runs one connection until it fails. Always returns a non-nil error.
func (that *Channel) serve(conn Conn) error {
	log := that.logger.With("method", "serve", "transport", conn.TransportName())

	that.mu.Lock()
	if that.Released() {
		that.mu.Unlock()
		_ = conn.Close()
		return apperror.ErrChannelReleased
	}
	that.conn = conn
	that.nsConnected = false
	that.mu.Unlock()

	defer that.dropConn(conn)

	ctx, cancel := context.WithTimeout(that.ctx, sendTimeout)
	err := conn.Send(ctx, protocol.ConnectPacket())
	cancel()

	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: namespace connect: %w", apperror.ErrTransport, err)
	}

	for {
		select {
		case msg := <-conn.Messages():
			event, err := protocol.Decode(msg)
			if err != nil {
				log.Error("dropping malformed packet", "error", err)
				continue
			}

			if event == nil {
				continue
			}

			if that.trace {
				log.Debug("inbound event", "event", event.EventName(), "packet", msg)
			}

			switch ev := event.(type) {
			case protocol.ConnectionAck:
				that.onNamespaceConnected()
			case protocol.Disconnected:
				_ = conn.Close()
				return errNamespaceClosed
			case protocol.ConnectError:
				that.deliver(event)
				_ = conn.Close()
				return fmt.Errorf("%w: connect refused: %s", apperror.ErrTransport, ev.Message)
			}

			that.deliver(event)
		case <-conn.Done():
			if err := conn.Err(); err != nil {
				return fmt.Errorf("%w: %w", apperror.ErrTransport, err)
			}

			return apperror.ErrTransport
		case <-that.ctx.Done():
			return that.ctx.Err()
		}
	}
}

func (that *Channel) dropConn(conn Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.conn == conn {
		that.conn = nil
		that.nsConnected = false
	}
}

// onNamespaceConnected - marks the channel usable and flushes buffered intents in order.
func (that *Channel) onNamespaceConnected() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.nsConnected = true

	pending := that.buffer
	that.buffer = nil

	for i, packet := range pending {
		if err := that.sendLocked(packet); err != nil {
			that.logger.Warn("failed to flush buffered intents", "remaining", len(pending)-i, "error", err)
			that.buffer = pending[i:]
			return
		}
	}
}

func (that *Channel) sendLocked(packet string) error {
	ctx, cancel := context.WithTimeout(that.ctx, sendTimeout)
	defer cancel()

	if err := that.conn.Send(ctx, packet); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrTransport, err)
	}

	return nil
}

func (that *Channel) bufferLocked(packet string) {
	if len(that.buffer) >= maxBuffered {
		that.logger.Warn("outbound buffer full, dropping oldest intent")
		that.buffer = that.buffer[1:]
	}

	that.buffer = append(that.buffer, packet)
}

// deliver - calls every handler in registration order. A panicking handler is logged and skipped.
func (that *Channel) deliver(event protocol.Inbound) {
	that.subsMu.Lock()
	subs := make([]subscription, len(that.subs))
	copy(subs, that.subs)
	that.subsMu.Unlock()

	for _, sub := range subs {
		that.call(sub.handler, event)
	}
}

func (that *Channel) call(handler Handler, event protocol.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			that.logger.Error("event handler panicked", "event", event.EventName(), "panic", r)
		}
	}()

	handler(event)
}
