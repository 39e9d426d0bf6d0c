package connection

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/tictactoe-client/internal/transport/engineio"
)

const (
	defaultReconnectDelay = time.Second
	handshakeTimeout      = 20 * time.Second
)

// Conn is one physical connection to the remote process.
type Conn interface {
	Messages() <-chan string
	Done() <-chan struct{}
	Err() error
	Send(ctx context.Context, data string) error
	Close() error
	TransportName() string
}

// DialFunc opens a new Conn.
type DialFunc func(ctx context.Context) (Conn, error)

type Options struct {
	BaseURL        string
	ReconnectDelay time.Duration
	TraceEvents    bool
	Clock          clockwork.Clock
	// Dial overrides the Engine.IO dialer.
	Dial DialFunc
}

// Manager owns the single live channel of the process.
type Manager struct {
	logger *slog.Logger
	opts   Options

	mu      sync.Mutex
	channel *Channel
}

// NewManager - builds the manager; no connection is made until Acquire.
func NewManager(logger *slog.Logger, opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	manager := &Manager{
		logger: logger.With("component", "connection"),
		opts:   opts,
	}

	if manager.opts.Dial == nil {
		manager.opts.Dial = manager.dialEngineIO
	}

	return manager
}

// Acquire - returns the live channel or builds one. The connection is established asynchronously.
func (that *Manager) Acquire() *Channel {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.channel != nil && !that.channel.Released() {
		return that.channel
	}

	that.channel = newChannel(that.logger, that.opts)
	go that.channel.run()

	that.logger.Info("channel acquired", "baseURL", that.opts.BaseURL)

	return that.channel
}

// Release - tears the channel down. Safe to call without a channel and more than once.
func (that *Manager) Release() {
	that.mu.Lock()
	channel := that.channel
	that.channel = nil
	that.mu.Unlock()

	if channel == nil {
		return
	}

	channel.release()

	that.logger.Info("channel released")
}

func (that *Manager) dialEngineIO(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	// the jar keeps load balancer affinity cookies between polling requests and the websocket
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	conn, err := engineio.Dial(ctx, that.opts.BaseURL, engineio.Options{
		Logger:     that.logger,
		HTTPClient: &http.Client{Jar: jar},
		Clock:      that.opts.Clock,
		Upgrade:    true,
	})
	if err != nil {
		return nil, err
	}

	that.logger.Debug("engine.io session opened", "sid", conn.SID(), "transport", conn.TransportName())

	return conn, nil
}
