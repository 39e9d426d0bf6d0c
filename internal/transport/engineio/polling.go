package engineio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const (
	TransportPolling   = "polling"
	TransportWebSocket = "websocket"
)

var ErrUnexpectedStatus = errors.New("unexpected status code")

// transport moves Engine.IO packets over one underlying mechanism.
type transport interface {
	Name() string
	Read(ctx context.Context) ([]Packet, error)
	Write(ctx context.Context, packets ...Packet) error
	Close() error
}

// polling allows a single POST in flight per session, a server closes the session on overlapping data requests.
type polling struct {
	client   *http.Client
	endpoint *url.URL
	writeMu  sync.Mutex
}

// openPolling - performs the polling handshake.
func openPolling(ctx context.Context, client *http.Client, endpoint *url.URL) (*polling, Handshake, error) {
	handshakeURL := withQuery(endpoint, TransportPolling, "")

	packets, err := pollGet(ctx, client, handshakeURL)
	if err != nil {
		return nil, Handshake{}, fmt.Errorf("failed to open polling transport: %w", err)
	}

	if len(packets) == 0 {
		return nil, Handshake{}, fmt.Errorf("%w: empty response", ErrInvalidHandshake)
	}

	handshake, err := parseHandshake(packets[0])
	if err != nil {
		return nil, Handshake{}, err
	}

	return &polling{
		client:   client,
		endpoint: withQuery(endpoint, TransportPolling, handshake.SID),
	}, handshake, nil
}

func (that *polling) Name() string {
	return TransportPolling
}

func (that *polling) Read(ctx context.Context) ([]Packet, error) {
	return pollGet(ctx, that.client, that.endpoint)
}

func (that *polling) Write(ctx context.Context, packets ...Packet) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	body := strings.NewReader(EncodePayload(packets))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, that.endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build poll request: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")

	resp, err := that.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post packets: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return nil
}

// Close - nothing to release; the close packet is sent by the Conn.
func (that *polling) Close() error {
	return nil
}

func pollGet(ctx context.Context, client *http.Client, endpoint *url.URL) ([]Packet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build poll request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return DecodePayload(string(body))
}

// Endpoint - the Engine.IO endpoint under a base address.
func Endpoint(baseURL string) (*url.URL, error) {
	endpoint, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + "/socket.io/"
	endpoint.RawQuery = ""

	return endpoint, nil
}

func withQuery(endpoint *url.URL, transportName, sid string) *url.URL {
	u := *endpoint

	query := url.Values{}
	query.Set("EIO", "4")
	query.Set("transport", transportName)
	if sid != "" {
		query.Set("sid", sid)
	}

	u.RawQuery = query.Encode()

	return &u
}
