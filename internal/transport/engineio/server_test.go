package engineio

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const testSID = "sid-1"

// fakeServer is a minimal Engine.IO v4 server: polling handshake, long-polling and websocket upgrade.
type fakeServer struct {
	*httptest.Server

	handshake Handshake

	toClient   chan string
	fromClient chan string

	probeOnce sync.Once
	probed    chan struct{}
	upgraded  chan struct{}

	// postDelay holds every data request open, posts reports each one as it arrives.
	postDelay time.Duration
	posts     chan struct{}
	inFlight  atomic.Int32
	overlaps  atomic.Int32
}

func newFakeServer(t *testing.T, upgrades []string) *fakeServer {
	t.Helper()

	server := &fakeServer{
		handshake: Handshake{
			SID:          testSID,
			Upgrades:     upgrades,
			PingInterval: 25000,
			PingTimeout:  20000,
			MaxPayload:   1000000,
		},
		toClient:   make(chan string, 16),
		fromClient: make(chan string, 64),
		probed:     make(chan struct{}),
		upgraded:   make(chan struct{}),
		posts:      make(chan struct{}, 64),
	}

	server.Server = httptest.NewServer(http.HandlerFunc(server.serve))
	t.Cleanup(server.Close)

	return server
}

func (that *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("EIO") != "4" || r.URL.Path != "/socket.io/" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch {
	case query.Get("transport") == TransportWebSocket:
		that.serveWebSocket(w, r)
	case query.Get("sid") == "":
		body, _ := json.Marshal(that.handshake)
		_, _ = io.WriteString(w, string(PacketOpen)+string(body))
	case r.Method == http.MethodPost:
		that.servePost(w, r)
	default:
		that.servePoll(w, r)
	}
}

// servePost - a real server answers 400 to a data request overlapping another one.
func (that *fakeServer) servePost(w http.ResponseWriter, r *http.Request) {
	if that.inFlight.Add(1) > 1 {
		that.overlaps.Add(1)
	}
	defer that.inFlight.Add(-1)

	that.posts <- struct{}{}

	body, _ := io.ReadAll(r.Body)
	time.Sleep(that.postDelay)

	for _, packet := range strings.Split(string(body), recordSeparator) {
		that.fromClient <- packet
	}

	_, _ = io.WriteString(w, "ok")
}

func (that *fakeServer) servePoll(w http.ResponseWriter, r *http.Request) {
	select {
	case packet := <-that.toClient:
		_, _ = io.WriteString(w, packet)
	case <-that.probed:
		_, _ = io.WriteString(w, string(PacketNoop))
	case <-time.After(2 * time.Second):
		_, _ = io.WriteString(w, string(PacketNoop))
	case <-r.Context().Done():
	}
}

func (that *fakeServer) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch packet := string(data); packet {
		case string(PacketPing) + probe:
			_ = conn.WriteMessage(websocket.TextMessage, []byte(string(PacketPong)+probe))
			that.probeOnce.Do(func() { close(that.probed) })
		case string(PacketUpgrade):
			close(that.upgraded)
			go that.pushOver(conn)
		default:
			that.fromClient <- packet
		}
	}
}

func (that *fakeServer) pushOver(conn *websocket.Conn) {
	for packet := range that.toClient {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(packet)); err != nil {
			return
		}
	}
}

func (that *fakeServer) expectFromClient(t *testing.T) string {
	t.Helper()

	select {
	case packet := <-that.fromClient:
		return packet
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a client packet")
		return ""
	}
}
