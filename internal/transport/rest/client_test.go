package rest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	return NewClient(logger, server.URL+"/", time.Second)
}

func TestClient_FetchRoom(t *testing.T) {
	t.Run("Returns the snapshot on success", func(t *testing.T) {
		// Given: a server holding room r1
		var requested string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requested = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"room_id":"r1","player1_name":"Ana","player2_name":"Bob",`+
				`"board":["X","","","","","","","",""],"turn":"O","status":"active"}`)
		})

		// When: the room is fetched
		state, err := client.FetchRoom(context.Background(), "r1")

		// Then: the snapshot is decoded from /api/rooms/{id}
		require.NoError(t, err)
		assert.Equal(t, "/api/rooms/r1", requested)
		assert.Equal(t, "r1", state.RoomID)
		assert.Equal(t, entity.CellX, state.Board[0])
		assert.Equal(t, entity.StatusActive, state.Status)
	})

	t.Run("Non success status means no snapshot", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		})

		state, err := client.FetchRoom(context.Background(), "missing")

		require.ErrorIs(t, err, apperror.ErrNoSnapshot)
		assert.Nil(t, state)
	})

	t.Run("Invalid snapshot is rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"room_id":"r1","turn":"X","status":"paused"}`)
		})

		_, err := client.FetchRoom(context.Background(), "r1")

		require.ErrorIs(t, err, entity.ErrUnknownStatus)
	})

	t.Run("Room ids are path escaped", func(t *testing.T) {
		var requested string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requested = r.URL.EscapedPath()
			http.NotFound(w, r)
		})

		_, _ = client.FetchRoom(context.Background(), "a/b")

		assert.Equal(t, "/api/rooms/a%2Fb", requested)
	})
}
