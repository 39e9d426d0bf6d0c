package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const maxSnapshotBytes = 64 << 10

// Client fetches room snapshots from the fallback HTTP endpoint.
type Client struct {
	logger  *slog.Logger
	baseURL string
	http    *http.Client
}

func NewClient(logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		logger:  logger.With("component", "rest"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchRoom - GET /api/rooms/{roomID}. Any non-success status yields apperror.ErrNoSnapshot.
func (that *Client) FetchRoom(ctx context.Context, roomID string) (*entity.RoomState, error) {
	log := that.logger.With("method", "FetchRoom", "roomID", roomID)

	endpoint := that.baseURL + "/api/rooms/" + url.PathEscape(roomID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := that.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Debug("fallback returned no snapshot", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", apperror.ErrNoSnapshot, resp.StatusCode)
	}

	var state entity.RoomState
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxSnapshotBytes)).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode room: %w", err)
	}

	if err = state.Validate(); err != nil {
		return nil, fmt.Errorf("invalid room snapshot: %w", err)
	}

	return &state, nil
}
