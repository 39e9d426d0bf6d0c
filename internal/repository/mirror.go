package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const mirrorWriteTimeout = 2 * time.Second

// Mirror publishes the latest session record to the repository in the background.
// Only the newest record is kept: a slow store skips intermediate records, never reorders them.
type Mirror struct {
	logger  *slog.Logger
	repo    RoomRepository
	pending chan entity.SessionRecord
}

func NewMirror(logger *slog.Logger, repo RoomRepository) *Mirror {
	return &Mirror{
		logger:  logger.With("component", "mirror"),
		repo:    repo,
		pending: make(chan entity.SessionRecord, 1),
	}
}

// Publish - never blocks. A record still waiting to be written is replaced.
func (that *Mirror) Publish(record entity.SessionRecord) {
	if record.RoomID == "" {
		return
	}

	for {
		select {
		case that.pending <- record:
			return
		default:
		}

		select {
		case <-that.pending:
		default:
		}
	}
}

// Run - writes published records until ctx is done.
func (that *Mirror) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	var lastRoomID string

	for {
		select {
		case <-ctx.Done():
			return nil
		case record := <-that.pending:
			if lastRoomID != "" && lastRoomID != record.RoomID {
				that.forget(ctx, log, lastRoomID)
			}

			writeCtx, cancel := context.WithTimeout(ctx, mirrorWriteTimeout)
			err := that.repo.Save(writeCtx, &record)
			cancel()

			if err != nil {
				log.Warn("failed to mirror session", "roomID", record.RoomID, "error", err)
				continue
			}

			lastRoomID = record.RoomID

			log.Debug("session mirrored", "roomID", record.RoomID, "label", record.Label)
		}
	}
}

// forget - drops the record of a room the session left.
func (that *Mirror) forget(ctx context.Context, log *slog.Logger, roomID string) {
	deleteCtx, cancel := context.WithTimeout(ctx, mirrorWriteTimeout)
	defer cancel()

	if err := that.repo.DeleteByID(deleteCtx, roomID); err != nil {
		log.Warn("failed to drop mirrored session", "roomID", roomID, "error", err)
	}
}
