package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/testing/suite"
)

func newRecord(roomID string) *entity.SessionRecord {
	state := entity.NewRoomState(roomID)
	state.Status = entity.StatusActive
	state.Board[4] = entity.CellX
	state.Turn = entity.PlayerO

	return &entity.SessionRecord{
		RoomID:     roomID,
		State:      state,
		Assignment: entity.PlayerX,
		Label:      "Turn: O",
		Connected:  true,
	}
}

func TestRoomRepository_Save(t *testing.T) {
	t.Run("Saved records read back unchanged", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewRoomRepository(st.Storage.Connection, time.Minute)

		// Given: a session record
		record := newRecord("r1")

		// When: it is saved and read back
		require.NoError(t, repo.Save(ctx, record))
		got, err := repo.GetByID(ctx, "r1")

		// Then: it is identical
		require.NoError(t, err)
		assert.Equal(t, record, got)
	})

	t.Run("Records expire after the ttl", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewRoomRepository(st.Storage.Connection, time.Minute)

		require.NoError(t, repo.Save(ctx, newRecord("r1")))

		ttl, err := st.Storage.Connection.TTL(ctx, "room:r1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("A record without room id is refused", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewRoomRepository(st.Storage.Connection, 0)

		err := repo.Save(ctx, &entity.SessionRecord{})

		require.ErrorIs(t, err, entity.ErrEmptyRoomID)
	})
}

func TestRoomRepository_GetByID(t *testing.T) {
	t.Run("Unknown rooms are not found", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewRoomRepository(st.Storage.Connection, 0)

		got, err := repo.GetByID(ctx, "missing")

		require.ErrorIs(t, err, ErrRoomNotFound)
		assert.Nil(t, got)
	})
}

func TestRoomRepository_DeleteByID(t *testing.T) {
	t.Run("Deleted records are gone", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewRoomRepository(st.Storage.Connection, 0)
		require.NoError(t, repo.Save(ctx, newRecord("r1")))

		require.NoError(t, repo.DeleteByID(ctx, "r1"))

		_, err := repo.GetByID(ctx, "r1")
		require.ErrorIs(t, err, ErrRoomNotFound)
	})
}

func TestMirror_Run(t *testing.T) {
	t.Run("The latest published record ends up in the store", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewRoomRepository(st.Storage.Connection, time.Minute)
		mirror := NewMirror(st.Logger, repo)

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- mirror.Run(runCtx) }()

		// When: several records are published back to back
		for _, label := range []string{"Waiting for player…", "Turn: X", "Turn: O"} {
			record := newRecord("r1")
			record.Label = label
			mirror.Publish(*record)
		}

		// Then: the store converges on the last one
		assert.Eventually(t, func() bool {
			got, err := repo.GetByID(ctx, "r1")
			return err == nil && got.Label == "Turn: O"
		}, 5*time.Second, 20*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
	})
	t.Run("Switching rooms drops the record of the previous room", func(t *testing.T) {
		ctx, st := suite.New(t)
		repo := NewRoomRepository(st.Storage.Connection, time.Minute)
		mirror := NewMirror(st.Logger, repo)

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- mirror.Run(runCtx) }()

		// Given: the session was mirrored for r1
		mirror.Publish(*newRecord("r1"))
		assert.Eventually(t, func() bool {
			_, err := repo.GetByID(ctx, "r1")
			return err == nil
		}, 5*time.Second, 20*time.Millisecond)

		// When: the session moves on to r2
		mirror.Publish(*newRecord("r2"))

		// Then: only r2 is left
		assert.Eventually(t, func() bool {
			_, err := repo.GetByID(ctx, "r2")
			return err == nil
		}, 5*time.Second, 20*time.Millisecond)

		_, err := repo.GetByID(ctx, "r1")
		require.ErrorIs(t, err, ErrRoomNotFound)

		cancel()
		require.NoError(t, <-done)
	})
}
