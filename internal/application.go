package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-client/internal/config"
	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
	"github.com/rocketscienceinc/tictactoe-client/internal/console"
	"github.com/rocketscienceinc/tictactoe-client/internal/repository"
	"github.com/rocketscienceinc/tictactoe-client/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-client/internal/session"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/engineio"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the client until the console quits or a signal arrives.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	return Run(context.Background(), logger, conf, os.Stdin, os.Stdout)
}

// Run - wires the session engine to the console reading in and writing out.
func Run(ctx context.Context, logger *slog.Logger, conf *config.Config, in io.Reader, out io.Writer) error {
	log := logger.With("component", "app")

	if _, err := engineio.Endpoint(conf.BackendURL); err != nil {
		return fmt.Errorf("invalid backend url: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	manager := connection.NewManager(logger, connection.Options{
		BaseURL:        conf.BackendURL,
		ReconnectDelay: conf.ReconnectDelay,
		TraceEvents:    conf.TraceEvents,
	})
	channel := manager.Acquire()

	defer func() {
		manager.Release()
		<-channel.Done()
	}()

	model := session.NewModel()
	notices := session.NewNotices(nil, conf.NoticeTTL)
	defer notices.Stop()

	fallback := rest.NewClient(logger, conf.BackendURL, conf.FallbackTimeout)
	reconciler := session.NewReconciler(logger, model, channel, fallback, conf.FallbackTimeout)
	defer reconciler.Close()

	dispatcher := session.NewDispatcher(logger, model, notices, reconciler)
	dispatcher.Attach(channel)
	defer dispatcher.Detach()

	controller := session.NewController(logger, model, channel, notices)

	group, ctx := errgroup.WithContext(ctx)

	if conf.Mirror.Enabled {
		mirror, closeMirror, err := newMirror(ctx, logger, conf)
		if err != nil {
			return err
		}

		defer closeMirror()

		model.OnChange(func(view session.View) { mirror.Publish(view.Record()) })
		group.Go(func() error { return mirror.Run(ctx) })

		log.Info("Mirroring session to redis", "addr", conf.Redis.GetRedisAddr())
	}

	cli := console.New(logger, in, out, console.Deps{
		Model:      model,
		Controller: controller,
		Reconciler: reconciler,
		Notices:    notices,
		PlayerName: conf.PlayerName,
	})

	group.Go(func() error {
		defer cancel()
		return cli.Run(ctx)
	})

	log.Info("Client started", "backend", conf.BackendURL)

	if err := group.Wait(); err != nil {
		return fmt.Errorf("client stopped: %w", err)
	}

	log.Info("Client stopped")

	return nil
}

func newMirror(ctx context.Context, logger *slog.Logger, conf *config.Config) (*repository.Mirror, func(), error) {
	addr := conf.Redis.GetRedisAddr()
	if conf.Redis.Host == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	closeStorage := func() {
		if err := redisStorage.Close(); err != nil {
			logger.Error("could not close redis storage", "error", err)
		}
	}

	repo := repository.NewRoomRepository(redisStorage.Connection, conf.Mirror.TTL)

	return repository.NewMirror(logger, repo), closeStorage, nil
}
