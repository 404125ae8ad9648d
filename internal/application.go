package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/ticroom-backend/internal/config"
	"github.com/rocketscienceinc/ticroom-backend/internal/repository"
	"github.com/rocketscienceinc/ticroom-backend/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/ticroom-backend/internal/room"
	"github.com/rocketscienceinc/ticroom-backend/internal/service"
	"github.com/rocketscienceinc/ticroom-backend/internal/transport/tcp"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	storage, err := sqlite.New(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = storage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = storage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	userRepo := repository.NewUserRepository(storage.Connection)
	authService := service.NewAuthService(userRepo)
	registry := room.NewRegistry()

	// run TCP game server
	tcpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting TCP server", "port", conf.TCPPort)
		tcpServer := tcp.New(logger, authService, registry)
		if tcpErr := tcpServer.Start(ctx, conf.GetListenAddr()); tcpErr != nil {
			log.Error("TCP server error", "error", tcpErr)
			tcpErrCh <- tcpErr
		}
	}()

	select {
	case err = <-tcpErrCh:
		return fmt.Errorf("TCP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
