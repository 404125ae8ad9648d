package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/rocketscienceinc/ticroom-backend/internal/room"
)

type accountService interface {
	Authenticate(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password string) error
}

// Server accepts TCP clients and runs one connection worker per client.
// It also tracks which usernames are currently logged in, so a name can
// be bound to at most one live session.
type Server struct {
	logger   *slog.Logger
	auth     accountService
	registry *room.Registry

	mu     sync.Mutex
	active map[string]struct{}
}

func New(logger *slog.Logger, auth accountService, registry *room.Registry) *Server {
	return &Server{
		logger:   logger,
		auth:     auth,
		registry: registry,
		active:   make(map[string]struct{}),
	}
}

// Start listens on addr and serves until ctx is canceled. A bind
// failure is returned as-is so the process can exit non-zero without
// leaving partial listen state behind.
func (that *Server) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return that.Serve(ctx, listener)
}

// Serve accepts connections on an existing listener until ctx is
// canceled.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := that.logger.With("component", "tcp")

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	log.Info("server is listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info("listener closed, shutting down")
				return nil
			default:
				return fmt.Errorf("failed to accept connection: %w", err)
			}
		}

		sess := newSession(that, conn)
		go sess.run(ctx)
	}
}

// claimUsername binds name to a session; it fails while another live
// session holds the same name.
func (that *Server) claimUsername(name string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, taken := that.active[name]; taken {
		return false
	}
	that.active[name] = struct{}{}

	return true
}

func (that *Server) releaseUsername(name string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.active, name)
}
