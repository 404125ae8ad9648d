package tcp

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/ticroom-backend/internal/apperror"
	"github.com/rocketscienceinc/ticroom-backend/internal/room"
)

const (
	outBuffer    = 64
	writeTimeout = 10 * time.Second
)

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateLobby
	stateInRoom
)

// session is the connection worker: it owns one socket, runs the
// protocol state machine, and is the only goroutine that mutates its
// own state. Outbound lines (direct replies and room events) funnel
// through one writer goroutine so socket writes never interleave.
type session struct {
	id     string
	server *Server
	logger *slog.Logger
	conn   net.Conn

	out  chan string
	done chan struct{}

	mu       sync.Mutex
	state    sessionState
	username string
	role     room.Role
	current  *room.Room
}

func newSession(server *Server, conn net.Conn) *session {
	id := uuid.NewString()

	return &session{
		id:     id,
		server: server,
		logger: server.logger.With("component", "session", "session_id", id),
		conn:   conn,

		out:  make(chan string, outBuffer),
		done: make(chan struct{}),
	}
}

func (that *session) run(ctx context.Context) {
	log := that.logger.With("method", "run")

	defer that.cleanup()

	go that.writeLoop()

	log.Info("connection established", "remote", that.conn.RemoteAddr().String())

	scanner := bufio.NewScanner(that.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if quit := that.dispatch(ctx, line); quit {
			log.Info("client quit")
			return
		}
	}

	if err := scanner.Err(); err != nil {
		log.Info("connection lost", "error", err)
	} else {
		log.Info("client disconnected")
	}
}

// dispatch routes one decoded line through the protocol state machine.
// Invalid-for-state commands get an explicit reply and never drop the
// connection; only QUIT ends the session.
func (that *session) dispatch(ctx context.Context, line string) (quit bool) {
	cmd, err := ParseCommand(line)
	if errors.Is(err, ErrUnknownCommand) {
		if that.authenticated() {
			that.send(Errorf("unknown command"))
		} else {
			that.send(&Reply{Kind: ReplyBadAuth})
		}
		return false
	}

	malformed := errors.Is(err, ErrMalformedCommand)

	switch cmd.Kind {
	case CmdQuit:
		if malformed {
			that.send(Errorf("malformed command"))
			return false
		}
		return true

	case CmdLogin:
		that.handleLogin(ctx, cmd, malformed)
		return false

	case CmdRegister:
		that.handleRegister(ctx, cmd, malformed)
		return false
	}

	if !that.authenticated() {
		that.send(&Reply{Kind: ReplyBadAuth})
		return false
	}

	switch cmd.Kind {
	case CmdRoomList:
		if malformed {
			that.send(Ack(CmdRoomList, RoomListMalformed))
			return false
		}
		that.handleRoomList(cmd)

	case CmdCreate:
		if malformed {
			that.send(Ack(CmdCreate, CreateMalformed))
			return false
		}
		that.handleCreate(cmd)

	case CmdJoin:
		if malformed {
			that.send(Ack(CmdJoin, JoinMalformed))
			return false
		}
		that.handleJoin(cmd)

	case CmdPlace:
		if malformed {
			that.send(Errorf("malformed command"))
			return false
		}
		that.handlePlace(cmd)

	case CmdForfeit:
		if malformed {
			that.send(Errorf("malformed command"))
			return false
		}
		that.handleForfeit()
	}

	return false
}

func (that *session) handleLogin(ctx context.Context, cmd *Command, malformed bool) {
	log := that.logger.With("method", "handleLogin")

	if malformed {
		that.send(Ack(CmdLogin, LoginMalformed))
		return
	}

	if that.authenticated() {
		that.send(Ack(CmdLogin, LoginAlreadyAuth))
		return
	}

	err := that.server.auth.Authenticate(ctx, cmd.Username, cmd.Password)
	switch {
	case errors.Is(err, apperror.ErrUserNotFound):
		that.send(Ack(CmdLogin, LoginUnknownUser))
		return
	case errors.Is(err, apperror.ErrWrongPassword):
		that.send(Ack(CmdLogin, LoginWrongPass))
		return
	case err != nil:
		log.Error("failed to authenticate", "error", err)
		that.send(Errorf("internal error"))
		return
	}

	if !that.server.claimUsername(cmd.Username) {
		that.send(Ack(CmdLogin, LoginNameInUse))
		return
	}

	that.mu.Lock()
	that.username = cmd.Username
	that.state = stateLobby
	that.mu.Unlock()

	log.Info("user logged in", "username", cmd.Username)
	that.send(Ack(CmdLogin, LoginOK))
}

func (that *session) handleRegister(ctx context.Context, cmd *Command, malformed bool) {
	log := that.logger.With("method", "handleRegister")

	if malformed {
		that.send(Ack(CmdRegister, RegisterMalformed))
		return
	}

	err := that.server.auth.Register(ctx, cmd.Username, cmd.Password)
	switch {
	case errors.Is(err, apperror.ErrInvalidUsername):
		that.send(Ack(CmdRegister, RegisterMalformed))
	case errors.Is(err, apperror.ErrUserAlreadyExists):
		that.send(Ack(CmdRegister, RegisterExists))
	case err != nil:
		log.Error("failed to register", "error", err)
		that.send(Errorf("internal error"))
	default:
		log.Info("user registered", "username", cmd.Username)
		that.send(Ack(CmdRegister, RegisterOK))
	}
}

func (that *session) handleRoomList(cmd *Command) {
	infos := that.server.registry.List(cmd.Role)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}

	reply := Ack(CmdRoomList, RoomListOK)
	reply.Rooms = names
	that.send(reply)
}

func (that *session) handleCreate(cmd *Command) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == stateInRoom {
		that.send(Errorf("already in a room"))
		return
	}

	created, feed, err := that.server.registry.Create(cmd.RoomName, that.username)
	switch {
	case errors.Is(err, apperror.ErrRoomNameInvalid):
		that.send(Ack(CmdCreate, CreateBadName))
		return
	case errors.Is(err, apperror.ErrDuplicateRoom):
		that.send(Ack(CmdCreate, CreateDuplicate))
		return
	case errors.Is(err, apperror.ErrRegistryFull):
		that.send(Ack(CmdCreate, CreateCapacity))
		return
	case err != nil:
		that.send(Errorf("internal error"))
		return
	}

	that.current = created
	that.role = room.RolePlayer
	that.state = stateInRoom

	that.send(Ack(CmdCreate, CreateOK))
	go that.forwardEvents(feed)
}

func (that *session) handleJoin(cmd *Command) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == stateInRoom {
		that.send(Errorf("already in a room"))
		return
	}

	found, err := that.server.registry.Find(cmd.RoomName)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		that.send(Ack(CmdJoin, JoinNoRoom))
		return
	}

	_, feed, err := found.Join(that.username, cmd.Role)
	switch {
	case errors.Is(err, apperror.ErrRoomFull), errors.Is(err, apperror.ErrGameAlreadyStarted):
		that.send(Ack(CmdJoin, JoinFull))
		return
	case err != nil:
		that.send(Errorf("internal error"))
		return
	}

	that.current = found
	that.role = cmd.Role
	that.state = stateInRoom

	that.send(Ack(CmdJoin, JoinOK))
	go that.forwardEvents(feed)
}

func (that *session) handlePlace(cmd *Command) {
	that.mu.Lock()
	current := that.current
	username := that.username
	that.mu.Unlock()

	if current == nil {
		that.send(&Reply{Kind: ReplyNoRoom})
		return
	}

	// the accepted board update reaches everyone through the room feed
	if _, err := current.Place(username, cmd.Col, cmd.Row); err != nil {
		that.send(Errorf("%s", err))
	}
}

func (that *session) handleForfeit() {
	that.mu.Lock()
	current := that.current
	username := that.username
	that.mu.Unlock()

	if current == nil {
		that.send(&Reply{Kind: ReplyNoRoom})
		return
	}

	if _, err := current.Forfeit(username); err != nil {
		that.send(Errorf("%s", err))
	}
}

// forwardEvents pumps room events to the socket. A terminal event sends
// the occupant back to the lobby, which also closes the feed.
func (that *session) forwardEvents(feed <-chan room.Event) {
	for ev := range feed {
		that.send(EncodeEvent(ev))

		switch ev.Kind {
		case room.EventWin, room.EventDraw, room.EventForfeit:
			that.leaveRoom()
		}
	}
}

// leaveRoom vacates the current room on any path out of it: terminal
// events, QUIT, and socket errors all funnel here. Idempotent.
func (that *session) leaveRoom() {
	that.mu.Lock()
	current := that.current
	username := that.username
	that.current = nil
	that.role = ""
	if that.state == stateInRoom {
		that.state = stateLobby
	}
	that.mu.Unlock()

	if current == nil {
		return
	}

	if current.Leave(username) {
		that.server.registry.Remove(current.Name())
	}
}

func (that *session) cleanup() {
	that.leaveRoom()

	that.mu.Lock()
	username := that.username
	that.username = ""
	that.state = stateUnauthenticated
	that.mu.Unlock()

	if username != "" {
		that.server.releaseUsername(username)
	}

	close(that.done)
	_ = that.conn.Close()
}

func (that *session) authenticated() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state != stateUnauthenticated
}

// send enqueues one reply line. It never blocks: a session whose peer
// stopped reading only loses its own deliveries.
func (that *session) send(reply *Reply) {
	select {
	case that.out <- reply.Encode():
	case <-that.done:
	default:
	}
}

func (that *session) writeLoop() {
	log := that.logger.With("method", "writeLoop")

	for {
		select {
		case line := <-that.out:
			if err := that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if _, err := that.conn.Write([]byte(line + "\n")); err != nil {
				log.Info("write failed, closing connection", "error", err)
				_ = that.conn.Close()
				return
			}
		case <-that.done:
			return
		}
	}
}
