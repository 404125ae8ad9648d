package tcp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/ticroom-backend/internal/room"
)

// The wire protocol is UTF-8 text, one message per line, fields joined
// by ':'. Input is decoded once at this boundary into tagged structs;
// everything behind it works on the typed form.

const fieldSeparator = ":"

const ackMarker = "ACKSTATUS"

type CommandKind string

const (
	CmdLogin    CommandKind = "LOGIN"
	CmdRegister CommandKind = "REGISTER"
	CmdRoomList CommandKind = "ROOMLIST"
	CmdCreate   CommandKind = "CREATE"
	CmdJoin     CommandKind = "JOIN"
	CmdPlace    CommandKind = "PLACE"
	CmdForfeit  CommandKind = "FORFEIT"
	CmdQuit     CommandKind = "QUIT"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformedCommand = errors.New("malformed command")
	ErrUnknownReply     = errors.New("unknown reply")
)

type Command struct {
	Kind     CommandKind
	Username string
	Password string
	RoomName string
	Role     room.Role
	Col      int
	Row      int
}

// ParseCommand decodes one inbound line. On a malformed payload the
// returned command still carries the recognized kind so the caller can
// answer with that command's own failure code.
func ParseCommand(line string) (*Command, error) {
	parts := strings.Split(line, fieldSeparator)
	kind := CommandKind(parts[0])
	cmd := &Command{Kind: kind}

	switch kind {
	case CmdLogin, CmdRegister:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return cmd, ErrMalformedCommand
		}
		cmd.Username, cmd.Password = parts[1], parts[2]

	case CmdRoomList:
		role, ok := parseRole(parts[1:])
		if !ok {
			return cmd, ErrMalformedCommand
		}
		cmd.Role = role

	case CmdCreate:
		if len(parts) != 2 {
			return cmd, ErrMalformedCommand
		}
		cmd.RoomName = parts[1]

	case CmdJoin:
		if len(parts) != 3 {
			return cmd, ErrMalformedCommand
		}
		role, ok := parseRole(parts[2:])
		if !ok {
			return cmd, ErrMalformedCommand
		}
		cmd.RoomName, cmd.Role = parts[1], role

	case CmdPlace:
		if len(parts) != 3 {
			return cmd, ErrMalformedCommand
		}
		col, errCol := strconv.Atoi(parts[1])
		row, errRow := strconv.Atoi(parts[2])
		if errCol != nil || errRow != nil {
			return cmd, ErrMalformedCommand
		}
		cmd.Col, cmd.Row = col, row

	case CmdForfeit, CmdQuit:
		if len(parts) != 1 {
			return cmd, ErrMalformedCommand
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, parts[0])
	}

	return cmd, nil
}

func parseRole(parts []string) (room.Role, bool) {
	if len(parts) != 1 {
		return "", false
	}

	switch role := room.Role(parts[0]); role {
	case room.RolePlayer, room.RoleObserver:
		return role, true
	default:
		return "", false
	}
}

// Encode renders one outbound command line.
func (that *Command) Encode() string {
	switch that.Kind {
	case CmdLogin, CmdRegister:
		return join(string(that.Kind), that.Username, that.Password)
	case CmdRoomList:
		return join(string(that.Kind), string(that.Role))
	case CmdCreate:
		return join(string(that.Kind), that.RoomName)
	case CmdJoin:
		return join(string(that.Kind), that.RoomName, string(that.Role))
	case CmdPlace:
		return join(string(that.Kind), strconv.Itoa(that.Col), strconv.Itoa(that.Row))
	default:
		return string(that.Kind)
	}
}

type ReplyKind string

const (
	ReplyAck     ReplyKind = "ack"
	ReplyBegin   ReplyKind = "BEGIN"
	ReplyBoard   ReplyKind = "BOARD"
	ReplyWin     ReplyKind = "WIN"
	ReplyDraw    ReplyKind = "DRAW"
	ReplyForfeit ReplyKind = "FORFEIT"
	ReplyBadAuth ReplyKind = "BADAUTH"
	ReplyNoRoom  ReplyKind = "NOROOM"
	ReplyError   ReplyKind = "ERROR"
)

// Ack status codes, per command. Zero is always success.
const (
	LoginOK           = 0
	LoginUnknownUser  = 1
	LoginWrongPass    = 2
	LoginMalformed    = 3
	LoginNameInUse    = 4
	LoginAlreadyAuth  = 5
	RegisterOK        = 0
	RegisterExists    = 1
	RegisterMalformed = 2
	CreateOK          = 0
	CreateBadName     = 1
	CreateDuplicate   = 2
	CreateCapacity    = 3
	CreateMalformed   = 4
	JoinOK            = 0
	JoinNoRoom        = 1
	JoinFull          = 2
	JoinMalformed     = 3
	RoomListOK        = 0
	RoomListMalformed = 1
)

type Reply struct {
	Kind    ReplyKind
	Command CommandKind // which command an ack answers
	Status  int
	Rooms   []string
	Board   string
	PlayerX string
	PlayerO string
	Winner  string
	Reason  string
}

func Ack(command CommandKind, status int) *Reply {
	return &Reply{Kind: ReplyAck, Command: command, Status: status}
}

func Errorf(format string, args ...any) *Reply {
	return &Reply{Kind: ReplyError, Reason: fmt.Sprintf(format, args...)}
}

func (that *Reply) Encode() string {
	switch that.Kind {
	case ReplyAck:
		encoded := join(string(that.Command), ackMarker, strconv.Itoa(that.Status))
		if that.Command == CmdRoomList && that.Status == RoomListOK {
			encoded = join(encoded, strings.Join(that.Rooms, ","))
		}
		return encoded
	case ReplyBegin:
		return join(string(ReplyBegin), that.PlayerX, that.PlayerO)
	case ReplyBoard:
		return join(string(ReplyBoard), that.Board)
	case ReplyWin, ReplyForfeit:
		return join(string(that.Kind), that.Winner)
	case ReplyError:
		return join(string(ReplyError), that.Reason)
	default: // DRAW, BADAUTH, NOROOM
		return string(that.Kind)
	}
}

// ParseReply decodes one server line on the client side. Encode and
// ParseReply are exact inverses.
func ParseReply(line string) (*Reply, error) {
	parts := strings.Split(line, fieldSeparator)

	if len(parts) >= 3 && parts[1] == ackMarker {
		status, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: bad ack status %q", ErrUnknownReply, parts[2])
		}

		reply := Ack(CommandKind(parts[0]), status)
		if reply.Command == CmdRoomList && status == RoomListOK && len(parts) == 4 && parts[3] != "" {
			reply.Rooms = strings.Split(parts[3], ",")
		}

		return reply, nil
	}

	switch ReplyKind(parts[0]) {
	case ReplyBegin:
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReply, line)
		}
		return &Reply{Kind: ReplyBegin, PlayerX: parts[1], PlayerO: parts[2]}, nil
	case ReplyBoard:
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReply, line)
		}
		return &Reply{Kind: ReplyBoard, Board: parts[1]}, nil
	case ReplyWin, ReplyForfeit:
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReply, line)
		}
		return &Reply{Kind: ReplyKind(parts[0]), Winner: parts[1]}, nil
	case ReplyDraw, ReplyBadAuth, ReplyNoRoom:
		return &Reply{Kind: ReplyKind(parts[0])}, nil
	case ReplyError:
		return &Reply{Kind: ReplyError, Reason: strings.Join(parts[1:], fieldSeparator)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownReply, parts[0])
	}
}

// EncodeEvent translates a room event into its wire reply.
func EncodeEvent(ev room.Event) *Reply {
	switch ev.Kind {
	case room.EventBegin:
		return &Reply{Kind: ReplyBegin, PlayerX: ev.PlayerX, PlayerO: ev.PlayerO}
	case room.EventBoard:
		return &Reply{Kind: ReplyBoard, Board: ev.Board}
	case room.EventWin:
		return &Reply{Kind: ReplyWin, Winner: ev.Winner}
	case room.EventDraw:
		return &Reply{Kind: ReplyDraw}
	default:
		return &Reply{Kind: ReplyForfeit, Winner: ev.Winner}
	}
}

func join(fields ...string) string {
	return strings.Join(fields, fieldSeparator)
}
