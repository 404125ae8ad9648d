package room

import (
	"sync"

	"github.com/rocketscienceinc/ticroom-backend/internal/apperror"
	"github.com/rocketscienceinc/ticroom-backend/internal/entity"
)

type Role string

const (
	RolePlayer   Role = "PLAYER"
	RoleObserver Role = "VIEWER"
)

type EventKind string

const (
	EventBegin   EventKind = "begin"
	EventBoard   EventKind = "board"
	EventWin     EventKind = "win"
	EventDraw    EventKind = "draw"
	EventForfeit EventKind = "forfeit"
)

// Event is what a room delivers to every occupant after a successful
// mutating operation. Winner carries a username, not a mark.
type Event struct {
	Kind    EventKind
	Board   string
	PlayerX string
	PlayerO string
	Winner  string
}

type Snapshot struct {
	Name      string
	Status    string
	Players   [2]string
	Observers int
	Board     string
}

// feedBuffer bounds each occupant's event queue; a slow occupant drops
// its own deliveries instead of blocking the room.
const feedBuffer = 16

const playerSlots = 2

// Room holds the shared state of one match: two player slots, an
// observer set, and the game itself. Every mutating operation runs
// under the room's own mutex and returns the events it produced, so the
// package is testable without sockets.
type Room struct {
	name string

	mu        sync.Mutex
	game      *entity.Game
	players   [playerSlots]*entity.Player
	observers map[string]struct{}
	feeds     map[string]chan Event
}

func New(name string) *Room {
	return &Room{
		name:      name,
		game:      entity.NewGame(),
		observers: make(map[string]struct{}),
		feeds:     make(map[string]chan Event),
	}
}

func (that *Room) Name() string {
	return that.name
}

// Join seats identity as a player or observer and registers its event
// feed. Slot is 0 or 1 for players and -1 for observers. The feed also
// receives the events the join itself produces.
func (that *Room) Join(identity string, role Role) (int, <-chan Event, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if role == RoleObserver {
		that.observers[identity] = struct{}{}
		feed := that.attach(identity)

		// a late observer catches up on the running match
		if that.game.IsOngoing() {
			that.deliver(feed, that.beginEvent(), that.boardEvent())
		}

		return -1, feed, nil
	}

	if !that.game.IsWaiting() {
		return 0, nil, apperror.ErrGameAlreadyStarted
	}

	slot := -1
	for i, p := range that.players {
		if p == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, nil, apperror.ErrRoomFull
	}

	mark := entity.PlayerX
	if slot == 1 {
		mark = entity.PlayerO
	}
	that.players[slot] = &entity.Player{Name: identity, Mark: mark}

	feed := that.attach(identity)

	if that.players[0] != nil && that.players[1] != nil {
		that.game.Status = entity.StatusOngoing
		that.fanOut(that.beginEvent())
	}

	return slot, feed, nil
}

// Place applies identity's move and broadcasts the resulting board,
// plus the terminal event if the move ends the match.
func (that *Room) Place(identity string, col, row int) ([]Event, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	player := that.playerByName(identity)
	if player == nil {
		return nil, apperror.ErrNotAPlayer
	}

	if err := that.confirmOngoing(); err != nil {
		return nil, err
	}

	if err := that.game.MakeTurn(player.Mark, col, row); err != nil {
		return nil, err
	}

	events := []Event{that.boardEvent()}
	if that.game.IsFinished() {
		if that.game.Winner == entity.PlayerTie {
			events = append(events, Event{Kind: EventDraw, Board: that.game.EncodeBoard()})
		} else {
			events = append(events, Event{
				Kind:   EventWin,
				Board:  that.game.EncodeBoard(),
				Winner: that.nameByMark(that.game.Winner),
			})
		}
	}

	that.fanOut(events...)

	return events, nil
}

// Forfeit ends the match in the opponent's favor. Only valid for a
// seated player while the match is in progress.
func (that *Room) Forfeit(identity string) ([]Event, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	player := that.playerByName(identity)
	if player == nil {
		return nil, apperror.ErrNotAPlayer
	}

	if err := that.confirmOngoing(); err != nil {
		return nil, err
	}

	that.game.ForfeitBy(player.Mark)

	events := []Event{{
		Kind:   EventForfeit,
		Board:  that.game.EncodeBoard(),
		Winner: that.nameByMark(that.game.Winner),
	}}
	that.fanOut(events...)

	return events, nil
}

// Leave vacates identity's seat, forfeiting the match if it was in
// progress, and reports whether the room is now empty. Safe to call for
// occupants of any role; leaving twice is a no-op.
func (that *Room) Leave(identity string) (empty bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.observers[identity]; ok {
		delete(that.observers, identity)
	}

	if player := that.playerByName(identity); player != nil {
		for i, p := range that.players {
			if p != nil && p.Name == identity {
				that.players[i] = nil
			}
		}

		// exactly one finished transition even if both players race here
		if that.game.IsOngoing() {
			that.game.ForfeitBy(player.Mark)
			that.fanOut(Event{
				Kind:   EventForfeit,
				Board:  that.game.EncodeBoard(),
				Winner: that.nameByMark(that.game.Winner),
			})
		}
	}

	if feed, ok := that.feeds[identity]; ok {
		delete(that.feeds, identity)
		close(feed)
	}

	return that.isEmpty()
}

// Empty reports whether no occupant remains. Used by the registry as
// the final arbiter before removing the room.
func (that *Room) Empty() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.isEmpty()
}

// Joinable reports whether a player slot is still open.
func (that *Room) Joinable() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.game.IsWaiting() && (that.players[0] == nil || that.players[1] == nil)
}

func (that *Room) Snapshot() Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	snap := Snapshot{
		Name:      that.name,
		Status:    that.game.Status,
		Observers: len(that.observers),
		Board:     that.game.EncodeBoard(),
	}
	for i, p := range that.players {
		if p != nil {
			snap.Players[i] = p.Name
		}
	}

	return snap
}

func (that *Room) isEmpty() bool {
	return that.players[0] == nil && that.players[1] == nil && len(that.observers) == 0
}

func (that *Room) confirmOngoing() error {
	switch {
	case that.game.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.game.IsFinished():
		return apperror.ErrGameFinished
	default:
		return nil
	}
}

func (that *Room) playerByName(identity string) *entity.Player {
	for _, p := range that.players {
		if p != nil && p.Name == identity {
			return p
		}
	}
	return nil
}

func (that *Room) nameByMark(mark string) string {
	for _, p := range that.players {
		if p != nil && p.Mark == mark {
			return p.Name
		}
	}
	return ""
}

func (that *Room) attach(identity string) chan Event {
	feed := make(chan Event, feedBuffer)
	that.feeds[identity] = feed

	return feed
}

func (that *Room) beginEvent() Event {
	ev := Event{Kind: EventBegin}
	if that.players[0] != nil {
		ev.PlayerX = that.players[0].Name
	}
	if that.players[1] != nil {
		ev.PlayerO = that.players[1].Name
	}

	return ev
}

func (that *Room) boardEvent() Event {
	return Event{Kind: EventBoard, Board: that.game.EncodeBoard()}
}

// fanOut delivers events to every occupant's feed without blocking:
// a full feed loses the event for that occupant only.
func (that *Room) fanOut(events ...Event) {
	for _, feed := range that.feeds {
		that.deliver(feed, events...)
	}
}

func (that *Room) deliver(feed chan Event, events ...Event) {
	for _, ev := range events {
		select {
		case feed <- ev:
		default:
		}
	}
}
