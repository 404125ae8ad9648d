package room

import (
	"regexp"
	"sync"

	"github.com/rocketscienceinc/ticroom-backend/internal/apperror"
)

// MaxRooms caps the registry; creating a room beyond it fails.
const MaxRooms = 256

var roomNamePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]{1,20}$`)

type Info struct {
	Name      string
	Status    string
	Players   int
	Observers int
}

// Registry is the process-wide room directory. Its mutex guards only
// the name mapping; each room serializes its own operations.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Create makes a room and seats creator in slot 0. The creator's event
// feed is registered before the room becomes visible to other workers.
func (that *Registry) Create(name, creator string) (*Room, <-chan Event, error) {
	if !roomNamePattern.MatchString(name) {
		return nil, nil, apperror.ErrRoomNameInvalid
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, exists := that.rooms[name]; exists {
		return nil, nil, apperror.ErrDuplicateRoom
	}

	if len(that.rooms) >= MaxRooms {
		return nil, nil, apperror.ErrRegistryFull
	}

	newRoom := New(name)
	_, feed, err := newRoom.Join(creator, RolePlayer)
	if err != nil {
		return nil, nil, err
	}

	that.rooms[name] = newRoom
	that.order = append(that.order, name)

	return newRoom, feed, nil
}

func (that *Registry) Find(name string) (*Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	existing, ok := that.rooms[name]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return existing, nil
}

// List returns a stable creation-order snapshot. RolePlayer filters to
// rooms that can still seat a player; RoleObserver lists every room.
func (that *Registry) List(role Role) []Info {
	that.mu.Lock()
	ordered := make([]*Room, 0, len(that.order))
	for _, name := range that.order {
		if existing, ok := that.rooms[name]; ok {
			ordered = append(ordered, existing)
		}
	}
	that.mu.Unlock()

	infos := make([]Info, 0, len(ordered))
	for _, existing := range ordered {
		if role == RolePlayer && !existing.Joinable() {
			continue
		}

		snap := existing.Snapshot()
		occupancy := 0
		for _, p := range snap.Players {
			if p != "" {
				occupancy++
			}
		}

		infos = append(infos, Info{
			Name:      snap.Name,
			Status:    snap.Status,
			Players:   occupancy,
			Observers: snap.Observers,
		})
	}

	return infos
}

// Remove drops the named room if it is still empty. Idempotent: a
// missing room, or one that gained an occupant since the triggering
// leave, is left alone.
func (that *Registry) Remove(name string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	existing, ok := that.rooms[name]
	if !ok || !existing.Empty() {
		return
	}

	delete(that.rooms, name)
	for i, n := range that.order {
		if n == name {
			that.order = append(that.order[:i], that.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of registered rooms.
func (that *Registry) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.rooms)
}
