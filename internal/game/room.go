package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scythe504/kartquiz-backend/internal"
)

// =============================================================================
// ROOM MANAGEMENT
// =============================================================================

// Registry owns every active room keyed by room code. All methods are safe
// for concurrent use; room contents are guarded by each room's own mutex.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*internal.Room
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*internal.Room),
		now:   time.Now,
	}
}

// WithClock replaces the time source. Used by tests and the reaper.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Create registers a new lobby room. It fails with ErrRoomExists when the code
// is already taken.
func (r *Registry) Create(code, title string, host internal.Host) (*internal.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[code]; exists {
		return nil, fmt.Errorf("create room %s: %w", code, ErrRoomExists)
	}

	room := internal.NewRoom(code, title, host, r.now())
	r.rooms[code] = room
	return room, nil
}

// Replace registers a new lobby room, overwriting any room at the same code.
// The overwritten room is closed and returned so its audience can be told.
func (r *Registry) Replace(code, title string, host internal.Host) (room, replaced *internal.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.rooms[code]; exists {
		closeRoom(old)
		replaced = old
	}

	room = internal.NewRoom(code, title, host, r.now())
	r.rooms[code] = room
	return room, replaced
}

func (r *Registry) Get(code string) (*internal.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// Remove deletes and closes the room at code and returns it so its audience
// can still be read.
func (r *Registry) Remove(code string) (*internal.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, false
	}
	delete(r.rooms, code)
	closeRoom(room)
	return room, true
}

func (r *Registry) Delete(code string) bool {
	_, ok := r.Remove(code)
	return ok
}

// All returns a snapshot of the registered rooms ordered by code.
func (r *Registry) All() []*internal.Room {
	r.mu.RLock()
	rooms := make([]*internal.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Code < rooms[j].Code })
	return rooms
}

// Summary returns the public summary of an open room without marking it active.
func (r *Registry) Summary(code string) (internal.RoomSummary, bool) {
	room, ok := r.Get(code)
	if !ok {
		return internal.RoomSummary{}, false
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Closed {
		return internal.RoomSummary{}, false
	}
	return room.Summary(), true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// WithRoom runs fn with the room at code locked. Rooms destroyed between
// lookup and lock are reported as ErrRoomNotFound. A nil error from fn marks
// the room as active.
func (r *Registry) WithRoom(code string, fn func(room *internal.Room) error) error {
	room, ok := r.Get(code)
	if !ok {
		return fmt.Errorf("room %s: %w", code, ErrRoomNotFound)
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Closed {
		return fmt.Errorf("room %s: %w", code, ErrRoomNotFound)
	}

	if err := fn(room); err != nil {
		return err
	}
	room.Touch(r.now())
	return nil
}

// DestroyIfHost deletes every room hosted by hostID and returns them closed.
func (r *Registry) DestroyIfHost(hostID string) []*internal.Room {
	return r.removeWhere(func(room *internal.Room) bool {
		return room.IsHost(hostID)
	})
}

// ExpireIdle deletes every room whose last activity is older than ttl.
func (r *Registry) ExpireIdle(ttl time.Duration) []*internal.Room {
	cutoff := r.now().Add(-ttl)
	return r.removeWhere(func(room *internal.Room) bool {
		return room.LastActivity.Before(cutoff)
	})
}

func (r *Registry) removeWhere(match func(room *internal.Room) bool) []*internal.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*internal.Room
	for code, room := range r.rooms {
		room.Mu.Lock()
		hit := match(room)
		if hit {
			room.Closed = true
		}
		room.Mu.Unlock()

		if hit {
			delete(r.rooms, code)
			removed = append(removed, room)
		}
	}

	sort.Slice(removed, func(i, j int) bool { return removed[i].Code < removed[j].Code })
	return removed
}

func closeRoom(room *internal.Room) {
	room.Mu.Lock()
	room.Closed = true
	room.Mu.Unlock()
}
