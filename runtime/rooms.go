package runtime

import (
	"log/slog"
	"sync"
	"time"

	"sketchswap/domain"
)

// Rooms is the room registry: the exclusive owner of every Room instance.
// Creation, lookup, and deletion against the same id are serialized by one
// mutex, so two simultaneous joins for a fresh id can never create two rooms,
// and a join can never land in a room that is being reaped.
type Rooms struct {
	log    *slog.Logger
	period time.Duration

	mu    sync.Mutex
	rooms map[string]*domain.Room
}

func NewRooms(period time.Duration, log *slog.Logger) *Rooms {
	return &Rooms{
		log:    log,
		period: period,
		rooms:  make(map[string]*domain.Room),
	}
}

// GetOrCreate returns the room for id, constructing and inserting an empty
// one first if the id is unseen. Idempotent.
func (r *Rooms) GetOrCreate(id string) *domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(id)
}

func (r *Rooms) getOrCreateLocked(id string) *domain.Room {
	room, ok := r.rooms[id]
	if !ok {
		room = domain.NewRoom(id, r.period, r.log)
		r.rooms[id] = room
		r.log.Debug("Room created", "room", id)
	}
	return room
}

// Join routes a session into the room for id, creating it on demand. The
// membership change happens under the registry lock so it cannot interleave
// with a concurrent reap of the same room.
func (r *Rooms) Join(s *domain.Session, id string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.getOrCreateLocked(id)
	if err := room.AddMember(s); err != nil {
		return nil, err
	}
	return room, nil
}

// Leave removes the session from the room it currently belongs to, if any,
// and reaps the room once its member set becomes empty. It returns the left
// room so the caller can notify the remaining member.
func (r *Rooms) Leave(s *domain.Session) (*domain.Room, bool) {
	roomID, ok := s.Room()
	if !ok {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}

	room.RemoveMember(s)
	r.reapLocked(roomID, room)
	return room, true
}

// ReapIfEmpty deletes the room entry if and only if its member set is empty
// at the time of the check, stopping any lingering timer first.
func (r *Rooms) ReapIfEmpty(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[id]; ok {
		r.reapLocked(id, room)
	}
}

func (r *Rooms) reapLocked(id string, room *domain.Room) {
	if !room.Empty() {
		return
	}
	room.Stop()
	delete(r.rooms, id)
	r.log.Debug("Room reaped", "room", id)
}

// Lookup returns the room for id without creating one.
func (r *Rooms) Lookup(id string) (*domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	return room, ok
}

func (r *Rooms) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
