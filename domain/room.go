package domain

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sketchswap/errors"
	"sketchswap/protocol"
)

// MaxMembers is the hard cap on room occupancy. Pairing is strictly two-party.
const MaxMembers = 2

// Room pairs up to two sessions and swaps their submitted drawings on a
// recurring timer.
//
// State machine: Empty -> Waiting (1 member) -> Full (2 members, exchange
// armed) -> Waiting/Empty on a member leaving. The timer is armed only while
// Full, and canceled on any transition out of Full, so a fire racing a leave
// observes the disarmed state and does nothing.
//
// All membership, timer, and fire operations are serialized by the room
// mutex. The registry owns Room instances exclusively; a Room never holds the
// last reference to a Session.
type Room struct {
	id     string
	period time.Duration
	log    *slog.Logger

	mu      sync.Mutex
	members []*Session
	armed   bool
	timer   *time.Timer
}

func NewRoom(id string, period time.Duration, log *slog.Logger) *Room {
	return &Room{
		id:     id,
		period: period,
		log:    log.With("room", id),
	}
}

func (r *Room) ID() string {
	return r.id
}

// AddMember admits a session while capacity remains. Filling the room arms
// the exchange timer and notifies both members with a room_full envelope.
// A full room is left untouched and the caller gets ErrRoomFull.
func (r *Room) AddMember(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= MaxMembers {
		return fmt.Errorf("room %s: %w", r.id, errors.ErrRoomFull)
	}

	r.members = append(r.members, s)
	s.setRoom(r.id)

	if len(r.members) == MaxMembers {
		r.armLocked()
		for _, member := range r.members {
			if err := member.Deliver(protocol.NewRoomFull(r.id)); err != nil {
				r.log.Warn("Failed to deliver room_full notice", "member", member.Name(), "error", err)
			}
		}
	}
	return nil
}

// RemoveMember detaches the session if present. Dropping below capacity
// disarms and cancels the timer, so a pending fire becomes a no-op.
func (r *Room) RemoveMember(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, member := range r.members {
		if member == s {
			r.members = append(r.members[:i], r.members[i+1:]...)
			s.clearRoom()
			break
		}
	}

	if len(r.members) < MaxMembers {
		r.disarmLocked()
	}
}

// Exchange is the timer callback. It fires only while the room is Full and
// armed; a stale fire after a leave or a reap is a guarded no-op. When both
// members have submitted a drawing, each receives the other's blob tagged
// with the other's name. Both submissions are cleared either way and the
// timer is re-armed for the next interval.
func (r *Room) Exchange() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.armed || len(r.members) != MaxMembers {
		return
	}

	first, second := r.members[0], r.members[1]
	firstBlob, firstOK := first.Payload()
	secondBlob, secondOK := second.Payload()

	if firstOK && secondOK {
		r.swap(first, secondBlob, second.Name())
		r.swap(second, firstBlob, first.Name())
		r.log.Info("Exchanged drawings", "between", first.Name(), "and", second.Name())
	} else {
		r.log.Debug("Skipping exchange, not every member submitted a drawing")
	}

	first.ClearPayload()
	second.ClearPayload()

	// Still Full and armed: schedule the next round.
	r.timer = time.AfterFunc(r.period, r.Exchange)
}

// swap delivers one half of an exchange, best-effort.
func (r *Room) swap(to *Session, blob []byte, fromName string) {
	env, err := protocol.NewExchange(protocol.ExchangePayload{ImageData: blob, Username: fromName})
	if err != nil {
		r.log.Error("Failed to encode exchange envelope", "error", err)
		return
	}
	if err := to.Deliver(env); err != nil {
		r.log.Warn("Failed to deliver exchange", "member", to.Name(), "error", err)
	}
}

func (r *Room) armLocked() {
	r.armed = true
	r.timer = time.AfterFunc(r.period, r.Exchange)
}

func (r *Room) disarmLocked() {
	r.armed = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Stop cancels any pending timer. The registry calls it before deleting an
// empty room so an orphaned fire can never outlive the room entry.
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disarmLocked()
}

// Members returns a snapshot of the current member list, in join order.
func (r *Room) Members() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]*Session, len(r.members))
	copy(snapshot, r.members)
	return snapshot
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) Empty() bool {
	return r.Len() == 0
}

func (r *Room) Full() bool {
	return r.Len() == MaxMembers
}

// Armed reports whether the exchange timer is live.
func (r *Room) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}
