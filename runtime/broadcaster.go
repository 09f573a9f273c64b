package runtime

import (
	"log/slog"

	"sketchswap/domain"
	"sketchswap/protocol"
)

// Broadcaster delivers one envelope to a set of sessions. Each delivery is
// independent and best-effort: a failure for one recipient is logged and
// skipped, never retried, and never stops delivery to the others. It is not a
// message broker; there is no queuing across targets.
type Broadcaster struct {
	log      *slog.Logger
	registry *Registry
}

func NewBroadcaster(registry *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{log: log, registry: registry}
}

// ToAll delivers to every live session, sender included.
func (b *Broadcaster) ToAll(env protocol.Envelope) {
	b.deliver(env, b.registry.Snapshot())
}

// ToAllExcept delivers to every live session but the sender.
func (b *Broadcaster) ToAllExcept(env protocol.Envelope, sender *domain.Session) {
	targets := make([]*domain.Session, 0, b.registry.Len())
	for _, s := range b.registry.Snapshot() {
		if s != sender {
			targets = append(targets, s)
		}
	}
	b.deliver(env, targets)
}

// ToRoom delivers to every member of the room, sender included.
func (b *Broadcaster) ToRoom(env protocol.Envelope, room *domain.Room) {
	b.deliver(env, room.Members())
}

// ToRoomExcept delivers to the room members other than the sender.
func (b *Broadcaster) ToRoomExcept(env protocol.Envelope, room *domain.Room, sender *domain.Session) {
	targets := make([]*domain.Session, 0, domain.MaxMembers)
	for _, member := range room.Members() {
		if member != sender {
			targets = append(targets, member)
		}
	}
	b.deliver(env, targets)
}

func (b *Broadcaster) deliver(env protocol.Envelope, targets []*domain.Session) {
	for _, target := range targets {
		if err := target.Deliver(env); err != nil {
			b.log.Warn("Dropped delivery",
				"type", env.Type.String(),
				"to", target.Name(),
				"error", err)
		}
	}
}
