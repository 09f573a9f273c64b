// Package domain contains the core concepts of the exchange server: Sessions
// and Rooms, their invariants and lifecycle rules. No network or UI logic
// should be added here.
package domain

import (
	"sync"

	"github.com/google/uuid"

	"sketchswap/contract"
	"sketchswap/errors"
	"sketchswap/protocol"
)

// UnknownName is the display name of a session that has not identified yet.
const UnknownName = "Unknown"

// Session is the server-side state of one connected client. The display name
// is assigned exactly once at identification time and immutable afterwards.
// A Session is safe for concurrent use; the room and registry layers hold
// non-owning references only.
type Session struct {
	id  uuid.UUID
	out contract.Sink

	mu          sync.Mutex
	name        string
	identified  bool
	currentRoom string
	lastPayload []byte
	alive       bool
}

func NewSession(out contract.Sink) *Session {
	return &Session{
		id:    uuid.New(),
		out:   out,
		name:  UnknownName,
		alive: true,
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Identify assigns the display name. It succeeds exactly once; the identity
// is immutable after that.
func (s *Session) Identify(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identified {
		return errors.ErrAlreadyIdentified
	}
	s.name = name
	s.identified = true
	return nil
}

func (s *Session) Identified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identified
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Room returns the id of the room the session currently belongs to, if any.
func (s *Session) Room() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRoom, s.currentRoom != ""
}

func (s *Session) setRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRoom = roomID
}

func (s *Session) clearRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRoom = ""
}

// SubmitPayload stores the latest drawing blob for the next exchange,
// replacing any previous submission. The content is opaque to the server.
func (s *Session) SubmitPayload(blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPayload = blob
}

// Payload returns the last submitted blob. The second result is false when
// nothing non-empty has been submitted since the previous exchange.
func (s *Session) Payload() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPayload, len(s.lastPayload) > 0
}

// ClearPayload drops the stored blob. Rooms call this after every timer fire,
// whether or not the fire produced a swap.
func (s *Session) ClearPayload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPayload = nil
}

// Deliver forwards an envelope to the client, best-effort. Delivery to a
// closed session fails without touching the connection.
func (s *Session) Deliver(env protocol.Envelope) error {
	s.mu.Lock()
	alive := s.alive
	s.mu.Unlock()

	if !alive {
		return errors.ErrSessionClosed
	}
	return s.out.Deliver(env)
}

// Close marks the session dead. Subsequent Deliver calls fail fast; the
// transport layer owns closing the underlying connection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
}

func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}
