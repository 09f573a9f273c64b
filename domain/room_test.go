package domain

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"sketchswap/errors"
	"sketchswap/protocol"
)

// captureSink records delivered envelopes so tests can assert on traffic.
type captureSink struct {
	mu   sync.Mutex
	envs []protocol.Envelope
	fail error
}

func (c *captureSink) Deliver(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.envs = append(c.envs, env)
	return nil
}

func (c *captureSink) byType(t protocol.Type) []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Filter(c.envs, func(env protocol.Envelope, _ int) bool {
		return env.Type == t
	})
}

// longPeriod keeps the real timer from firing during a test; exchanges are
// triggered manually via Exchange().
const longPeriod = time.Hour

func newIdentifiedSession(t *testing.T, name string) (*Session, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	sess := NewSession(sink)
	require.NoError(t, sess.Identify(name))
	return sess, sink
}

func TestRoom_AddMember_FillsAndArms(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	room := NewRoom("lobby", longPeriod, log)
	alice, aliceSink := newIdentifiedSession(t, "Alice")
	bob, bobSink := newIdentifiedSession(t, "Bob")

	// Given an empty room, the timer is not armed
	req.False(room.Armed())

	// When the first member joins
	req.NoError(room.AddMember(alice))

	// Then the room waits, still unarmed
	req.Equal(1, room.Len())
	req.False(room.Armed())

	// When the second member joins
	req.NoError(room.AddMember(bob))

	// Then the room is full, the timer armed, and both members notified
	req.True(room.Full())
	req.True(room.Armed())
	req.Len(aliceSink.byType(protocol.TypeRoomFull), 1)
	req.Len(bobSink.byType(protocol.TypeRoomFull), 1)

	roomID, ok := alice.Room()
	req.True(ok)
	req.Equal("lobby", roomID)
}

func TestRoom_AddMember_ThirdJoinRejectedWithoutMutation(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", longPeriod, slog.Default())
	alice, _ := newIdentifiedSession(t, "Alice")
	bob, _ := newIdentifiedSession(t, "Bob")
	carol, _ := newIdentifiedSession(t, "Carol")

	req.NoError(room.AddMember(alice))
	req.NoError(room.AddMember(bob))

	// When a third session tries to join a full room
	err := room.AddMember(carol)

	// Then the join fails and the member set is untouched
	req.ErrorIs(err, errors.ErrRoomFull)
	req.Equal([]*Session{alice, bob}, room.Members())

	_, inRoom := carol.Room()
	req.False(inRoom)
}

func TestRoom_Exchange_SwapsAndClears(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", longPeriod, slog.Default())
	alice, aliceSink := newIdentifiedSession(t, "Alice")
	bob, bobSink := newIdentifiedSession(t, "Bob")
	req.NoError(room.AddMember(alice))
	req.NoError(room.AddMember(bob))

	// Given both members submitted a drawing
	alice.SubmitPayload([]byte("alice-drawing"))
	bob.SubmitPayload([]byte("bob-drawing"))

	// When the timer fires
	room.Exchange()

	// Then each member receives the other's drawing tagged with the other's name
	aliceGot := aliceSink.byType(protocol.TypeExchange)
	req.Len(aliceGot, 1)
	payload, err := protocol.DecodeExchange(aliceGot[0])
	req.NoError(err)
	req.Equal("Bob", payload.Username)
	req.Equal([]byte("bob-drawing"), payload.ImageData)

	bobGot := bobSink.byType(protocol.TypeExchange)
	req.Len(bobGot, 1)
	payload, err = protocol.DecodeExchange(bobGot[0])
	req.NoError(err)
	req.Equal("Alice", payload.Username)
	req.Equal([]byte("alice-drawing"), payload.ImageData)

	// And both submissions are cleared for the next round
	_, ok := alice.Payload()
	req.False(ok)
	_, ok = bob.Payload()
	req.False(ok)
}

func TestRoom_Exchange_SkipsWhenOneSubmissionMissing(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", longPeriod, slog.Default())
	alice, aliceSink := newIdentifiedSession(t, "Alice")
	bob, bobSink := newIdentifiedSession(t, "Bob")
	req.NoError(room.AddMember(alice))
	req.NoError(room.AddMember(bob))

	// Given only one member submitted
	alice.SubmitPayload([]byte("alice-drawing"))

	room.Exchange()

	// Then no exchange is delivered but the submission is cleared anyway
	req.Empty(aliceSink.byType(protocol.TypeExchange))
	req.Empty(bobSink.byType(protocol.TypeExchange))
	_, ok := alice.Payload()
	req.False(ok)
}

func TestRoom_RemoveMember_DisarmsTimer(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", longPeriod, slog.Default())
	alice, _ := newIdentifiedSession(t, "Alice")
	bob, bobSink := newIdentifiedSession(t, "Bob")
	req.NoError(room.AddMember(alice))
	req.NoError(room.AddMember(bob))
	alice.SubmitPayload([]byte("alice-drawing"))
	bob.SubmitPayload([]byte("bob-drawing"))

	// When a member leaves a full room
	room.RemoveMember(alice)

	// Then the timer is disarmed and the session detached
	req.False(room.Armed())
	req.Equal(1, room.Len())
	_, inRoom := alice.Room()
	req.False(inRoom)

	// And a stale fire is a no-op: no exchange for a half-empty room
	room.Exchange()
	req.Empty(bobSink.byType(protocol.TypeExchange))
}

func TestRoom_RefillRearms(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", longPeriod, slog.Default())
	alice, _ := newIdentifiedSession(t, "Alice")
	bob, _ := newIdentifiedSession(t, "Bob")
	carol, carolSink := newIdentifiedSession(t, "Carol")

	req.NoError(room.AddMember(alice))
	req.NoError(room.AddMember(bob))
	room.RemoveMember(bob)

	// When a new member fills the vacated slot
	req.NoError(room.AddMember(carol))

	// Then the room arms again and notifies the pair
	req.True(room.Armed())
	req.Len(carolSink.byType(protocol.TypeRoomFull), 1)
}

func TestRoom_Exchange_TimerFiresOnItsOwn(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", 30*time.Millisecond, slog.Default())
	alice, aliceSink := newIdentifiedSession(t, "Alice")
	bob, _ := newIdentifiedSession(t, "Bob")
	req.NoError(room.AddMember(alice))
	req.NoError(room.AddMember(bob))
	defer room.Stop()

	alice.SubmitPayload([]byte("a"))
	bob.SubmitPayload([]byte("b"))

	// Then the armed timer performs the swap without any manual trigger
	req.Eventually(func() bool {
		return len(aliceSink.byType(protocol.TypeExchange)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRoom_DeliveryFailureDoesNotAbortExchange(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", longPeriod, slog.Default())
	alice, aliceSink := newIdentifiedSession(t, "Alice")
	bob, bobSink := newIdentifiedSession(t, "Bob")
	req.NoError(room.AddMember(alice))
	req.NoError(room.AddMember(bob))

	alice.SubmitPayload([]byte("a"))
	bob.SubmitPayload([]byte("b"))

	// Given one member's connection is gone
	aliceSink.fail = errors.ErrSessionClosed

	room.Exchange()

	// Then the healthy member still receives its half of the swap
	req.Len(bobSink.byType(protocol.TypeExchange), 1)
}
