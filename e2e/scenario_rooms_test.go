package e2e

import (
	"sketchswap/protocol"
)

func (s *ServerSuite) TestRoomFull_ThirdJoinRejectedThenRetrySucceeds() {
	s.Banner("full room rejection and retry")
	req := s.Require()
	alice := s.Connect("Alice")
	bob := s.Connect("Bob")
	carol := s.Connect("Carol")

	// Given the room is full
	req.NoError(alice.JoinRoom("x"))
	req.NoError(bob.JoinRoom("x"))
	_, err := bob.WaitFor(protocol.TypeRoomFull, s.Config.RecvTimeout)
	req.NoError(err)

	// When a third client asks for a seat
	req.NoError(carol.JoinRoom("x"))

	// Then the join is rejected with a room-full error
	env, err := carol.WaitFor(protocol.TypeRoomError, s.Config.RecvTimeout)
	req.NoError(err)
	req.Contains(env.Text(), "full")

	// When Alice vacates by moving to another room
	req.NoError(alice.JoinRoom("x-solo"))
	s.WaitForNotice(bob, "Alice left room x")

	// Then Carol's retry succeeds
	req.NoError(carol.JoinRoom("x"))
	env, err = carol.WaitFor(protocol.TypeRoomJoined, s.Config.RecvTimeout)
	req.NoError(err)
	req.Equal("x", env.Text())
}

func (s *ServerSuite) TestJoinRoom_SwitchingRoomsNotifiesTheOldRoom() {
	s.Banner("switching rooms")
	req := s.Require()
	alice := s.Connect("Alice")
	bob := s.Connect("Bob")

	req.NoError(alice.JoinRoom("old"))
	req.NoError(bob.JoinRoom("old"))
	_, err := bob.WaitFor(protocol.TypeRoomFull, s.Config.RecvTimeout)
	req.NoError(err)

	// When Alice switches to a different room
	req.NoError(alice.JoinRoom("new"))

	// Then Bob hears that she left the old room
	s.WaitForNotice(bob, "Alice left room old")
}
