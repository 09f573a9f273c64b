package tcp

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"sketchswap/domain"
	"sketchswap/errors"
	"sketchswap/internal"
	"sketchswap/protocol"
	"sketchswap/runtime"
)

// Handler runs the server side of one connection: the identify handshake,
// then the inbound read-dispatch loop. Envelopes from a single session are
// processed strictly in the order received. All shared-state mutation goes
// through the registry, room registry, and broadcaster.
type Handler struct {
	log         *slog.Logger
	config      internal.Config
	registry    *runtime.Registry
	rooms       *runtime.Rooms
	broadcaster *runtime.Broadcaster
}

func NewHandler(log *slog.Logger, config internal.Config,
	registry *runtime.Registry, rooms *runtime.Rooms,
	broadcaster *runtime.Broadcaster) *Handler {
	return &Handler{
		log:         log,
		config:      config,
		registry:    registry,
		rooms:       rooms,
		broadcaster: broadcaster,
	}
}

// Handle owns the connection until the client disconnects, errors out, or
// ctx is canceled. It is the unit the acceptor spawns per connection.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) {
	out := newOutbox(conn, h.config.OutboundBufferSize, h.config.WriteTimeout, h.log)
	go out.run()
	defer out.stop()

	// Cancellation closes the socket, which unblocks the read loop.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	reader := bufio.NewReader(conn)

	name, err := h.awaitIdentity(conn, reader)
	if err != nil {
		h.log.Info("Dropping unidentified connection", "addr", conn.RemoteAddr().String(), "error", err)
		return
	}

	sess := domain.NewSession(out)
	_ = sess.Identify(name)
	h.registry.Add(sess)
	defer h.teardown(sess)

	h.log.Info("Client registered", "name", name, "addr", conn.RemoteAddr().String())

	if err := sess.Deliver(protocol.NewSystem(
		fmt.Sprintf("Hello, %s! Use join_room to pair up.", name))); err != nil {
		h.log.Warn("Failed to deliver welcome", "name", name, "error", err)
	}
	h.broadcaster.ToAll(protocol.NewSystem(fmt.Sprintf("%s joined the chat!", name)))

	h.readLoop(sess, reader)
}

// awaitIdentity enforces the handshake: the very first frame must be an
// identify envelope carrying a non-blank display name, within the grace
// period. Anything else closes the connection.
func (h *Handler) awaitIdentity(conn net.Conn, reader *bufio.Reader) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(h.config.IdentifyGrace)); err != nil {
		return "", err
	}

	env, err := protocol.ReadFrame(reader, h.config.MaxFrameSize)
	if err != nil {
		return "", fmt.Errorf("reading identity frame: %w", err)
	}
	if env.Type != protocol.TypeIdentify {
		return "", fmt.Errorf("first frame is %s: %w", env.Type, errors.ErrNotIdentified)
	}

	name := strings.TrimSpace(env.Text())
	if name == "" {
		return "", fmt.Errorf("blank display name: %w", errors.ErrNotIdentified)
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return "", err
	}
	return name, nil
}

// readLoop blocks on the next inbound envelope; this is the only blocking
// operation on the session's path. An unknown envelope type leaves the stream
// in sync, so the offender is told off and the session lives on; a malformed
// frame terminates this session only.
func (h *Handler) readLoop(sess *domain.Session, reader *bufio.Reader) {
	for {
		env, err := protocol.ReadFrame(reader, h.config.MaxFrameSize)
		if err != nil {
			if stderrors.Is(err, errors.ErrUnknownEnvelope) {
				h.reject(sess, "unknown envelope type")
				continue
			}
			h.log.Debug("Read loop finished", "name", sess.Name(), "error", err)
			return
		}
		h.dispatch(sess, env)
	}
}

func (h *Handler) dispatch(sess *domain.Session, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeChat:
		h.handleChat(sess, env)
	case protocol.TypeJoinRoom:
		h.handleJoinRoom(sess, strings.TrimSpace(env.Text()))
	case protocol.TypeSubmitPayload:
		sess.SubmitPayload(env.Payload)
		h.log.Debug("Stored drawing for exchange", "name", sess.Name(), "bytes", len(env.Payload))
	case protocol.TypeIdentify:
		h.reject(sess, "already identified")
	default:
		// Server-to-client types bounced back by a confused client.
		h.reject(sess, fmt.Sprintf("unexpected %s envelope", env.Type))
	}
}

// handleChat attaches the sender name and a timestamp server-side and fans
// the message out: room-scoped when the sender is paired, global otherwise.
// The sender always gets the echo.
func (h *Handler) handleChat(sess *domain.Session, env protocol.Envelope) {
	out, err := protocol.NewChat(protocol.ChatPayload{
		Text:      env.Text(),
		Username:  sess.Name(),
		Timestamp: time.Now().Format("15:04:05"),
	})
	if err != nil {
		h.log.Error("Failed to encode chat envelope", "error", err)
		return
	}

	if roomID, ok := sess.Room(); ok {
		if room, found := h.rooms.Lookup(roomID); found {
			h.broadcaster.ToRoom(out, room)
			return
		}
	}
	h.broadcaster.ToAll(out)
}

// handleJoinRoom leaves the current room first, then asks the room registry
// for a seat. On failure the session ends up roomless.
func (h *Handler) handleJoinRoom(sess *domain.Session, roomID string) {
	if roomID == "" {
		h.reject(sess, "room id must not be empty")
		return
	}

	if left, ok := h.rooms.Leave(sess); ok {
		h.broadcaster.ToRoom(protocol.NewSystem(
			fmt.Sprintf("%s left room %s", sess.Name(), left.ID())), left)
	}

	room, err := h.rooms.Join(sess, roomID)
	if err != nil {
		if stderrors.Is(err, errors.ErrRoomFull) {
			h.reject(sess, fmt.Sprintf("Room %s is full (max %d players)", roomID, domain.MaxMembers))
		} else {
			h.reject(sess, fmt.Sprintf("cannot join room %s", roomID))
		}
		return
	}

	if err := sess.Deliver(protocol.NewRoomJoined(roomID)); err != nil {
		h.log.Warn("Failed to deliver room_joined", "name", sess.Name(), "error", err)
	}
	h.broadcaster.ToRoom(protocol.NewSystem(
		fmt.Sprintf("%s joined room %s", sess.Name(), roomID)), room)
	h.log.Info("Client joined room", "name", sess.Name(), "room", roomID)
}

// teardown is the single exit path of a session: detach from the room, leave
// the global set, then tell everyone left. After it returns no broadcast can
// reach this session.
func (h *Handler) teardown(sess *domain.Session) {
	sess.Close()

	if room, ok := h.rooms.Leave(sess); ok {
		h.broadcaster.ToRoom(protocol.NewSystem(
			fmt.Sprintf("%s left room %s", sess.Name(), room.ID())), room)
	}

	h.registry.Remove(sess)
	h.broadcaster.ToAllExcept(protocol.NewSystem(
		fmt.Sprintf("%s left the chat!", sess.Name())), sess)
	h.log.Info("Client disconnected", "name", sess.Name())
}

// reject surfaces a protocol-level complaint to the offending client only.
func (h *Handler) reject(sess *domain.Session, reason string) {
	if err := sess.Deliver(protocol.NewRoomError(reason)); err != nil {
		h.log.Debug("Failed to deliver room_error", "name", sess.Name(), "error", err)
	}
}
