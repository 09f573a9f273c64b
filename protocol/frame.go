package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"sketchswap/errors"
)

// Frame layout, all lengths big-endian:
//
//	uint32 length   covers version + type + payload
//	byte   version  currently 0x01
//	byte   type     envelope type tag
//	[]byte payload
//
// The first frame on a fresh connection must be an identify envelope. The
// original wire format sent the display name as a bare unframed string before
// switching to serialized messages; that asymmetry is normalized here.
const (
	Version = 0x01

	headerSize = 2 // version + type, inside the length-prefixed body

	// DefaultMaxFrameSize bounds a single frame. Sized for serialized
	// drawings; the historical receive buffer was 64 KiB.
	DefaultMaxFrameSize = 1 << 20
)

// WriteFrame serializes one envelope onto w.
func WriteFrame(w io.Writer, env Envelope) error {
	if !env.Type.Valid() {
		return fmt.Errorf("writing frame: %w", errors.ErrUnknownEnvelope)
	}

	buf := make([]byte, 4+headerSize+len(env.Payload))
	binary.BigEndian.PutUint32(buf, uint32(headerSize+len(env.Payload)))
	buf[4] = Version
	buf[5] = byte(env.Type)
	copy(buf[6:], env.Payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads exactly one envelope from r. maxSize bounds the declared
// frame length; oversized or truncated frames are malformed and the caller is
// expected to drop the connection.
func ReadFrame(r io.Reader, maxSize int) (Envelope, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Envelope{}, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < headerSize {
		return Envelope{}, fmt.Errorf("frame length %d below header size", length)
	}
	if int(length) > maxSize {
		return Envelope{}, fmt.Errorf("frame length %d: %w", length, errors.ErrFrameTooLarge)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, fmt.Errorf("reading frame body: %w", err)
	}

	if body[0] != Version {
		return Envelope{}, fmt.Errorf("frame version 0x%02x: %w", body[0], errors.ErrBadFrameVersion)
	}

	env := Envelope{Type: Type(body[1]), Payload: body[headerSize:]}
	if !env.Type.Valid() {
		return Envelope{}, fmt.Errorf("frame type 0x%02x: %w", body[1], errors.ErrUnknownEnvelope)
	}
	return env, nil
}
