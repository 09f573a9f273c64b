package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"sketchswap/errors"
)

func TestFrame_RoundTrip_Chat(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	// Given a structured chat envelope
	env, err := NewChat(ChatPayload{Text: "Hello Bob", Username: "Alice", Timestamp: "12:04:31"})
	req.NoError(err)

	// When it is framed and read back
	req.NoError(WriteFrame(&buf, env))
	got, err := ReadFrame(&buf, DefaultMaxFrameSize)
	req.NoError(err)

	// Then the envelope survives intact
	req.Equal(TypeChat, got.Type)
	p, err := DecodeChat(got)
	req.NoError(err)
	req.Equal("Alice", p.Username)
	req.Equal("Hello Bob", p.Text)
}

func TestFrame_RoundTrip_OpaquePayload(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	blob := []byte{0x00, 0xff, 0x13, 0x37}

	req.NoError(WriteFrame(&buf, NewSubmitPayload(blob)))
	got, err := ReadFrame(&buf, DefaultMaxFrameSize)

	req.NoError(err)
	req.Equal(TypeSubmitPayload, got.Type)
	req.Equal(blob, got.Payload)
}

func TestFrame_EmptyPayload(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	req.NoError(WriteFrame(&buf, NewJoinRoom("")))
	got, err := ReadFrame(&buf, DefaultMaxFrameSize)

	req.NoError(err)
	req.Equal(TypeJoinRoom, got.Type)
	req.Empty(got.Payload)
}

func TestReadFrame_RejectsUnknownType(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	// Given a well-formed frame with an unregistered type tag
	body := []byte{Version, 0x7f, 'x'}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)

	_, err := ReadFrame(&buf, DefaultMaxFrameSize)

	// Then the frame is rejected, not silently ignored,
	// and the stream stays in sync for the next frame
	req.ErrorIs(err, errors.ErrUnknownEnvelope)
	req.Zero(buf.Len())
}

func TestReadFrame_RejectsOversizedFrame(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 1<<30)
	buf.Write(lenBuf[:])

	_, err := ReadFrame(&buf, DefaultMaxFrameSize)
	req.ErrorIs(err, errors.ErrFrameTooLarge)
}

func TestReadFrame_RejectsBadVersion(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	body := []byte{0x02, byte(TypeSystem)}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)

	_, err := ReadFrame(&buf, DefaultMaxFrameSize)
	req.ErrorIs(err, errors.ErrBadFrameVersion)
}

func TestReadFrame_TruncatedBody(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 10)
	buf.Write(lenBuf[:])
	buf.Write([]byte{Version, byte(TypeChat)})

	_, err := ReadFrame(&buf, DefaultMaxFrameSize)
	req.ErrorIs(err, io.ErrUnexpectedEOF)
}

func TestWriteFrame_RejectsInvalidType(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, Envelope{Type: Type(0xaa)})
	require.ErrorIs(t, err, errors.ErrUnknownEnvelope)
	require.Zero(t, buf.Len())
}
