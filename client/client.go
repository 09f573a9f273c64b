// Package client is a thin protocol client for the exchange server. It is
// what a front-end (or an end-to-end test) builds on: it frames envelopes,
// performs the identify handshake, and reads server traffic. It renders
// nothing and keeps no chat state.
package client

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"sketchswap/protocol"
)

// Client is one identified connection to the server. Reads and writes may be
// used from different goroutines; concurrent writers are serialized.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	name   string

	writeMu sync.Mutex
}

// Dial connects to addr and identifies as name. The identify envelope is the
// first frame on the wire, as the handshake requires.
func Dial(addr, name string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	c := &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		name:   name,
	}
	if err := c.send(protocol.NewIdentify(name)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Name() string {
	return c.name
}

// SendChat sends display text. The server attaches the sender name and
// timestamp; whatever the client puts here is untrusted.
func (c *Client) SendChat(text string) error {
	return c.send(protocol.Envelope{Type: protocol.TypeChat, Payload: []byte(text)})
}

// JoinRoom asks for a seat in the given room.
func (c *Client) JoinRoom(roomID string) error {
	return c.send(protocol.NewJoinRoom(roomID))
}

// SubmitDrawing stores blob server-side for the next exchange.
func (c *Client) SubmitDrawing(blob []byte) error {
	return c.send(protocol.NewSubmitPayload(blob))
}

// Send transmits an arbitrary envelope. Tests use it to probe the server
// with traffic a well-behaved client would never produce.
func (c *Client) Send(env protocol.Envelope) error {
	return c.send(env)
}

func (c *Client) send(env protocol.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.conn, env)
}

// Recv blocks until the next server envelope arrives.
func (c *Client) Recv() (protocol.Envelope, error) {
	return protocol.ReadFrame(c.reader, protocol.DefaultMaxFrameSize)
}

// RecvTimeout is Recv bounded by a read deadline.
func (c *Client) RecvTimeout(timeout time.Duration) (protocol.Envelope, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return protocol.Envelope{}, err
	}
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	return protocol.ReadFrame(c.reader, protocol.DefaultMaxFrameSize)
}

// WaitFor reads and discards envelopes until one of the wanted type arrives
// or the timeout elapses. Interleaved system chatter makes exact sequences
// brittle; scenario tests assert on the envelopes they care about.
func (c *Client) WaitFor(want protocol.Type, timeout time.Duration) (protocol.Envelope, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return protocol.Envelope{}, fmt.Errorf("timed out waiting for %s envelope", want)
		}
		env, err := c.RecvTimeout(remaining)
		if err != nil {
			return protocol.Envelope{}, fmt.Errorf("waiting for %s envelope: %w", want, err)
		}
		if env.Type == want {
			return env, nil
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
