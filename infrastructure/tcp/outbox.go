// Package tcp is the transport layer: it binds the listening endpoint,
// accepts connections, and runs one read-dispatch loop per session over the
// length-prefixed frame protocol.
package tcp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"sketchswap/contract"
	"sketchswap/errors"
	"sketchswap/protocol"
)

// Ensure *outbox implements the contract.Sink interface at compile time.
var _ contract.Sink = (*outbox)(nil)

// outbox is the write half of a connection: a bounded queue drained by a
// dedicated pump goroutine. Deliver never blocks, so a stalled peer cannot
// stall dispatch, timers, or delivery to other sessions. Every write carries
// a short deadline; a write failure closes the connection, which in turn
// unblocks the session's read loop and triggers teardown.
type outbox struct {
	log   *slog.Logger
	conn  net.Conn
	queue chan protocol.Envelope

	writeTimeout time.Duration

	once sync.Once
	done chan struct{}
}

func newOutbox(conn net.Conn, bufferSize int, writeTimeout time.Duration, log *slog.Logger) *outbox {
	return &outbox{
		log:          log,
		conn:         conn,
		queue:        make(chan protocol.Envelope, bufferSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// Deliver enqueues one envelope, best-effort. A full queue counts as a failed
// delivery attempt; there is no retry.
func (o *outbox) Deliver(env protocol.Envelope) error {
	select {
	case <-o.done:
		return errors.ErrSessionClosed
	default:
	}

	select {
	case o.queue <- env:
		return nil
	case <-o.done:
		return errors.ErrSessionClosed
	default:
		return fmt.Errorf("outbound queue full, dropping %s", env.Type)
	}
}

// run drains the queue until the outbox is stopped or a write fails.
func (o *outbox) run() {
	for {
		select {
		case <-o.done:
			return
		case env := <-o.queue:
			if err := o.conn.SetWriteDeadline(time.Now().Add(o.writeTimeout)); err != nil {
				o.stop()
				return
			}
			if err := protocol.WriteFrame(o.conn, env); err != nil {
				o.log.Debug("Write failed, closing connection", "error", err)
				o.stop()
				return
			}
		}
	}
}

// stop makes all future Deliver calls fail and closes the connection.
func (o *outbox) stop() {
	o.once.Do(func() {
		close(o.done)
		_ = o.conn.Close()
	})
}
