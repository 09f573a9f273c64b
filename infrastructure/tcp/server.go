package tcp

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"sync"

	"sketchswap/contract"
)

// Ensure *Server implements the contract.Worker interface at compile time.
var _ contract.Worker = (*Server)(nil)

// Server is the acceptor loop, run as a supervised worker. The caller binds
// the listener (a bind failure is fatal at startup and must be handled
// there); the server only accepts. A failed accept is logged and the loop
// continues; only the listener going away ends the worker.
type Server struct {
	log      *slog.Logger
	listener net.Listener
	handler  *Handler

	wg sync.WaitGroup
}

func NewServer(log *slog.Logger, listener net.Listener, handler *Handler) *Server {
	return &Server{
		log:      log,
		listener: listener,
		handler:  handler,
	}
}

// Run accepts connections until ctx is canceled, spawning one handler
// goroutine per session. It waits for every live session to finish before
// returning, so shutdown is clean.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Server started", "address", s.listener.Addr().String())

	stop := context.AfterFunc(ctx, func() { _ = s.listener.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				s.log.Info("Listener closed, stopping accept loop")
				return nil
			}
			// Transient (e.g. fd exhaustion): keep accepting.
			s.log.Warn("Accept failed", "error", err)
			continue
		}

		s.log.Info("Client connected", "addr", conn.RemoteAddr().String())
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handler.Handle(ctx, conn)
		}()
	}
}
