// Package e2e exercises the server end to end: real listener, real framed
// TCP clients, real per-room timers. The suite boots one in-process server on
// an ephemeral port and each scenario connects protocol clients to it.
package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"

	"sketchswap/client"
	"sketchswap/infrastructure/tcp"
	"sketchswap/internal"
	"sketchswap/protocol"
	"sketchswap/runtime"
)

type BaseSuite struct {
	suite.Suite
	Config Config

	addr   string
	cancel context.CancelFunc
	done   chan struct{}
}

// SetupSuite loads the environment configuration and boots the server with a
// short exchange interval so scenarios observe timer fires quickly.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	serverConfig, err := internal.LoadConfig()
	s.Require().NoError(err)
	serverConfig.ExchangeInterval = s.Config.ExchangeInterval

	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	registry := runtime.NewRegistry()
	rooms := runtime.NewRooms(serverConfig.ExchangeInterval, log)
	broadcaster := runtime.NewBroadcaster(registry, log)
	handler := tcp.NewHandler(log, serverConfig, registry, rooms, broadcaster)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	s.addr = listener.Addr().String()

	server := tcp.NewServer(log, listener, handler)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_ = server.Run(ctx)
	}()
}

func (s *BaseSuite) TearDownSuite() {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		s.T().Log("server did not stop in time")
	}
}

// Banner prints a colorized header so scenario steps stand out in the logs.
func (s *BaseSuite) Banner(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// WaitForNotice reads envelopes until a system notice containing substr
// arrives. Scenario steps use it as a synchronization point: once a peer saw
// the notice, the server-side transition it reports has happened.
func (s *BaseSuite) WaitForNotice(c *client.Client, substr string) {
	deadline := time.Now().Add(s.Config.RecvTimeout)
	for {
		env, err := c.RecvTimeout(time.Until(deadline))
		s.Require().NoError(err, "expected a %q notice before the timeout", substr)
		if env.Type == protocol.TypeSystem && strings.Contains(env.Text(), substr) {
			return
		}
	}
}

// Connect dials the suite server and identifies, cleaning up with the test.
func (s *BaseSuite) Connect(name string) *client.Client {
	c, err := client.Dial(s.addr, name)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}
