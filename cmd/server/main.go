package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"sketchswap/infrastructure/tcp"
	"sketchswap/internal"
	"sketchswap/runtime"
	"sketchswap/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the acceptor and background workers.
func run() error {
	// 1. Configuration & Logger
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Shared state: session set, room registry, broadcaster
	registry := runtime.NewRegistry()
	rooms := runtime.NewRooms(config.ExchangeInterval, log)
	broadcaster := runtime.NewBroadcaster(registry, log)
	handler := tcp.NewHandler(log, config, registry, rooms, broadcaster)

	// 4. Listening endpoint. Failing to bind is the one fatal condition.
	listener, err := net.Listen("tcp", config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Addr(), err)
	}

	// 5. Supervised workers: acceptor + telemetry
	server := tcp.NewServer(log, listener, handler)
	telemetry := workers.NewTelemetryWorker(log, config.TelemetryInterval, registry, rooms)

	sup := workers.NewSupervisor(log)
	sup.Add(server, telemetry)

	log.Info("Starting exchange server", "address", config.Addr(),
		"exchange_interval", config.ExchangeInterval)

	// Blocks until the signal context cancels and every worker has drained.
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
