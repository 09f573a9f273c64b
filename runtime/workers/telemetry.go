package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"sketchswap/contract"
	rt "sketchswap/runtime"
)

// Ensure *TelemetryWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker periodically reports process health (CPU, RSS, goroutines)
// together with the live session and room counts. Purely observational: it
// reads registry sizes and never mutates shared state.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	registry *rt.Registry
	rooms    *rt.Rooms
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration,
	registry *rt.Registry, rooms *rt.Rooms) *TelemetryWorker {
	return &TelemetryWorker{
		log:      log,
		interval: interval,
		registry: registry,
		rooms:    rooms,
	}
}

// Run executes the main loop of the worker, logging health metrics on every tick.
func (w *TelemetryWorker) Run(ctx context.Context) error {
	w.log.Info("Starting telemetry worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			w.log.Info("Server health",
				"sessions", w.registry.Len(),
				"rooms", w.rooms.Len(),
				"goroutines", runtime.NumGoroutine(),
				"cpu_percent", cpu,
				"ram_bytes", rss)
		}
	}
}

// selfStats retrieves memory and CPU metrics for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
