package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-backend/contract"
	"chat-backend/observability"
)

// StateSource exposes the store counters the reporter samples.
type StateSource interface {
	ChatCount() int
	MessageCount() int
}

// TelemetryReporter periodically logs one health line mixing process
// stats (CPU, RSS, goroutines) with domain counters (chats, messages,
// live rooms). It is the headless flavor of the inspect page.
type TelemetryReporter struct {
	log      *slog.Logger
	interval time.Duration
	state    StateSource
	registry contract.IRegistry
	metrics  *observability.Metrics
}

func NewTelemetryReporter(
	log *slog.Logger,
	interval time.Duration,
	state StateSource,
	registry contract.IRegistry,
	metrics *observability.Metrics,
) *TelemetryReporter {
	return &TelemetryReporter{
		log:      log,
		interval: interval,
		state:    state,
		registry: registry,
		metrics:  metrics,
	}
}

// Run emits one telemetry line per interval until the context ends.
func (w *TelemetryReporter) Run(ctx context.Context) error {
	w.log.Info("Starting telemetry reporter", "interval", w.interval)
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
			rss, cpu, status, err := processStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			w.log.Info("Telemetry",
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"goroutines", runtime.NumGoroutine(),
				"chats", w.state.ChatCount(),
				"messages", w.state.MessageCount(),
				"live_rooms", w.registry.Rooms(),
				"counters", w.metrics.Snapshot(),
			)
		}
	}
}

// processStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func processStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
