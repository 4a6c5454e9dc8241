// Package daemon wires the channels described by a config.Config into
// running Stages, serves an HTTP health endpoint, and ticks each
// channel's render pass on its own timer.
//
// Grounded on References/orion-prototipe/internal/core's Orion
// orchestrator and health.go: a struct holding the started timestamp and
// per-channel state behind an RWMutex, a HealthCheck snapshot, and
// liveness/readiness HTTP handlers over the same endpoint set.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/e7canasta/stagecast/internal/config"
	"github.com/e7canasta/stagecast/internal/frame"
	"github.com/e7canasta/stagecast/internal/monitor"
	"github.com/e7canasta/stagecast/internal/stage"
)

// Channel pairs a running Stage with the video format it ticks at.
type Channel struct {
	Stage  *stage.Stage
	Format frame.VideoFormat

	mu           sync.RWMutex
	lastTickAt   time.Time
	lastDuration time.Duration
	tickErrors   uint64
}

// Daemon owns every configured channel and the shared monitor sink they
// publish through.
type Daemon struct {
	cfg      *config.Config
	mon      *monitor.MQTTSink
	channels map[int]*Channel

	started time.Time
	mu      sync.RWMutex
	running bool

	stopTicking context.CancelFunc
	wg          sync.WaitGroup
}

// New constructs a Daemon from cfg. It does not start ticking or connect
// to MQTT; call Run for that.
func New(cfg *config.Config) (*Daemon, error) {
	var sink *monitor.MQTTSink
	if cfg.MQTT.Broker != "" {
		sink = monitor.NewMQTTSink(monitor.MQTTConfig{
			Broker:    cfg.MQTT.Broker,
			ClientID:  cfg.InstanceID,
			TopicRoot: cfg.MQTT.TopicRoot,
			QoS:       cfg.MQTT.QoS,
		})
	}

	d := &Daemon{
		cfg:      cfg,
		mon:      sink,
		channels: make(map[int]*Channel, len(cfg.Channels)),
	}

	var monSink monitor.Sink = monitor.NopSink{}
	if sink != nil {
		monSink = monitor.NewMultiSink(sink, monitor.NewLoggingSink(nil))
	}

	for _, ch := range cfg.Channels {
		format := frame.VideoFormat{Width: ch.Width, Height: ch.Height, FrameRate: ch.FrameRate}
		d.channels[ch.Index] = &Channel{
			Stage:  stage.New(ch.Index, monSink),
			Format: format,
		}
	}

	return d, nil
}

// ShutdownTimeout returns the configured graceful shutdown budget,
// defaulting to 5 seconds.
func (d *Daemon) ShutdownTimeout() time.Duration {
	if d.cfg.ShutdownTimeoutS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.cfg.ShutdownTimeoutS) * time.Second
}

// Channel returns the running channel at index, or nil if none was
// configured.
func (d *Daemon) Channel(index int) *Channel {
	return d.channels[index]
}

// Run connects the monitor sink (if configured) and ticks every
// channel's render pass at its configured frame rate until ctx is
// canceled.
func (d *Daemon) Run(ctx context.Context) error {
	if d.mon != nil {
		if err := d.mon.Connect(); err != nil {
			return fmt.Errorf("daemon: monitor connect failed: %w", err)
		}
	}

	tickCtx, cancel := context.WithCancel(ctx)
	d.stopTicking = cancel

	d.mu.Lock()
	d.started = time.Now()
	d.running = true
	d.mu.Unlock()

	for index, ch := range d.channels {
		d.wg.Add(1)
		go d.tickLoop(tickCtx, index, ch)
	}

	<-ctx.Done()
	return nil
}

func (d *Daemon) tickLoop(ctx context.Context, index int, ch *Channel) {
	defer d.wg.Done()

	period := ch.Format.Period()
	if period <= 0 {
		period = 20 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			_, err := ch.Stage.Render(ch.Format)
			elapsed := time.Since(start)

			ch.mu.Lock()
			ch.lastTickAt = start
			ch.lastDuration = elapsed
			if err != nil {
				ch.tickErrors++
			}
			ch.mu.Unlock()

			if err != nil {
				slog.Error("channel render failed", "channel", index, "error", err)
			}
		}
	}
}

// Shutdown stops every channel's tick loop and disconnects the monitor
// sink, waiting up to ctx's deadline for in-flight ticks to finish.
func (d *Daemon) Shutdown(ctx context.Context) error {
	if d.stopTicking != nil {
		d.stopTicking()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("daemon: shutdown timed out waiting for tick loops")
	}

	for _, ch := range d.channels {
		ch.Stage.Executor().Shutdown()
	}
	if d.mon != nil {
		d.mon.Disconnect()
	}

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

// ChannelHealth is one channel's health snapshot.
type ChannelHealth struct {
	Index          int       `json:"index"`
	LastTickAt     time.Time `json:"last_tick_at"`
	LastDurationMS float64   `json:"last_duration_ms"`
	TickErrors     uint64    `json:"tick_errors"`
}

// HealthStatus is the daemon-wide health snapshot served over HTTP.
type HealthStatus struct {
	Status        string          `json:"status"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	MonitorUp     bool            `json:"monitor_connected"`
	Channels      []ChannelHealth `json:"channels"`
}

// HealthCheck returns the current health snapshot.
func (d *Daemon) HealthCheck() HealthStatus {
	d.mu.RLock()
	running := d.running
	started := d.started
	d.mu.RUnlock()

	status := HealthStatus{Status: "healthy"}
	if running {
		status.UptimeSeconds = int64(time.Since(started).Seconds())
	} else {
		status.Status = "unhealthy"
	}
	if d.mon != nil {
		status.MonitorUp = d.mon.Stats().Connected
	}

	for index, ch := range d.channels {
		ch.mu.RLock()
		status.Channels = append(status.Channels, ChannelHealth{
			Index:          index,
			LastTickAt:     ch.lastTickAt,
			LastDurationMS: float64(ch.lastDuration) / float64(time.Millisecond),
			TickErrors:     ch.tickErrors,
		})
		ch.mu.RUnlock()
	}

	if running && d.mon != nil && !status.MonitorUp {
		status.Status = "degraded"
	}
	return status
}

// LivenessHandler answers /health: 200 if the process can execute this
// handler at all.
func (d *Daemon) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"status": "alive"})
}

// ReadinessHandler answers /readiness with the full health snapshot.
func (d *Daemon) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	health := d.HealthCheck()
	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(health)
}

// StartHealthServer starts the HTTP health endpoint on port in a
// background goroutine; it does not block.
func (d *Daemon) StartHealthServer(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", d.LivenessHandler)
	mux.HandleFunc("/readiness", d.ReadinessHandler)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting health check server", "port", port, "endpoints", []string{"/health", "/readiness"})

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health check server failed", "error", err)
		}
	}()

	return nil
}
