package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures an MQTTSink's connection to a broker.
type MQTTConfig struct {
	Broker    string
	ClientID  string
	TopicRoot string
	QoS       byte
}

// MQTTSink publishes monitor events to an MQTT broker, one topic per
// event path rooted under cfg.TopicRoot (e.g. "stagecast/channel-1" +
// "/layer/0/event/play" -> "stagecast/channel-1/layer/0/event/play").
//
// Grounded directly on References/orion-prototipe/internal/emitter's
// MQTTEmitter: same auto-reconnect client options, same connect/lost
// handlers flipping a connected flag under a mutex, same
// WaitTimeout-then-Error publish pattern. Re-themed from publishing a
// single inference topic per instance to publishing one topic per stage
// event path.
type MQTTSink struct {
	cfg    MQTTConfig
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTTSink constructs an MQTTSink. Connect must be called before
// Publish will succeed.
func NewMQTTSink(cfg MQTTConfig) *MQTTSink {
	return &MQTTSink{cfg: cfg}
}

// Connect dials the configured broker with auto-reconnect enabled.
func (s *MQTTSink) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", s.cfg.Broker))
	opts.SetClientID(s.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		slog.Info("monitor mqtt connection established", "broker", s.cfg.Broker, "client_id", s.cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		slog.Warn("monitor mqtt connection lost, will auto-reconnect", "error", err, "broker", s.cfg.Broker)
	}

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("monitor mqtt: connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("monitor mqtt: connect failed: %w", err)
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Publish implements Sink. Delivery is best-effort: a disconnected broker
// increments the error counter and returns at once; otherwise the message
// is handed to the client and a separate goroutine waits up to two
// seconds for it to complete, counting a timeout or failure as an error.
// The caller never waits for the broker, matching the "telemetry never
// stalls the render pass" contract monitor.Sink promises.
func (s *MQTTSink) Publish(e Event) {
	if !s.isConnected() {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		return
	}

	topic := s.cfg.TopicRoot + e.Path
	payload, err := json.Marshal(struct {
		Values    []any     `json:"values"`
		Timestamp time.Time `json:"timestamp"`
	}{e.Values, e.Timestamp})
	if err != nil {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		slog.Warn("monitor mqtt: marshal failed", "path", e.Path, "error", err)
		return
	}

	token := s.client.Publish(topic, s.cfg.QoS, false, payload)
	go s.settle(token, topic)
}

// settle waits for a published message to complete and updates the
// delivery counters.
func (s *MQTTSink) settle(token mqtt.Token, topic string) {
	if !token.WaitTimeout(2 * time.Second) {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		slog.Warn("monitor mqtt: publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		slog.Warn("monitor mqtt: publish failed", "topic", topic, "error", err)
		return
	}

	s.mu.Lock()
	s.published++
	s.mu.Unlock()
}

// Disconnect closes the MQTT connection with a short grace period.
func (s *MQTTSink) Disconnect() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

// Stats reports publish/error counters for diagnostics.
type Stats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Stats returns a snapshot of the sink's connection and delivery state.
func (s *MQTTSink) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Connected: s.connected, Published: s.published, Errors: s.errors}
}

func (s *MQTTSink) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
