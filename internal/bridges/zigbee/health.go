package zigbee

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/mqtt"
)

const (
	defaultHealthInterval = 30 * time.Second
	probeTimeout          = 3 * time.Second
)

// Publisher is the publishing half of the MQTT client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// RadioProbe checks that the coprocessor answers.
type RadioProbe interface {
	Ping(ctx context.Context) error
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	BridgeID string
	Version  string

	// Interval is how often to publish. Default: 30 seconds.
	Interval time.Duration

	Publisher Publisher
	Probe     RadioProbe

	// Port is reported as-is in the radio section.
	Port string
}

// HealthReporter publishes the retained health message periodically.
type HealthReporter struct {
	cfg       HealthReporterConfig
	startTime time.Time

	firmware   string
	firmwareMu sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig, logger Logger) *HealthReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultHealthInterval
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &HealthReporter{
		cfg:       cfg,
		startTime: time.Now(),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// SetFirmware records the coprocessor firmware description.
func (h *HealthReporter) SetFirmware(v string) {
	h.firmwareMu.Lock()
	h.firmware = v
	h.firmwareMu.Unlock()
}

// Start publishes immediately and then on every interval until Stop or
// ctx is cancelled.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.cfg.Interval)
		defer ticker.Stop()

		for {
			if err := h.PublishNow(ctx); err != nil {
				h.logger.Warn("failed to publish health", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends reporting and publishes a final stopping status. Safe to call
// more than once.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		//nolint:errcheck // Best-effort during shutdown
		h.publish(h.message(HealthStopping, "", nil))
	})
}

// PublishStarting publishes a starting status.
func (h *HealthReporter) PublishStarting() error {
	return h.publish(h.message(HealthStarting, "bridge starting", nil))
}

// PublishNow probes the radio and publishes the resulting status.
func (h *HealthReporter) PublishNow(ctx context.Context) error {
	status, reason, radio := h.Evaluate(ctx)
	return h.publish(h.message(status, reason, radio))
}

// Evaluate determines the current status. The bridge is degraded when
// either the broker or the radio is unreachable.
func (h *HealthReporter) Evaluate(ctx context.Context) (HealthStatus, string, *RadioHealth) {
	h.firmwareMu.RLock()
	radio := &RadioHealth{Port: h.cfg.Port, Firmware: h.firmware}
	h.firmwareMu.RUnlock()

	if h.cfg.Probe != nil {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := h.cfg.Probe.Ping(pctx)
		cancel()
		radio.Connected = err == nil
		if err != nil {
			radio.Error = err.Error()
		}
	}

	switch {
	case h.cfg.Publisher == nil || !h.cfg.Publisher.IsConnected():
		return HealthDegraded, "MQTT disconnected", radio
	case !radio.Connected:
		return HealthDegraded, "radio not responding", radio
	default:
		return HealthHealthy, "", radio
	}
}

func (h *HealthReporter) message(status HealthStatus, reason string, radio *RadioHealth) HealthMessage {
	return HealthMessage{
		Bridge:        h.cfg.BridgeID,
		Status:        status,
		Timestamp:     time.Now().UTC(),
		Version:       h.cfg.Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Reason:        reason,
		Radio:         radio,
	}
}

func (h *HealthReporter) publish(msg HealthMessage) error {
	if h.cfg.Publisher == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.cfg.Publisher.Publish(mqtt.Topics{}.Health(), payload, 1, true)
}
