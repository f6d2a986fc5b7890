// Gray Logic Zigbee - coprocessor management gateway
//
// This is the main entry point for the Zigbee gateway. It owns the serial
// link to a Z-Stack coprocessor and exposes its management operations
// (association table, NV items, channel changes, restarts) over MQTT and
// HTTP.
//
// Usage:
//
//	graylogic-zigbee                 run the gateway
//	graylogic-zigbee token [flags]   mint an API access token
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/api"
	"github.com/nerrad567/gray-logic-zigbee/internal/archive"
	"github.com/nerrad567/gray-logic-zigbee/internal/audit"
	"github.com/nerrad567/gray-logic-zigbee/internal/bridges/zigbee"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
	"github.com/nerrad567/gray-logic-zigbee/internal/znp"
	"github.com/nerrad567/gray-logic-zigbee/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const (
	healthInterval    = 30 * time.Second
	auditQueueSize    = 256
	startupProbeLimit = 5 * time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the gateway together and blocks until ctx is cancelled or the
// radio link drops. Returning an error lets main handle exit codes
// consistently.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear start-up sequence
	log := logging.Default()
	log.Info("starting Gray Logic Zigbee",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing useful to do at exit
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database: audit trail and device archive.
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Radio link.
	radioLog := log.With("component", "znp")
	conn, err := znp.Open(ctx, znp.Config{
		Port:           cfg.Radio.Port,
		BaudRate:       cfg.Radio.BaudRate,
		RequestTimeout: cfg.Radio.GetRequestTimeout(),
		SkipBootloader: cfg.Radio.SkipBootloader,
	}, radioLog)
	if err != nil {
		return fmt.Errorf("opening radio: %w", err)
	}
	defer func() {
		log.Info("closing radio link")
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("error closing radio link", "error", closeErr)
		}
	}()

	radio := znp.NewRadio(conn, znp.RadioConfig{
		NIBID:            uint16(cfg.Radio.NIB.ID),            //nolint:gosec // validated to 1..0xffff
		UpdateIDOffset:   uint8(cfg.Radio.NIB.UpdateIDOffset), //nolint:gosec // validated to 0..255
		BroadcastTimeout: cfg.Radio.GetBroadcastTimeout(),
		ResetType:        uint8(cfg.Radio.ResetType), //nolint:gosec // validated to 0 or 1
	}, radioLog)
	defer radio.Close()

	firmware := probeRadio(ctx, radio, log)
	log.Info("radio link open", "port", cfg.Radio.Port, "firmware", firmware)

	// Observers.
	archiveRepo := archive.NewSQLiteRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	auditRecorder := audit.NewRecorder(auditRepo, log.With("component", "audit"), auditQueueSize)
	defer auditRecorder.Close()

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	opts := []mgmt.Option{
		mgmt.WithLogger(log.With("component", "mgmt")),
		mgmt.WithArchive(archive.NewRecorder(archiveRepo)),
		mgmt.WithObserver(auditRecorder),
		mgmt.WithObserver(hub),
	}

	influxClient, err := connectInflux(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		opts = append(opts, mgmt.WithObserver(influxClient))
	}

	// The MQTT bridge needs the service and the service needs its
	// observers up front, so events reach the bridge through a closure.
	var bridge *zigbee.Bridge
	opts = append(opts, mgmt.WithObserver(mgmt.ObserverFunc(func(ctx context.Context, ev mgmt.Event) {
		if bridge != nil {
			bridge.Notify(ctx, ev)
		}
	})))
	service := mgmt.NewService(radio, radio, opts...)

	// MQTT transport.
	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	health := zigbee.NewHealthReporter(zigbee.HealthReporterConfig{
		BridgeID:  mqtt.Protocol,
		Version:   version,
		Interval:  healthInterval,
		Publisher: mqttClient,
		Probe:     radio,
		Port:      cfg.Radio.Port,
	}, log)
	health.SetFirmware(firmware)

	bridge, err = zigbee.NewBridge(zigbee.Options{
		BridgeID:   mqtt.Protocol,
		MQTT:       mqttClient,
		Dispatcher: service,
		Health:     health,
		Logger:     log.With("component", "bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating MQTT bridge: %w", err)
	}
	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting MQTT bridge: %w", startErr)
	}
	defer bridge.Stop()

	// HTTP API.
	checks := map[string]api.HealthCheckFunc{
		"database": db.HealthCheck,
		"mqtt":     mqttClient.HealthCheck,
		"radio":    radio.Ping,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient.HealthCheck
	}
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Service:  service,
		Audit:    auditRepo,
		Archive:  archiveRepo,
		Hub:      hub,
		Checks:   checks,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	if cfg.Security.JWT.Secret == "" {
		log.Warn("API authentication disabled: security.jwt.secret is empty")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case <-conn.Done():
		return errors.New("radio link closed unexpectedly")
	}

	log.Info("Gray Logic Zigbee stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// versionReader is the part of the radio probed at start-up.
type versionReader interface {
	Version(ctx context.Context) (znp.Version, error)
}

// probeRadio reads the firmware version. A silent radio is logged rather
// than fatal; the health topic reports it as degraded until it answers.
func probeRadio(ctx context.Context, r versionReader, log *logging.Logger) string {
	pctx, cancel := context.WithTimeout(ctx, startupProbeLimit)
	defer cancel()

	v, err := r.Version(pctx)
	if err != nil {
		log.Warn("radio did not answer version request", "error", err)
		return ""
	}
	return v.String()
}

// connectInflux returns nil when InfluxDB is disabled.
func connectInflux(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// connectMQTT connects with a retained offline status as the last will.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	lwt, err := json.Marshal(zigbee.NewLWTMessage(mqtt.Protocol))
	if err != nil {
		return nil, fmt.Errorf("marshal LWT: %w", err)
	}

	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{
		Topic:    mqtt.Topics{}.Health(),
		Payload:  lwt,
		QoS:      1,
		Retained: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}

	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}
