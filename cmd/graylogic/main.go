// Gray Logic Devices - device model service
//
// This is the main entry point for the Gray Logic device service. It owns
// the device registry for a site:
//   - Devices, their abilities, settings and per-device parameters
//   - Locations and device-to-location links
//   - Pairing and heartbeat tracking over MQTT
//   - The REST/WebSocket API used by panels and the admin UI
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-devices/migrations"

	"github.com/nerrad567/gray-logic-devices/internal/api"
	"github.com/nerrad567/gray-logic-devices/internal/audit"
	"github.com/nerrad567/gray-logic-devices/internal/device"
	"github.com/nerrad567/gray-logic-devices/internal/devicetype"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-devices/internal/location"
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

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "token":
			err = runToken(os.Args[2:], os.Stdout)
		case "migrate":
			err = runMigrate(ctx, os.Args[2:], os.Stdout)
		default:
			err = fmt.Errorf("unknown command %q", os.Args[1])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,funlen // linear startup sequence
	log := logging.Default()
	log.Info("starting Gray Logic Devices",
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
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Device types are static for the life of the process.
	catalog, err := devicetype.Load(cfg.Devices.TypesFile)
	if err != nil {
		return fmt.Errorf("loading device types: %w", err)
	}
	log.Info("device types loaded", "path", cfg.Devices.TypesFile, "types", catalog.Len())

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	schemaVersion, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	log.Info("database migrations complete", "schema_version", schemaVersion)

	locations := location.NewRegistry(location.NewSQLiteRepository(db.DB))
	locations.SetLogger(log.Component("locations"))
	if refreshErr := locations.Refresh(ctx); refreshErr != nil {
		return fmt.Errorf("loading locations: %w", refreshErr)
	}
	log.Info("location registry initialised", "locations", len(locations.List()))

	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttLog := log.Component("mqtt")
	mqttClient.SetLogger(mqttLog)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		influxClient = nil
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	recorder := metrics.New()

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	deviceRepo := device.NewSQLiteRepository(db.DB)
	registry := device.NewRegistry(deviceRepo, deviceRepo, catalog)
	registry.SetLogger(log.Component("devices"))
	registry.SetNotifier(newFanoutNotifier(notifyFunc(mqttClient.Notify), hub))
	registry.SetLocations(locations)
	registry.SetMetrics(recorder)
	registry.SetIconRoot(cfg.Devices.IconRoot)
	registry.SetHeartbeatGrace(cfg.Devices.HeartbeatGrace)
	registry.SetPairingTimeout(cfg.GetPairingTimeout())
	if influxClient != nil {
		registry.SetContactRecorder(influxClient)
	}

	if loadErr := registry.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading device registry: %w", loadErr)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	subscriptions := deviceSubscriptions(registry)
	if subErr := subscribeDevices(mqttClient, subscriptions, byte(cfg.MQTT.QoS), mqttLog); subErr != nil {
		return subErr
	}
	defer unsubscribeDevices(mqttClient, subscriptions, mqttLog)

	go registry.RunHeartbeatMonitor(ctx, cfg.GetHeartbeatCheckInterval())

	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log.Component("api"),
		Registry:  registry,
		Locations: locations,
		Catalog:   catalog,
		Metrics:   recorder,
		Checks:    checks,
		Hub:       hub,
		Audit:     audit.NewSQLiteRepository(db.DB),
		Version:   version,
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

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred closes run in reverse: API, InfluxDB, MQTT, database.

	log.Info("Gray Logic Devices stopped")
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

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db, mqttClient api.HealthChecker, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
