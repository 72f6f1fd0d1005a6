// VRxLink - wireless OSD receiver control for race timing
//
// VRxLink drives a fleet of ClearView 2.0 video receivers over MQTT:
// it discovers receivers as they join the broker, keeps them tuned to
// their seat's frequency, and pushes race progress to each pilot's OSD.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raceband/vrxlink/internal/infrastructure/config"
	"github.com/raceband/vrxlink/internal/infrastructure/database"
	"github.com/raceband/vrxlink/internal/infrastructure/influxdb"
	"github.com/raceband/vrxlink/internal/infrastructure/logging"
	"github.com/raceband/vrxlink/internal/infrastructure/mqtt"
	"github.com/raceband/vrxlink/internal/journal"
	"github.com/raceband/vrxlink/internal/vrx/controller"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting VRxLink",
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

	// Receiver-control settings fall back rather than fail; surface what
	// was replaced.
	for _, warning := range cfg.Warnings() {
		log.Warn(warning)
	}

	if !cfg.VRx.Enabled {
		log.Info("receiver control disabled in config, exiting")
		return nil
	}

	// The receiver broker may differ from the default MQTT host.
	if cfg.VRx.Host != "" {
		cfg.MQTT.Broker.Host = cfg.VRx.Host
	}

	// Device event journal (optional).
	var journalRepo journal.Repository
	if cfg.Database.Enabled {
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

		journalRepo, err = journal.NewSQLiteRepository(db.DB)
		if err != nil {
			return fmt.Errorf("initialising journal: %w", err)
		}
		log.Info("device journal enabled", "path", cfg.Database.Path)
	} else {
		log.Info("device journal disabled")
	}

	// Receiver telemetry (optional).
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("telemetry enabled", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("telemetry disabled")
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	ctrl, err := controller.New(controller.Params{
		Config:    cfg.VRx,
		QoS:       byte(cfg.MQTT.QoS),
		ClientID:  cfg.MQTT.Broker.ClientID,
		Client:    mqttClient,
		Logger:    log,
		Journal:   journalRepo,
		Telemetry: influxClient,
	})
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("starting controller: %w", err)
	}
	log.Info("VRxLink running")

	<-ctx.Done()
	log.Info("shutdown signal received")

	if err := ctrl.Shutdown(); err != nil {
		log.Warn("receiver shutdown sequence incomplete", "error", err)
	}

	return nil
}

// getConfigPath returns the config file path from args or the default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if env := os.Getenv("VRXLINK_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}
