package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-velux/internal/api"
	"github.com/nerrad567/gray-logic-velux/internal/audit"
	"github.com/nerrad567/gray-logic-velux/internal/bridges/velux"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-velux/migrations"
)

// newRunCommand creates the run command.
func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the binding service",
		Long: `Start the binding service and block until SIGINT or SIGTERM.

SIGHUP re-reads the configuration file and applies its velux.settings to
the running binding.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), rootOpts.ConfigPath)
		},
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to config.yaml
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting velux binding",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	if !cfg.Velux.Enabled {
		log.Info("velux binding disabled, nothing to do")
		return nil
	}

	// Open database
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to MQTT broker
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
	mqttClient.SetLogger(log)
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

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	registry, err := buildRegistry(ctx, cfg.Velux, db, log)
	if err != nil {
		return err
	}

	// Bridge handler: forwards requests to the gateway adapter.
	handler, err := velux.NewMQTTHandler(velux.MQTTHandlerOptions{
		Client: mqttClient,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge handler: %w", err)
	}
	if err := handler.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge handler: %w", err)
	}
	defer func() {
		log.Info("stopping bridge handler")
		handler.Stop()
	}()

	var (
		recorder velux.StateRecorder
		metrics  velux.Metrics
	)
	if influxClient != nil {
		recorder = influxClient
		metrics = velux.NewInfluxMetrics(influxClient)
	}

	publisher, err := velux.NewMQTTPublisher(mqttClient, recorder)
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}

	binding, err := velux.NewBinding(velux.Options{
		Registry:  registry,
		Handler:   handler,
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating binding: %w", err)
	}

	// Startup configuration. An invalid value is logged; the binding keeps
	// the values applied before it.
	if err := binding.Apply(ctx, cfg.Velux.Settings); err != nil {
		log.Warn("startup configuration incomplete", "error", err)
	}

	if err := binding.Start(ctx); err != nil {
		return fmt.Errorf("starting binding: %w", err)
	}
	defer func() {
		log.Info("stopping binding")
		binding.Stop()
	}()

	listener, err := velux.NewListener(mqttClient, binding, log)
	if err != nil {
		return fmt.Errorf("creating listener: %w", err)
	}
	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}
	defer listener.Stop()

	health := velux.NewHealthReporter(velux.HealthReporterConfig{
		Version:   version,
		Publisher: mqttClient,
		Binding:   binding,
		Handler:   handler,
	})
	health.SetLogger(log)
	if err := health.PublishStarting(); err != nil {
		log.Warn("publishing starting status failed", "error", err)
	}
	health.Start(ctx)
	defer health.Stop()

	// HTTP API (optional)
	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:   cfg.API,
			Security: cfg.Security,
			Logger:   log,
			Binding:  binding,
			Handler:  handler,
			MQTT:     mqttClient,
			DB:       db.DB,
			Audit:    audit.NewSQLiteRepository(db.DB),
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	go reloadOnHangup(ctx, configPath, binding, log)

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, health reporter, listener,
	// binding, handler, InfluxDB, MQTT, database.
	log.Info("velux binding stopped")
	return nil
}

// openDatabase opens the SQLite database and applies migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.Source()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// buildRegistry registers the items file providers followed by the
// database provider.
func buildRegistry(ctx context.Context, cfg config.VeluxConfig, db *database.DB, log *logging.Logger) (*velux.Registry, error) {
	registry := velux.NewRegistry()

	items, err := velux.LoadItemsFile(cfg.ItemsFile)
	switch {
	case err == nil:
		providers, buildErr := items.BuildProviders()
		if buildErr != nil {
			return nil, fmt.Errorf("loading items file %s: %w", cfg.ItemsFile, buildErr)
		}
		for _, p := range providers {
			registry.Add(p)
		}
		log.Info("items file loaded", "path", cfg.ItemsFile, "items", len(items.Items))
	case errors.Is(err, os.ErrNotExist):
		log.Warn("items file not found", "path", cfg.ItemsFile)
	default:
		return nil, fmt.Errorf("loading items file: %w", err)
	}

	sqlProvider := velux.NewSQLiteProvider(db.DB, velux.DefaultSQLiteProvider, log)
	if err := sqlProvider.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading stored items: %w", err)
	}
	registry.Add(sqlProvider)

	log.Info("item registry ready",
		"providers", len(registry.Providers()),
		"items", registry.ItemCount(),
	)
	return registry, nil
}

// reloadOnHangup re-reads the configuration on SIGHUP and applies the
// velux settings.
func reloadOnHangup(ctx context.Context, configPath string, binding *velux.Binding, log *logging.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			reloadSettings(ctx, configPath, binding, log)
		}
	}
}

// reloadSettings applies the velux settings from configPath. Errors are
// logged; the running configuration stays in place for keys not applied.
func reloadSettings(ctx context.Context, configPath string, binding *velux.Binding, log *logging.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("reloading config failed", "path", configPath, "error", err)
		return
	}
	if err := binding.Apply(ctx, cfg.Velux.Settings); err != nil {
		log.Warn("reloaded configuration incomplete", "error", err)
		return
	}
	log.Info("configuration reloaded", "path", configPath)
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
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
