// almue core - shutter and lighting control for a Raspberry Pi
//
// This is the main entry point of the almue home automation backend.
// It drives GPIO relays for shutters and lightings, counts anemometer
// pulses and exposes every device over MQTT:
//   - Commands arrive on per-device topics and are dispatched to devices
//   - Status and configuration are published as retained messages
//   - Daily open/close and on/off timers run from a cron table
//
// Start with -outputtest to run the relay wiring test instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/almue/almue-core/internal/api"
	"github.com/almue/almue-core/internal/audit"
	"github.com/almue/almue-core/internal/configsync"
	"github.com/almue/almue-core/internal/controller"
	"github.com/almue/almue-core/internal/device"
	"github.com/almue/almue-core/internal/gateway"
	"github.com/almue/almue-core/internal/gpio"
	"github.com/almue/almue-core/internal/infrastructure/config"
	"github.com/almue/almue-core/internal/infrastructure/database"
	"github.com/almue/almue-core/internal/infrastructure/influxdb"
	"github.com/almue/almue-core/internal/infrastructure/logging"
	"github.com/almue/almue-core/internal/infrastructure/mqtt"
	"github.com/almue/almue-core/internal/outputtest"
	"github.com/almue/almue-core/internal/protocol"
	"github.com/almue/almue-core/internal/scheduler"
	"github.com/almue/almue-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "ALMUE_CONFIG"

	shutdownTimeout      = 10 * time.Second
	historyPruneInterval = 24 * time.Hour
)

func main() {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	outputTest := flags.Bool("outputtest", false, "cycle every configured relay output and exit")
	flags.Parse(os.Args[1:]) //nolint:errcheck // ExitOnError

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if *outputTest {
		err = runOutputTest(ctx)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting almue core",
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
	defer log.Close() //nolint:errcheck // best effort on exit
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolving site timezone: %w", err)
	}

	// Database
	db, err := database.Open(database.ConfigFrom(cfg.Database))
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	auditRepo := audit.NewSQLiteRepository(db.DB)
	historyRepo := device.NewSQLiteStateHistoryRepository(db.DB)

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
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

	// GPIO
	conn, hardwareOK, err := openGPIO(cfg.Hardware, log.Component("gpio"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("error closing GPIO connection", "error", closeErr)
		}
	}()

	// Devices
	set, err := config.LoadDeviceSet(cfg.Devices.File)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	syncer := configsync.New(cfg.Devices.File, set)
	syncer.SetLogger(log.Component("configsync"))
	syncer.SetStateRecorder(historyRepo)
	if influxClient != nil {
		syncer.SetStatusWriter(influxClient)
	}

	opts := device.Options{
		Logger:   log.Component("device"),
		OnChange: syncer.HandleChange,
	}
	if influxClient != nil {
		opts.OnPulse = func(d device.Device, count, threshold int) {
			influxClient.WriteWindPulse(d.ID(), count, threshold)
		}
	}

	buildSet := set
	if !hardwareOK {
		buildSet = &config.DeviceSet{}
	}
	registry, err := device.BuildRegistry(buildSet, conn, opts)
	if err != nil {
		return fmt.Errorf("building devices: %w", err)
	}
	defer func() {
		log.Info("releasing device pins")
		if releaseErr := registry.ReleaseAll(); releaseErr != nil {
			log.Error("error releasing device pins", "error", releaseErr)
		}
	}()
	log.Info("devices initialised", "devices", registry.Count())

	// Scheduler and controller
	var ctrl *controller.Controller
	sched := scheduler.New(jobRunnerFunc(func(ctx context.Context, d device.Device, action device.Action) error {
		return ctrl.RunJob(ctx, d, action)
	}), scheduler.Config{Location: loc})
	sched.SetLogger(log.Component("scheduler"))

	ctrl = controller.New(registry, sched)
	ctrl.SetLogger(log.Component("controller"))
	ctrl.SetAuditRecorder(auditRepo)
	if startErr := ctrl.Start(); startErr != nil {
		log.Warn("some device timers could not be scheduled", "error", startErr)
	}

	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("stopping scheduler")
		if stopErr := sched.Stop(stopCtx); stopErr != nil {
			log.Error("error stopping scheduler", "error", stopErr)
		}
	}()
	log.Info("scheduler started", "jobs", sched.JobCount(), "timezone", loc.String())

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.Options{
		StatusTopic: protocol.CoreStatusTopic,
		Logger:      log.Component("mqtt"),
	})
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
		"client_id", mqttClient.ClientID(),
	)

	gw := gateway.New(mqttClient, ctrl, syncer)
	gw.SetLogger(log.Component("gateway"))
	syncer.AddListener(gw)
	if startErr := gw.Start(ctx, registry.All()); startErr != nil {
		return fmt.Errorf("starting MQTT gateway: %w", startErr)
	}
	defer gw.Stop()

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected, republishing device state")
		gw.Republish(registry.All())
	})

	// API (optional)
	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{
			"database": db,
			"mqtt":     mqttClient,
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}
		hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
		syncer.AddListener(hub)

		srv, srvErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Site:       cfg.Site,
			Logger:     log.Component("api"),
			Registry:   registry,
			Dispatcher: ctrl,
			History:    historyRepo,
			Audit:      auditRepo,
			Checks:     checks,
			Broker:     mqttClient,
			Jobs:       sched,
			Hub:        hub,
			Version:    version,
		})
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	syncer.RecordStartup(ctx, registry.All())

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if days := cfg.Database.HistoryRetentionDays; days > 0 {
		go pruneHistory(ctx, historyRepo, time.Duration(days)*24*time.Hour, historyPruneInterval, log)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// runOutputTest cycles every configured relay output once and returns.
func runOutputTest(ctx context.Context) error {
	log := logging.Default()

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // best effort on exit

	set, err := config.LoadDeviceSet(cfg.Devices.File)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	pins := outputtest.PinsFromConfig(set)
	if len(pins) == 0 {
		log.Warn("no relay outputs configured, nothing to test")
		return nil
	}

	hw := cfg.Hardware
	hw.Required = true
	conn, _, err := openGPIO(hw, log)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck // pins are detached by the runner

	runner := outputtest.New(conn, pins)
	runner.SetLogger(log.Component("outputtest"))

	log.Info("output test starting", "pins", len(pins))
	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("output test interrupted")
			return nil
		}
		return fmt.Errorf("output test: %w", err)
	}
	log.Info("output test complete")
	return nil
}

// openGPIO selects the driver and opens the connection. The returned flag
// reports whether the hardware is usable; a failure is only returned when
// hw.Required is set.
func openGPIO(hw config.HardwareConfig, log *logging.Logger) (*gpio.Connection, bool, error) {
	var driver gpio.Driver
	switch hw.Driver {
	case config.HardwareDriverMemory:
		driver = gpio.NewMemoryDriver()
	default:
		driver = gpio.PeriphDriver{}
	}

	conn := gpio.NewConnection(driver)
	conn.SetLogger(log)
	if err := conn.Open(); err != nil {
		if hw.Required {
			return nil, false, fmt.Errorf("opening GPIO (%s): %w", hw.Driver, err)
		}
		log.Error("GPIO unavailable, continuing without devices", "driver", hw.Driver, "error", err)
		return conn, false, nil
	}
	log.Info("GPIO opened", "driver", hw.Driver)
	return conn, true, nil
}

// historyPruner is the part of the state history repository pruneHistory uses.
type historyPruner interface {
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// pruneHistory deletes history rows older than retention once at start and
// then every interval until ctx is done.
func pruneHistory(ctx context.Context, repo historyPruner, retention, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		deleted, err := repo.PruneHistory(ctx, time.Now().Add(-retention))
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("pruning state history failed", "error", err)
		case deleted > 0:
			log.Info("state history pruned", "deleted", deleted)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// jobRunnerFunc adapts a function to scheduler.JobRunner.
type jobRunnerFunc func(ctx context.Context, d device.Device, action device.Action) error

func (f jobRunnerFunc) RunJob(ctx context.Context, d device.Device, action device.Action) error {
	return f(ctx, d, action)
}

// getConfigPath returns the configuration file path.
// Checks ALMUE_CONFIG environment variable first, then uses default.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
