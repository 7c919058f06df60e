package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightstate/internal/api"
	"github.com/dokzlo13/lightstate/internal/config"
	"github.com/dokzlo13/lightstate/internal/db"
	"github.com/dokzlo13/lightstate/internal/hue"
	"github.com/dokzlo13/lightstate/internal/ledger"
	"github.com/dokzlo13/lightstate/internal/light"
	"github.com/dokzlo13/lightstate/internal/metrics"
	"github.com/dokzlo13/lightstate/internal/mqtt"
	"github.com/dokzlo13/lightstate/internal/registry"
	"github.com/dokzlo13/lightstate/internal/storage"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB        *db.DB
	Ledger    *ledger.Ledger
	Snapshots *storage.Snapshots[light.Snapshot]

	// Lights and their observers
	Lights  *registry.Registry
	Metrics *metrics.Metrics

	// Outer surfaces, created by Start
	mqttClient *mqtt.Client
	wg         sync.WaitGroup
}

// NewServices opens the database and builds the light registry from the
// configuration, restoring persisted state.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Snapshots = storage.NewSnapshots[light.Snapshot](storage.NewStore(database.DB))

	s.Lights, err = registry.New(cfg.Lights, s.Snapshots, s.Ledger)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Metrics = metrics.New()
	s.Lights.AddObserver(s.Metrics)
	for _, id := range s.Lights.IDs() {
		if m, err := s.Lights.View(id); err == nil {
			s.Metrics.Observe(id, m)
		}
	}

	return s, nil
}

// Start connects the outer surfaces: the Hue pusher, the MQTT bridge and the
// HTTP server, each as enabled in the configuration.
// The onFatalError callback is called when a background service fails.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	if s.cfg.Hue.Enabled() {
		ids := hueIDs(s.cfg.Lights)
		pusher := hue.NewPusher(hue.NewBridge(s.cfg.Hue.Bridge, s.cfg.Hue.Token), ids, s.cfg.Hue.RateLimitRPS)
		s.Lights.AddObserver(pusher)
		s.goRun(ctx, "hue", pusher.Run, onFatalError)
	}

	if s.cfg.MQTT.Enabled {
		client := mqtt.NewClient(s.cfg.MQTT)
		if err := client.Connect(ctx); err != nil {
			return err
		}
		s.mqttClient = client

		bridge := mqtt.NewBridge(client, s.Lights, s.cfg.MQTT)
		if err := bridge.Subscribe(ctx, client); err != nil {
			return err
		}
		s.goRun(ctx, "mqtt", bridge.Run, onFatalError)
	}

	if s.cfg.Metrics.Enabled {
		server := api.NewServer(s.cfg.Metrics.Host, s.cfg.Metrics.Port, s.Lights, s.Ledger, s.Metrics.Gatherer())
		s.goRun(ctx, "http", func(ctx context.Context) error {
			return server.Run(ctx, s.cfg.ShutdownTimeout.Duration())
		}, onFatalError)
	}

	s.goRun(ctx, "ledger-cleanup", s.cleanupLoop, onFatalError)
	return nil
}

func (s *Services) goRun(ctx context.Context, name string, run func(context.Context) error, onFatalError func(error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := run(ctx); err != nil {
			log.Error().Err(err).Str("service", name).Msg("Service failed")
			onFatalError(err)
		}
	}()
}

// CleanupLedger deletes ledger entries older than the retention period.
func (s *Services) CleanupLedger() {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		return
	}
	deleted, err := s.Ledger.DeleteOlderThan(retention)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to clean up ledger")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Int("retention_days", s.cfg.Ledger.RetentionDays).Msg("Cleaned up ledger")
	}
}

func (s *Services) cleanupLoop(ctx context.Context) error {
	s.CleanupLedger()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.CleanupLedger()
		}
	}
}

// WriteMetrics dumps metrics to the configured textfile, if any.
func (s *Services) WriteMetrics() {
	if s.cfg.Metrics.Textfile == "" {
		return
	}
	if err := s.Metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		log.Warn().Err(err).Str("path", s.cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
	}
}

// Stop waits for background services, then persists every light and closes
// all resources. The context passed to Start must be cancelled first.
func (s *Services) Stop() error {
	s.wg.Wait()
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	err := s.Lights.SaveAll()
	s.Close()
	return err
}

// Close releases all resources.
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

// hueIDs maps light ids to Hue bridge light ids for mirrored lights.
func hueIDs(lights []config.LightConfig) map[string]int {
	ids := make(map[string]int)
	for _, l := range lights {
		if l.HueID > 0 {
			ids[l.ID] = l.HueID
		}
	}
	if len(ids) > 0 {
		mirrored := make([]string, 0, len(ids))
		for id := range ids {
			mirrored = append(mirrored, id)
		}
		sort.Strings(mirrored)
		log.Info().Strs("lights", mirrored).Msg("Mirroring lights to Hue bridge")
	}
	return ids
}
