package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/ferry/internal/api"
	"github.com/ShayCichocki/ferry/internal/config"
	"github.com/ShayCichocki/ferry/internal/engine"
	"github.com/ShayCichocki/ferry/internal/logging"
	"github.com/ShayCichocki/ferry/internal/manager"
	"github.com/ShayCichocki/ferry/internal/session"
	"github.com/ShayCichocki/ferry/internal/store"
	"github.com/ShayCichocki/ferry/internal/syncer"
	"github.com/ShayCichocki/ferry/internal/todogen"
	"github.com/ShayCichocki/ferry/pkg/models"
)

// app bundles the wired components every subcommand needs. Build one
// with newApp and close it when the command finishes.
type app struct {
	cfg     *config.Config
	store   store.Store
	mgr     *manager.Manager
	eng     *engine.Engine
	tracker *session.Tracker
	sync    *syncer.Syncer
	logger  *logging.DebugLogger

	watchDir string
}

// newApp loads configuration and wires the store, generator, manager,
// and engine together.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewDebugLogger(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	switch cfg.Storage.Backend {
	case "", "files":
		fs, err := store.NewFileStore(cfg.Storage.Dir, cfg.RetentionDays)
		if err != nil {
			logger.Close()
			return nil, err
		}
		a.store = fs
		a.watchDir = fs.Dir()
	case "sqlite":
		db, err := store.OpenSQLite(filepath.Join(cfg.Storage.Dir, "state.db"), cfg.RetentionDays)
		if err != nil {
			logger.Close()
			return nil, err
		}
		a.store = db
	default:
		logger.Close()
		return nil, fmt.Errorf("unknown storage backend %q (want files or sqlite)", cfg.Storage.Backend)
	}

	a.tracker = session.NewTracker(cfg.Storage.Dir)

	gen := todogen.New(smartGenerator(cfg, logger))
	a.sync = syncer.New(a.store, cfg.Storage.Dir)
	a.mgr = manager.New(a.store, gen,
		manager.WithPropagator(a.sync),
		manager.WithLogger(logger),
	)

	a.eng = engine.New(a.mgr, a.store, a.tracker, engine.Config{
		ActiveCapacity: cfg.ActiveCapacity,
		WatchInterval:  cfg.WatchInterval,
		PromotionOrder: cfg.PromotionOrder,
	}, engine.WithWatchDir(a.watchDir), engine.WithLogger(logger))

	return a, nil
}

// close releases the store and log file.
func (a *app) close() {
	a.store.Close()
	a.logger.Close()
}

// smartGenerator builds the Claude-backed step generator, or nil when
// it is disabled or no credentials are available. Task creation always
// works without it; complex tasks just get template steps.
func smartGenerator(cfg *config.Config, logger *logging.DebugLogger) todogen.SmartGenerator {
	if !cfg.Smart.Enabled {
		return nil
	}

	apiKey, err := config.GetAPIKey(cfg)
	if err != nil && !cfg.AWS.Bedrock {
		return nil
	}

	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Smart.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.AWS.Bedrock,
		AWSRegion:     cfg.AWS.Region,
		AWSProfile:    cfg.AWS.Profile,
	})
	if err != nil {
		logger.Log("smart generator unavailable: %v", err)
		return nil
	}
	return api.NewStepGenerator(client)
}

// resolveTask expands a task ID prefix to the full ID, searching every
// collection. Errors when the prefix matches nothing or is ambiguous.
func (a *app) resolveTask(prefix string) (models.Task, models.Collection, error) {
	var (
		found      []models.Task
		collection models.Collection
	)
	for _, c := range models.Collections {
		tasks, err := a.store.Load(c)
		if err != nil {
			return models.Task{}, "", err
		}
		for _, t := range tasks {
			if strings.HasPrefix(t.ID, prefix) {
				found = append(found, t)
				collection = c
			}
		}
	}

	switch len(found) {
	case 0:
		return models.Task{}, "", fmt.Errorf("%w: %s", manager.ErrTaskNotFound, prefix)
	case 1:
		return found[0], collection, nil
	default:
		return models.Task{}, "", fmt.Errorf("task ID prefix %q is ambiguous (%d matches)", prefix, len(found))
	}
}
