package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ersonp/relman/internal/application/handlers"
	"github.com/ersonp/relman/internal/domain/services"
	"github.com/ersonp/relman/internal/infrastructure/config"
	"github.com/ersonp/relman/internal/infrastructure/logging"
	"github.com/ersonp/relman/internal/infrastructure/relationaldb/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config          *config.Config
	Project         string
	RelationHandler *handlers.RelationHandler
	LayerHandler    *handlers.LayerHandler
	HistoryHandler  *handlers.HistoryHandler
	TransferHandler *handlers.TransferHandler
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	logger *zap.Logger
	db     *sqlite.Repository
}

// activeSession holds the dependencies of a running session. Commands run
// inside the session share its store and its history log.
var activeSession *internalDeps

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including low-level
// components. Inside a session it reuses the session's dependencies.
func withInternalDeps(ctx context.Context, fn func(*internalDeps) error) error {
	if activeSession != nil {
		return fn(activeSession)
	}

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	return fn(d)
}

// openDeps opens the project named by the project flag.
func openDeps(ctx context.Context) (*internalDeps, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	projects, err := config.LoadProjects(cwd)
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}

	if globalProject == "" {
		return nil, errors.New("project is required (use --project flag)")
	}

	if _, err := projects.Get(globalProject); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := openProjectDB(ctx, cwd, globalProject)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	logger = logger.With(zap.String("project", globalProject))

	history := services.NewHistoryLog(db, logger)
	relationService := services.NewRelationService(db, history, logger)
	layerService := services.NewLayerService(db, logger)
	transferService := services.NewTransferService(db, history, logger)

	return &internalDeps{
		Deps: Deps{
			Config:          cfg,
			Project:         globalProject,
			RelationHandler: handlers.NewRelationHandler(relationService),
			LayerHandler:    handlers.NewLayerHandler(layerService),
			HistoryHandler:  handlers.NewHistoryHandler(history, relationService),
			TransferHandler: handlers.NewTransferHandler(transferService),
		},
		logger: logger,
		db:     db,
	}, nil
}

// openProjectDB opens the project's database and ensures its schema.
func openProjectDB(ctx context.Context, basePath, project string) (*sqlite.Repository, error) {
	if err := os.MkdirAll(config.ProjectDir(basePath, project), 0755); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}

	db, err := sqlite.NewRepository(config.SQLiteConfig{Path: config.SQLitePathForProject(basePath, project)})
	if err != nil {
		return nil, fmt.Errorf("creating sqlite repository: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	return db, nil
}

func (d *internalDeps) close() {
	if err := d.db.Close(); err != nil {
		d.logger.Warn("closing database", zap.Error(err))
	}
	_ = d.logger.Sync() // Sync fails on some terminals; nothing to recover
}
