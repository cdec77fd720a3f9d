package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/codename-co/devs-sub002/internal/analyzer"
	"github.com/codename-co/devs-sub002/internal/api"
	"github.com/codename-co/devs-sub002/internal/catalog"
	"github.com/codename-co/devs-sub002/internal/config"
	"github.com/codename-co/devs-sub002/internal/logging"
	"github.com/codename-co/devs-sub002/internal/orchestrator"
	"github.com/codename-co/devs-sub002/internal/state"
)

// staleAfter is how long an in-progress task may go without finishing
// before a new run treats it as interrupted.
const staleAfter = 30 * time.Minute

// eventBuffer sizes the progress event channel.
const eventBuffer = 100

// app bundles the collaborators a command needs.
type app struct {
	cfg    *config.Config
	logger *logging.DebugLogger
	db     *state.DB
	agents *state.AgentRegistry
	client *api.Client
	orch   *orchestrator.Orchestrator
	events *orchestrator.EventEmitter
}

// loadConfig honors --config before the XDG and project lookup.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// newLogger returns the debug logger selected by --verbose and the config.
func newLogger(cfg *config.Config) (*logging.DebugLogger, error) {
	if verbose {
		return logging.NewWriterLogger(os.Stderr), nil
	}
	return logging.NewDebugLogger(cfg.Logging.DebugLog)
}

// openStore opens the task database and prepares it for a run: interrupted
// tasks are failed, expired context is purged and the catalog is seeded.
func openStore(ctx context.Context, cfg *config.Config, logger *logging.DebugLogger) (*state.DB, error) {
	db, err := state.OpenAndMigrate(ctx, cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	recovered, err := db.RecoverInterrupted(ctx, staleAfter)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("recover interrupted tasks: %w", err)
	}
	if len(recovered) > 0 {
		logger.Log("marked %d interrupted tasks as failed", len(recovered))
	}

	if cfg.Agents.SeedOnStart {
		if _, err := seedCatalog(ctx, cfg, state.NewAgentRegistry(db)); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// seedCatalog registers the configured catalog's agents.
func seedCatalog(ctx context.Context, cfg *config.Config, reg catalog.Registry) (int, error) {
	c, err := catalog.Load(cfg.Agents.CatalogPath)
	if err != nil {
		return 0, err
	}
	if missing := c.Missing(cfg.Orchestrator.RecruiterAgentID, cfg.Orchestrator.ValidatorAgentID); len(missing) > 0 {
		return 0, fmt.Errorf("agent catalog is missing %v", missing)
	}
	return catalog.Seed(ctx, reg, c)
}

// newApp wires the store, the inference client and the orchestrator.
// Without credentials the orchestrator is still built; Orchestrate then
// reports ErrNoProviderConfigured.
func newApp(ctx context.Context, cfg *config.Config, withEvents bool) (*app, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Close()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		agents: state.NewAgentRegistry(db),
	}

	broker := state.NewContextBroker(db, cfg.Orchestrator.ContextLimit)
	if n, err := broker.PurgeExpiredContext(ctx); err != nil {
		logger.Log("purge expired context: %v", err)
	} else if n > 0 {
		logger.Log("purged %d expired context entries", n)
	}

	opts := []orchestrator.Option{
		orchestrator.WithContextBroker(broker),
		orchestrator.WithLogger(logger),
		orchestrator.WithMaxRefinementPasses(cfg.Orchestrator.MaxRefinementPasses),
		orchestrator.WithMaxParallel(cfg.Orchestrator.MaxParallel),
		orchestrator.WithStrictCompletion(cfg.Orchestrator.StrictCompletion),
		orchestrator.WithRecruiterID(cfg.Orchestrator.RecruiterAgentID),
		orchestrator.WithValidatorID(cfg.Orchestrator.ValidatorAgentID),
		orchestrator.WithContextTTL(cfg.Orchestrator.ContextTTL),
		orchestrator.WithInferenceTimeout(cfg.Orchestrator.InferenceTimeout),
	}

	var an *analyzer.Analyzer
	if config.HasCredentials(cfg) {
		client, err := newClient(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		runner := api.NewRunner(client)
		a.client = client
		an = analyzer.New(runner, analyzer.WithLogger(logger))
		opts = append(opts, orchestrator.WithInference(runner))
	} else {
		an = analyzer.New(nil, analyzer.WithLogger(logger))
	}

	if withEvents {
		a.events = orchestrator.NewEventEmitter(eventBuffer)
		opts = append(opts, orchestrator.WithEventEmitter(a.events))
	}

	a.orch, err = orchestrator.New(orchestrator.RequiredConfig{
		Tasks:     db,
		Artifacts: db,
		Agents:    a.agents,
		Analyzer:  an,
	}, opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}
	return a, nil
}

// newClient creates the Anthropic client from config.
func newClient(ctx context.Context, cfg *config.Config) (*api.Client, error) {
	clientCfg := api.ClientConfig{
		Model:         cfg.Anthropic.Model,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	}
	if !cfg.Anthropic.UseBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		clientCfg.APIKey = key
	}

	client, err := api.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}
	return client, nil
}

// Close releases the database and the log file.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	a.logger.Close()
}
