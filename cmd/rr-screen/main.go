package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/haukened/rr-screen/internal/screen/common/clock"
	"github.com/haukened/rr-screen/internal/screen/common/log"
	"github.com/haukened/rr-screen/internal/screen/config"
	"github.com/haukened/rr-screen/internal/screen/repos/auditlog"
	"github.com/haukened/rr-screen/internal/screen/repos/bloom"
	"github.com/haukened/rr-screen/internal/screen/repos/decisioncache/lru"
	"github.com/haukened/rr-screen/internal/screen/repos/ruleset"
	"github.com/haukened/rr-screen/internal/screen/repos/seed"
	"github.com/haukened/rr-screen/internal/screen/repos/store"
	"github.com/haukened/rr-screen/internal/screen/repos/store/bolt"
	"github.com/haukened/rr-screen/internal/screen/services/policy"
	"github.com/haukened/rr-screen/internal/screen/services/screener"
)

const (
	version = "0.1.0-dev"
	appName = "rr-screen"
)

// Application holds all the components of the screening engine.
type Application struct {
	config   *config.AppConfig
	store    store.Store
	rules    *ruleset.Store
	audit    *auditlog.Log
	cache    screener.DecisionCache
	screener *screener.Screener
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newCLI(func() (*Application, error) { return buildApplication(cfg) })
	if err := c.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// buildApplication opens the store and wires the services together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	st, err := bolt.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	rules := ruleset.New(ruleset.Options{
		Persister:   st,
		Bloom:       bloom.NewFactory(),
		BloomFPRate: cfg.Policy.Bloom.FPRate,
		Logger:      log.Named("ruleset"),
	})
	if _, err := seed.Apply(rules, cfg.Rules.Seed, logger); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to seed rules: %w", err)
	}

	audit := auditlog.New(auditlog.Options{
		Capacity:  cfg.Audit.Capacity,
		Persister: st,
		Logger:    log.Named("audit"),
	})

	cache, err := lru.New(cfg.Policy.Cache.Size)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}

	svc := screener.New(screener.Options{
		Rules:    rules,
		Audit:    audit,
		Cache:    cache,
		Resolver: policy.NewResolver(policy.Options{CountryCodeStrip: cfg.Policy.CountryCodeStrip}),
		Clock:    &clock.RealClock{},
		Logger:   log.Named("screener"),
	})

	stats := st.Stats()
	log.Debug(map[string]any{
		"version":       version,
		"store":         cfg.Store.Path,
		"rules":         rules.Len(),
		"audit_entries": audit.Len(),
		"cache_size":    cfg.Policy.Cache.Size,
		"cc_strip":      cfg.Policy.CountryCodeStrip,
		"rules_saved":   stats.RulesSavedUnix,
	}, "Screening engine ready")

	return &Application{
		config:   cfg,
		store:    st,
		rules:    rules,
		audit:    audit,
		cache:    cache,
		screener: svc,
	}, nil
}

// Close releases the store.
func (app *Application) Close() error {
	return app.store.Close()
}
