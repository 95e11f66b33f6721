package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/tierloop/internal/bundle"
	"github.com/abhisek/tierloop/internal/cache"
	"github.com/abhisek/tierloop/internal/config"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/itembank"
	"github.com/abhisek/tierloop/internal/llm"
	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/narrative"
	"github.com/abhisek/tierloop/internal/problemgen"
	"github.com/abhisek/tierloop/internal/remediation"
	"github.com/abhisek/tierloop/internal/review"
	"github.com/abhisek/tierloop/internal/session"
	"github.com/abhisek/tierloop/internal/store"
)

// runtime is the wired engine plus everything that must be closed with it.
type runtime struct {
	cfg     config.Config
	log     *logger.Logger
	bank    *itembank.Bank
	store   *store.Store // nil when event recording is off
	service *session.Service
	closers []func() error
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.log.Warn("close failed", "error", err)
		}
	}
	r.log.Sync()
}

// setupOptions tweaks setup for one command.
type setupOptions struct {
	// logToFile sends logs next to the database instead of stderr.
	logToFile bool
}

// setup loads configuration and wires the engine: item bank, optional LLM
// collaborators, cache, event store and the session service.
func setup(cmd *cobra.Command, opts setupOptions) (*runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Load()
	if p, _ := cmd.Flags().GetString("bank"); p != "" {
		cfg.BankPath = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}

	var log *logger.Logger
	if opts.logToFile {
		log, err = logger.NewFile(cfg.LogMode, cfg.LogLevel, filepath.Join(filepath.Dir(dbPath), "tierloop.log"))
	} else {
		log, err = logger.New(cfg.LogMode, cfg.LogLevel)
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	for _, w := range cfg.Warnings {
		log.Warn("config value ignored", "detail", w)
	}
	rt := &runtime{cfg: cfg, log: log}

	rt.bank, err = itembank.Load(cfg.BankPath, log)
	if err != nil {
		return nil, fmt.Errorf("load item bank: %w", err)
	}
	lessons := rt.bank.Lessons()
	catalog := rt.bank.Catalog()

	policy := evaluator.Policy{BundlePassScore: cfg.BundlePassScore, RoundPassRatio: cfg.RoundPassRatio}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if policy.BundlePassScore > len(lessons) {
		return nil, fmt.Errorf("TIERLOOP_BUNDLE_PASS_SCORE %d exceeds the bundle size %d", policy.BundlePassScore, len(lessons))
	}

	var llmRecorder llm.Recorder
	svcOpts := []session.Option{session.WithPolicy(policy), session.WithLogger(log)}
	if cfg.RecordEvents {
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		rt.store = st
		rt.closers = append(rt.closers, st.Close)
		llmRecorder = st.EventRepo()
		svcOpts = append(svcOpts, session.WithRecorder(st.EventRepo()))
	}

	shared, err := cache.Open(ctx, cfg.CacheURL, cfg.CacheTTL, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	rt.closers = append(rt.closers, shared.Close)

	bundleOpts := []bundle.Option{
		bundle.WithPlaceholders(cfg.Placeholders),
		bundle.WithCache(shared, cfg.CacheTTL),
		bundle.WithLogger(log),
	}
	remedyOpts := []remediation.Option{
		remediation.WithRoundSize(cfg.RoundSize),
		remediation.WithPlaceholders(cfg.Placeholders),
		remediation.WithLogger(log),
	}
	reviewOpts := []review.Option{
		review.WithTimeout(cfg.CollaboratorTimeout),
		review.WithCache(shared, cfg.CacheTTL),
		review.WithLogger(log),
	}

	provider, err := llm.NewProviderFromEnv(ctx, log, llmRecorder)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Info("LLM provider not configured, using bank and static content only")
	case err != nil:
		log.Warn("LLM provider unavailable, using bank and static content only", "error", err)
	default:
		adapter := problemgen.NewAdapter(problemgen.New(provider, problemgen.DefaultConfig()),
			problemgen.WithTimeout(cfg.CollaboratorTimeout), problemgen.WithLogger(log))
		if adapter.Enabled() {
			bundleOpts = append(bundleOpts, bundle.WithGenerator(adapter))
			remedyOpts = append(remedyOpts, remediation.WithGenerator(adapter))
			reviewOpts = append(reviewOpts, review.WithTheory(adapter))
		}
		reviewOpts = append(reviewOpts, review.WithNarrator(narrative.New(provider, narrative.DefaultConfig())))
		log.Info("LLM collaborators enabled", "model", provider.ModelID())
	}

	rt.service = session.NewService(
		bundle.New(rt.bank, lessons, bundleOpts...),
		remediation.NewManager(rt.bank, catalog, remedyOpts...),
		review.NewComposer(catalog, reviewOpts...),
		svcOpts...,
	)
	return rt, nil
}
