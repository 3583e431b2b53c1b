package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/TRQuant/TRQuantExt/internal/advisor"
	"github.com/TRQuant/TRQuantExt/internal/composer"
	"github.com/TRQuant/TRQuantExt/internal/config"
	"github.com/TRQuant/TRQuantExt/internal/evaluator"
	"github.com/TRQuant/TRQuantExt/internal/factor"
	"github.com/TRQuant/TRQuantExt/internal/manager"
	"github.com/TRQuant/TRQuantExt/internal/marketdata"
	"github.com/TRQuant/TRQuantExt/internal/storage"
)

// app wires the engine from configuration: registry, storage tiers, market
// data provider, evaluator, and advisor.
type app struct {
	cfg      *config.Config
	manager  *manager.Manager
	store    storage.Store
	provider marketdata.Provider
	eval     *evaluator.Evaluator
	advisor  *advisor.Advisor
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	method, err := factor.ParseNormalization(cfg.Factors.Normalization)
	if err != nil {
		return nil, err
	}

	mgr := manager.New(manager.Config{
		Normalization: method,
		Workers:       cfg.Factors.Workers,
	})
	if err := registerFactors(mgr, method); err != nil {
		return nil, err
	}
	for name, w := range cfg.Factors.Weights {
		if err := mgr.SetWeight(name, w); err != nil {
			return nil, fmt.Errorf("weights: %w", err)
		}
	}
	for _, name := range cfg.Factors.ForceEnable {
		mgr.ForceEnable(name, true)
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var provider marketdata.Provider = marketdata.NewFileProvider(cfg.Factors.SnapshotDir)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		provider = marketdata.NewCachedProvider(provider, rdb, cfg.Redis.TTL())
	}

	return &app{
		cfg:      cfg,
		manager:  mgr,
		store:    store,
		provider: provider,
		eval:     evaluator.New(cfg.Evaluator),
		advisor:  advisor.New(advisorClients(cfg.Advisor), cfg.Advisor.Timeout()),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("store close failed")
	}
}

// registerFactors installs the full factor library: the per-category
// composites plus their components, all addressable by name.
func registerFactors(mgr *manager.Manager, method factor.Normalization) error {
	factors := []factor.Factor{
		factor.NewEPFactor(), factor.NewBPFactor(), factor.NewSPFactor(), factor.NewDividendYieldFactor(),
		factor.NewRevenueGrowthFactor(), factor.NewProfitGrowthFactor(), factor.NewROEChangeFactor(),
		factor.NewROEFactor(), factor.NewGrossMarginFactor(), factor.NewAssetTurnoverFactor(), factor.NewLeverageFactor(),
		factor.NewPriceMomentumFactor(), factor.NewReversalFactor(), factor.NewRelativeStrengthFactor(),
		factor.NewNorthboundFlowFactor(), factor.NewMainForceFlowFactor(), factor.NewMarginBalanceFactor(),
	}
	composites := []func(factor.Normalization) (factor.Factor, error){
		factor.NewCompositeValueFactor,
		factor.NewCompositeGrowthFactor,
		factor.NewCompositeQualityFactor,
		factor.NewCompositeMomentumFactor,
		factor.NewCompositeFlowFactor,
	}
	for _, build := range composites {
		f, err := build(method)
		if err != nil {
			return err
		}
		factors = append(factors, f)
	}
	for _, f := range factors {
		if err := mgr.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// openStore builds the tiered store. An unreachable Postgres at startup
// degrades to file-only operation rather than refusing to start.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	fileStore := storage.NewFileStore(cfg.FileDir)
	if err := fileStore.Ping(ctx); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	if cfg.PostgresDSN == "" {
		return fileStore, nil
	}

	pg, err := storage.OpenPostgres(ctx, cfg.PostgresDSN, cfg.Timeout())
	if err != nil {
		log.Warn().Err(err).Msg("primary store unreachable at startup, running on file fallback only")
		return fileStore, nil
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return storage.NewTieredStore(pg, fileStore), nil
}

func advisorClients(cfg config.AdvisorConfig) []advisor.Client {
	var clients []advisor.Client
	for _, p := range cfg.Providers {
		switch p {
		case "openai":
			key := os.Getenv(cfg.OpenAIKeyEnv)
			if key == "" {
				log.Warn().Str("env", cfg.OpenAIKeyEnv).Msg("openai provider configured without an API key, skipping")
				continue
			}
			clients = append(clients, advisor.NewOpenAIClient(cfg.OpenAIBaseURL, key, cfg.OpenAIModel, cfg.Timeout(), cfg.RatePerMinute))
		case "ollama":
			clients = append(clients, advisor.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.Timeout()))
		}
	}
	return clients
}

// factorDirection resolves a registered factor's declared direction.
func (a *app) factorDirection(name string) (factor.Direction, error) {
	f, ok := a.manager.Factor(name)
	if !ok {
		return factor.HigherIsBetter, fmt.Errorf("unknown factor %s", name)
	}
	return f.Direction(), nil
}

// runBatch computes the full pipeline for one date: fetch inputs, compute
// factors, persist raw results, and compose signals.
func (a *app) runBatch(ctx context.Context, date time.Time, universe []string, mainlines map[string]composer.MainlineScore, topN int, save bool) (*manager.BatchResult, []composer.StockSignal, error) {
	fields := a.manager.RequiredFields(true)
	snap, err := a.provider.Fetch(ctx, date, universe, fields)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch market data: %w", err)
	}

	batch, err := a.manager.ComputeAll(ctx, date, universe, snap, true)
	if err != nil {
		return nil, nil, err
	}

	if save {
		for _, res := range batch.Raw {
			if err := a.store.Save(ctx, res); err != nil {
				return nil, nil, fmt.Errorf("persist %s: %w", res.FactorName, err)
			}
		}
	}

	scores := batch.FactorScores()
	instScores := make([]composer.InstrumentScore, 0, len(scores))
	for inst, score := range scores {
		instScores = append(instScores, composer.InstrumentScore{
			Code:        inst,
			Name:        inst,
			FactorScore: score,
			TopFactors:  batch.TopContributors(inst, 2),
		})
	}

	signals, err := composer.Compose(instScores, mainlines, a.cfg.Composer, topN)
	if err != nil {
		return nil, nil, err
	}
	return batch, signals, nil
}

// loadUniverse reads one instrument id per line; # starts a comment.
func loadUniverse(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// loadMainlines reads the mainline collaborator's export:
// {"code": {"theme": "...", "score": N}, ...}. An empty path means no
// mainline coverage.
func loadMainlines(path string) (map[string]composer.MainlineScore, error) {
	if path == "" {
		return map[string]composer.MainlineScore{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mainlines: %w", err)
	}
	var out map[string]composer.MainlineScore
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode mainlines: %w", err)
	}
	return out, nil
}

// loadForwardReturns reads realized forward returns:
// {"2025-01-06": {"code": 0.031, ...}, ...}.
func loadForwardReturns(path string) (evaluator.ForwardReturns, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read forward returns: %w", err)
	}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode forward returns: %w", err)
	}

	out := make(evaluator.ForwardReturns, len(raw))
	for dateStr, values := range raw {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("forward returns date %q: %w", dateStr, err)
		}
		out[date] = values
	}
	return out, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
