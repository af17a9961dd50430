// Command server runs the supply chain risk API and offers an offline scoring command.
//
//	@title			Supply Risk Simulator API
//	@version		1.0
//	@description	Supply chain disruption analysis, mitigation planning and supplier evaluation.
//	@BasePath		/api
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/adapters"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/analysis"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/cache"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/classify"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/config"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/contact"
	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/evidence"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/ratelimit"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/risk"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/security"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/suppliers"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

const (
	version = "1.0.0"

	shutdownTimeout = 30 * time.Second
	warmTimeout     = 2 * time.Minute
	responseTTL     = 15 * time.Minute
	newsTTL         = 15 * time.Minute
	marketTTL       = 30 * time.Minute
	cacheSweep      = 5 * time.Minute
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	serveFlags := []cli.Flag{
		&cli.StringFlag{Name: "port", Usage: "listen port, overrides PORT"},
		&cli.StringFlag{Name: "mode", Usage: "default generation mode, overrides OPENAI_MODE"},
	}

	return &cli.App{
		Name:    "supply-risk-simulator",
		Usage:   "supply chain disruption analysis API",
		Version: version,
		Flags:   serveFlags,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Flags:  serveFlags,
				Action: serve,
			},
			{
				Name:  "score",
				Usage: "score a BOM and KPI history offline and print the assessment as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "bom", Usage: "path to a BOM file (CSV or JSON)"},
					&cli.StringFlag{Name: "kpi", Usage: "path to a KPI history file (CSV or JSON)"},
					&cli.StringFlag{Name: "scenario", Value: "general", Usage: "scenario type used for the probability"},
				},
				Action: score,
			},
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Port = c.String("port")
	}
	if c.IsSet("mode") {
		cfg.DefaultMode = c.String("mode")
	}

	logger := monitoring.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger.Logger)

	s, err := buildServer(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	scheduler, err := startWarmers(cfg.MarketRefreshCron, s.newsSource, s.marketSource, logger)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port, "default_mode", s.modes.Default())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return apperrors.WrapError(err, "server forced to shutdown")
	}

	slog.Info("Server exited")
	return nil
}

// buildServer wires every collaborator from cfg. Missing API keys leave the matching provider out;
// an unreachable Redis falls back to in-memory rate limiting.
func buildServer(ctx context.Context, cfg config.Config, logger *monitoring.Logger) (*server, error) {
	metrics := monitoring.NewMetrics()

	classifierTables, err := classify.LoadTables(cfg.TablesFile)
	if err != nil {
		return nil, err
	}
	evidenceTables, err := evidence.LoadTables(cfg.TablesFile)
	if err != nil {
		return nil, err
	}
	supplierTables, err := suppliers.LoadTables(cfg.TablesFile)
	if err != nil {
		return nil, err
	}

	classifier := classify.New(classifierTables)
	aggregator := evidence.NewAggregator(evidenceTables, classifier, risk.NewScorer(classifier))
	ranker := suppliers.NewRanker(supplierTables, classifier)

	health := resilience.NewDegradationManager(resilience.DefaultDegradationConfig())
	s := &server{
		cfg:      cfg,
		modes:    cfg.Modes(),
		health:   health,
		pools:    make(map[string]*resilience.ConnectionPool),
		metrics:  metrics,
		logger:   logger,
		tracer:   monitoring.NewTracer("supply-risk-simulator"),
		security: security.NewSecurityMiddleware(securityConfig(cfg)),
	}

	var providers []generation.Provider
	if cfg.OpenAIAPIKey != "" {
		pool := s.pool(generation.ProviderOpenAI, 16)
		providers = append(providers, adapters.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, pool, logger))
	}
	if cfg.AnthropicAPIKey != "" {
		pool := s.pool(generation.ProviderAnthropic, 16)
		providers = append(providers, adapters.NewAnthropicProvider(cfg.AnthropicAPIKey, "", pool, logger))
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := adapters.NewGeminiProvider(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			logger.Warn("Gemini provider unavailable", "error", err)
		} else {
			providers = append(providers, gemini)
			s.closers = append(s.closers, gemini)
		}
	}
	for _, p := range providers {
		health.RegisterService(p.Name())
	}
	if len(providers) == 0 {
		logger.Warn("No generation provider configured; generation endpoints will report errors")
	}

	prompts, err := generation.LoadPrompts()
	if err != nil {
		return nil, err
	}
	orchestrator := generation.NewOrchestrator(s.modes, prompts, providers, generation.Options{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  monitoring.NewTracer("generation"),
		Health:  health,
	})

	newsCache := cache.New[[]types.Headline](newsTTL, cacheSweep)
	marketCache := cache.New[types.MarketIndicators](marketTTL, cacheSweep)
	s.responses = cache.New[[]byte](responseTTL, cacheSweep)
	s.closers = append(s.closers, closerFunc(newsCache.Close), closerFunc(marketCache.Close), closerFunc(s.responses.Close))

	s.newsSource = adapters.NewNewsSource(cfg.NewsFeeds, s.pool("news", 8), newsCache, logger)
	s.marketSource = adapters.NewMarketSource(adapters.DefaultMarketEndpoints(), cfg.MetalsAPIKey, s.pool("market", 4), marketCache, logger)

	checker := adapters.NewSearchPageChecker(ranker, 5, s.pool("availability", 8), logger)
	evaluator := suppliers.NewEvaluator(ranker, checker, orchestrator, logger, metrics)

	s.analysis = analysis.NewService(analysis.Options{
		Generator:  orchestrator,
		Aggregator: aggregator,
		News:       s.newsSource,
		Market:     s.marketSource,
		Evaluator:  evaluator,
		Logger:     logger,
		Metrics:    metrics,
		Tracer:     s.tracer,
	})

	mailer := adapters.NewSMTPMailer(adapters.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     strconv.Itoa(cfg.SMTPPort),
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger)
	s.contact = contact.NewService(cfg.DataDir, cfg.ContactRecipient, mailer, logger)

	redisClient, err := ratelimit.NewRedisClient(ctx, ratelimit.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting in memory", "addr", cfg.RedisAddr, "error", err)
	}
	s.redis = redisClient
	s.limiter = ratelimit.NewRateLimiter(redisClient, ratelimit.Config{IPLimitPerMin: cfg.RateLimitPerMin}, metrics)

	return s, nil
}

func securityConfig(cfg config.Config) security.SecurityConfig {
	sc := security.DefaultSecurityConfig()
	sc.EnableHSTS = cfg.EnableHSTS
	return sc
}

// pool creates and tracks a named connection pool so that its breaker shows up in health output
func (s *server) pool(name string, maxActive int) *resilience.ConnectionPool {
	p := adapters.NewPool(name, maxActive)
	p.SetRecorder(name, s.metrics.RecordExternalAPIRequest)
	s.pools[name] = p
	s.closers = append(s.closers, p)
	return p
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// Close releases pools, caches and the Redis connection
func (s *server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
	apperrors.SafeClose(s.redis, "redis")
	for _, c := range s.closers {
		apperrors.SafeClose(c, "server resource")
	}
}

type marketRefresher interface {
	Refresh(ctx context.Context) types.MarketIndicators
}

type headlineRefresher interface {
	Refresh(ctx context.Context, query string) []types.Headline
}

// startWarmers refreshes the market and default news caches on spec and once immediately
func startWarmers(spec string, news headlineRefresher, market marketRefresher, logger *monitoring.Logger) (*cron.Cron, error) {
	warm := func() {
		ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
		defer cancel()

		start := time.Now()
		indicators := market.Refresh(ctx)
		headlines := news.Refresh(ctx, "")
		logger.SystemLogger("cache_warm", fmt.Sprintf("indicators=%d headlines=%d duration=%s",
			len(indicators.Values), len(headlines), time.Since(start).Round(time.Millisecond)))
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(spec, warm); err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("invalid MARKET_REFRESH_CRON %q", spec), err)
	}
	scheduler.Start()
	go warm()
	return scheduler, nil
}

// score runs the deterministic assessment without starting the server
func score(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bom, err := readOptional(c.String("bom"))
	if err != nil {
		return err
	}
	kpi, err := readOptional(c.String("kpi"))
	if err != nil {
		return err
	}

	classifierTables, err := classify.LoadTables(cfg.TablesFile)
	if err != nil {
		return err
	}
	evidenceTables, err := evidence.LoadTables(cfg.TablesFile)
	if err != nil {
		return err
	}
	classifier := classify.New(classifierTables)

	svc := analysis.NewService(analysis.Options{
		Aggregator: evidence.NewAggregator(evidenceTables, classifier, risk.NewScorer(classifier)),
		Logger:     monitoring.NewLogger("error"),
	})
	result := svc.RiskScore(types.RiskScoreRequest{
		BOM:          types.FlexText(bom),
		KPI:          types.FlexText(kpi),
		ScenarioType: c.String("scenario"),
	})

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.NewValidationError(fmt.Sprintf("cannot read %s", path), err.Error())
	}
	return string(data), nil
}
