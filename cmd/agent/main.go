package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	agentcfg "github.com/Shrish242/moltbook-ai-agent/internal/config"
	"github.com/Shrish242/moltbook-ai-agent/internal/infra/credentials"
	"github.com/Shrish242/moltbook-ai-agent/internal/infra/httpclient"
	"github.com/Shrish242/moltbook-ai-agent/internal/infra/moltbook"
	"github.com/Shrish242/moltbook-ai-agent/internal/infra/ollama"
	"github.com/Shrish242/moltbook-ai-agent/internal/infra/statestore"
	"github.com/Shrish242/moltbook-ai-agent/internal/observability/logging"
	"github.com/Shrish242/moltbook-ai-agent/internal/observability/metrics"
	"github.com/Shrish242/moltbook-ai-agent/internal/resilience/circuitbreaker"
	"github.com/Shrish242/moltbook-ai-agent/internal/resilience/retry"
	"github.com/Shrish242/moltbook-ai-agent/internal/usecase/gate"
	"github.com/Shrish242/moltbook-ai-agent/internal/usecase/generate"
	"github.com/Shrish242/moltbook-ai-agent/internal/usecase/post"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.NewLogger()

	cfg, err := agentcfg.LoadFromEnv(logger)
	if err != nil {
		logger.Error("failed to load agent configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("moltbot starting",
		slog.String("mode", cfg.Mode),
		slog.String("model", cfg.Model),
		slog.String("submolt", cfg.Submolt),
		slog.Int("daily_cap", cfg.DailyCap),
		slog.Duration("cooldown", cfg.Cooldown),
		slog.String("state_path", cfg.StatePath))

	if cfg.Mode != "post" {
		logger.Info("mode is not implemented, nothing to do",
			slog.String("mode", cfg.Mode))
		return
	}

	apiKey, err := credentials.Resolve(cfg.CredPath)
	if err != nil {
		logger.Error("no platform credential available", slog.Any("error", err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	agentMetrics := metrics.NewAgentMetrics(registry)

	svc := buildService(cfg, apiKey, logger, agentMetrics)

	switch cfg.RunMode {
	case agentcfg.RunModeDaemon:
		runDaemon(cfg, svc, registry, logger)
	default:
		if err := runCycle(svc, cfg.RunBudget(), logger); err != nil {
			os.Exit(1)
		}
	}
}

// buildService wires the platform client, model client, state store, and
// posting gate into the run service.
func buildService(cfg *agentcfg.AgentConfig, apiKey string, logger *slog.Logger, m *metrics.AgentMetrics) *post.Service {
	platformHTTP := httpclient.New(httpclient.Options{
		Upstream:       "moltbook",
		ConnectTimeout: cfg.ConnectTimeout,
		UserAgent:      cfg.UserAgent,
		Retry:          retry.PlatformAPIConfig(),
		Breaker:        circuitbreaker.New(circuitbreaker.MoltbookAPIConfig()),
		Metrics:        m,
	})
	platform := moltbook.NewClient(platformHTTP, moltbook.Config{
		BaseURL:     cfg.APIBase,
		APIKey:      apiKey,
		ReadTimeout: cfg.ReadTimeout,
	}, logger)

	modelHTTP := httpclient.New(httpclient.Options{
		Upstream:       "ollama",
		ConnectTimeout: cfg.ConnectTimeout,
		UserAgent:      cfg.UserAgent,
		Retry:          retry.ModelAPIConfig(),
		Breaker:        circuitbreaker.New(circuitbreaker.OllamaAPIConfig()),
		Metrics:        m,
	})
	model := ollama.NewClient(modelHTTP, ollama.Config{
		ChatURL:     cfg.OllamaChatURL,
		Model:       cfg.Model,
		ReadTimeout: cfg.OllamaReadTimeout,
	}, logger)

	generator := generate.New(model, logger)
	store := statestore.NewFileStore(cfg.StatePath, logger)
	gateCfg := gate.Config{DailyCap: cfg.DailyCap, Cooldown: cfg.Cooldown}

	return post.New(platform, generator, store, gateCfg, cfg.Submolt, logger, m)
}

// runCycle executes a single posting cycle. The budget covers the worst
// legitimate case of every upstream call's retries (see AgentConfig.RunBudget)
// and acts as a watchdog, not a constraint on the per-call timeouts.
func runCycle(svc *post.Service, budget time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	if err := svc.Run(ctx); err != nil {
		logger.Error("posting cycle failed", slog.Any("error", err))
		return err
	}
	return nil
}

// runDaemon schedules posting cycles on the configured cron expression and
// serves /metrics and /healthz until the process is killed.
func runDaemon(cfg *agentcfg.AgentConfig, svc *post.Service, registry *prometheus.Registry, logger *slog.Logger) {
	startMetricsServer(cfg.MetricsPort, registry, logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC",
			slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	budget := cfg.RunBudget()
	_, err = c.AddFunc(cfg.CronSchedule, func() {
		// Daemon mode keeps going after a failed cycle; the next tick retries.
		_ = runCycle(svc, budget, logger)
	})
	if err != nil {
		logger.Error("failed to schedule posting job", slog.Any("error", err))
		os.Exit(1)
	}

	c.Start()
	logger.Info("daemon started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Int("metrics_port", cfg.MetricsPort))
	select {}
}

// startMetricsServer exposes Prometheus metrics and a liveness probe.
func startMetricsServer(port int, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server started", slog.String("addr", server.Addr))
}
