// Package config defines the agent's aggregate configuration, sourced from
// environment variables with defaults and validated before use.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Shrish242/moltbook-ai-agent/internal/resilience/retry"
	pkgconfig "github.com/Shrish242/moltbook-ai-agent/pkg/config"
)

// Run modes.
const (
	RunModeOnce   = "once"
	RunModeDaemon = "daemon"
)

// AgentConfig holds every operational knob of the posting agent.
//
// All fields have defaults matching the platform's etiquette (3 posts/day,
// 30-minute cooldown) and are overridable via environment variables.
type AgentConfig struct {
	// Model is the language model identifier passed to the chat endpoint.
	// Env: OLLAMA_MODEL. Default: "qwen3:8b".
	Model string

	// Mode gates whether posting logic runs at all. Only "post" is
	// implemented; any other value exits cleanly without touching state.
	// Env: MOLT_MODE. Default: "post".
	Mode string

	// Submolt is the target channel for created posts.
	// Env: MOLT_SUBMOLT. Default: "general".
	Submolt string

	// DailyCap is the rate gate's posts-per-day ceiling.
	// Env: MOLT_DAILY_POST_CAP. Default: 3. Must be positive.
	DailyCap int

	// Cooldown is the rate gate's minimum spacing between posts.
	// Env: MOLT_POST_COOLDOWN_SEC (integer seconds). Default: 1800s.
	// Must be positive.
	Cooldown time.Duration

	// APIBase is the platform API base URL.
	// Env: MOLTBOOK_API_BASE. Default: https://www.moltbook.com/api/v1.
	APIBase string

	// OllamaChatURL is the model chat endpoint.
	// Env: OLLAMA_CHAT_URL. Default: http://127.0.0.1:11434/api/chat.
	OllamaChatURL string

	// CredPath overrides the credential file location. Empty means the
	// default ~/.config/moltbook/credentials.json.
	// Env: MOLTBOOK_CRED_PATH.
	CredPath string

	// StatePath is the posting-state record location.
	// Env: MOLT_STATE_PATH. Default: "moltbot_state.json".
	StatePath string

	// ConnectTimeout bounds the dial phase of every upstream call.
	// Env: MOLT_CONNECT_TIMEOUT. Default: 10s.
	ConnectTimeout time.Duration

	// ReadTimeout bounds each platform call attempt.
	// Env: MOLT_READ_TIMEOUT. Default: 45s.
	ReadTimeout time.Duration

	// OllamaReadTimeout bounds each model inference attempt. Inference is
	// slow, so this budget is much longer than platform calls.
	// Env: OLLAMA_READ_TIMEOUT. Default: 180s.
	OllamaReadTimeout time.Duration

	// RunTimeout bounds one full posting cycle. Zero (the default) derives
	// the bound from the per-call read timeouts and retry budgets via
	// RunBudget, so the cycle deadline never cuts a sanctioned retry short.
	// Env: AGENT_RUN_TIMEOUT.
	RunTimeout time.Duration

	// RunMode selects one-shot or daemon operation.
	// Env: AGENT_RUN_MODE ("once" or "daemon"). Default: "once".
	RunMode string

	// CronSchedule is the daemon-mode schedule (standard 5-field cron).
	// Env: AGENT_CRON_SCHEDULE. Default: "*/30 * * * *".
	CronSchedule string

	// Timezone is the IANA timezone for daemon-mode scheduling.
	// Env: AGENT_TIMEZONE. Default: "UTC".
	Timezone string

	// MetricsPort is the daemon-mode /metrics and /healthz port.
	// Env: AGENT_METRICS_PORT. Default: 9091.
	MetricsPort int

	// UserAgent is sent on every platform call.
	UserAgent string
}

// DefaultConfig returns the agent defaults.
func DefaultConfig() *AgentConfig {
	return &AgentConfig{
		Model:             "qwen3:8b",
		Mode:              "post",
		Submolt:           "general",
		DailyCap:          3,
		Cooldown:          30 * time.Minute,
		APIBase:           "https://www.moltbook.com/api/v1",
		OllamaChatURL:     "http://127.0.0.1:11434/api/chat",
		StatePath:         "moltbot_state.json",
		ConnectTimeout:    10 * time.Second,
		ReadTimeout:       45 * time.Second,
		OllamaReadTimeout: 180 * time.Second,
		RunMode:           RunModeOnce,
		CronSchedule:      "*/30 * * * *",
		Timezone:          "UTC",
		MetricsPort:       9091,
		UserAgent:         "SunGod69-moltbot/1.0 (+local)",
	}
}

// LoadFromEnv builds an AgentConfig from the environment, falling back to
// defaults per field, then validates the aggregate.
func LoadFromEnv(logger *slog.Logger) (*AgentConfig, error) {
	def := DefaultConfig()

	cfg := &AgentConfig{
		Model:             pkgconfig.GetEnvString("OLLAMA_MODEL", def.Model),
		Mode:              pkgconfig.GetEnvString("MOLT_MODE", def.Mode),
		Submolt:           pkgconfig.GetEnvString("MOLT_SUBMOLT", def.Submolt),
		DailyCap:          pkgconfig.GetEnvInt("MOLT_DAILY_POST_CAP", def.DailyCap),
		Cooldown:          pkgconfig.GetEnvSeconds("MOLT_POST_COOLDOWN_SEC", def.Cooldown),
		APIBase:           pkgconfig.GetEnvString("MOLTBOOK_API_BASE", def.APIBase),
		OllamaChatURL:     pkgconfig.GetEnvString("OLLAMA_CHAT_URL", def.OllamaChatURL),
		CredPath:          pkgconfig.GetEnvString("MOLTBOOK_CRED_PATH", ""),
		StatePath:         pkgconfig.GetEnvString("MOLT_STATE_PATH", def.StatePath),
		ConnectTimeout:    pkgconfig.GetEnvDuration("MOLT_CONNECT_TIMEOUT", def.ConnectTimeout),
		ReadTimeout:       pkgconfig.GetEnvDuration("MOLT_READ_TIMEOUT", def.ReadTimeout),
		OllamaReadTimeout: pkgconfig.GetEnvDuration("OLLAMA_READ_TIMEOUT", def.OllamaReadTimeout),
		RunTimeout:        pkgconfig.GetEnvDuration("AGENT_RUN_TIMEOUT", 0),
		RunMode:           pkgconfig.GetEnvString("AGENT_RUN_MODE", def.RunMode),
		CronSchedule:      pkgconfig.GetEnvString("AGENT_CRON_SCHEDULE", def.CronSchedule),
		Timezone:          pkgconfig.GetEnvString("AGENT_TIMEZONE", def.Timezone),
		MetricsPort:       pkgconfig.GetEnvInt("AGENT_METRICS_PORT", def.MetricsPort),
		UserAgent:         def.UserAgent,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("agent configuration loaded",
		slog.String("mode", cfg.Mode),
		slog.String("model", cfg.Model),
		slog.String("submolt", cfg.Submolt),
		slog.Int("daily_cap", cfg.DailyCap),
		slog.Duration("cooldown", cfg.Cooldown),
		slog.String("state_path", cfg.StatePath),
		slog.String("run_mode", cfg.RunMode))

	return cfg, nil
}

// Validate checks the aggregate configuration. Invalid values fail closed:
// the agent refuses to start rather than posting under the wrong limits.
func (c *AgentConfig) Validate() error {
	if c.DailyCap <= 0 {
		return fmt.Errorf("daily cap must be positive, got %d", c.DailyCap)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Cooldown); err != nil {
		return fmt.Errorf("invalid cooldown: %w", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid connect timeout: %w", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.ReadTimeout); err != nil {
		return fmt.Errorf("invalid read timeout: %w", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.OllamaReadTimeout); err != nil {
		return fmt.Errorf("invalid ollama read timeout: %w", err)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout must not be negative, got %s", c.RunTimeout)
	}

	if c.RunMode != RunModeOnce && c.RunMode != RunModeDaemon {
		return fmt.Errorf("run mode must be %q or %q, got %q", RunModeOnce, RunModeDaemon, c.RunMode)
	}

	if c.RunTimeout > 0 && c.RunTimeout < c.OllamaReadTimeout {
		return fmt.Errorf("run timeout %s is shorter than a single inference attempt (%s)", c.RunTimeout, c.OllamaReadTimeout)
	}

	if c.RunMode == RunModeDaemon {
		if _, err := cron.ParseStandard(c.CronSchedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q: %w", c.CronSchedule, err)
		}
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
		if c.MetricsPort < 1024 || c.MetricsPort > 65535 {
			return fmt.Errorf("metrics port must be in 1024-65535, got %d", c.MetricsPort)
		}
	}

	return nil
}

// runBudgetMargin absorbs limiter waits, state I/O, and scheduling slack on
// top of the upstream call budgets.
const runBudgetMargin = time.Minute

// RunBudget returns the wall-clock bound for one full posting cycle.
//
// An explicit RunTimeout wins. Otherwise the bound is derived from what a
// cycle may legitimately spend: two platform calls (status check, publish)
// and one inference, each running every retry attempt to its read timeout
// with the full backoff between attempts, plus a fixed margin. The derived
// bound therefore grows with the configured timeouts instead of cutting
// their retry budgets short.
func (c *AgentConfig) RunBudget() time.Duration {
	if c.RunTimeout > 0 {
		return c.RunTimeout
	}
	platform := callBudget(c.ReadTimeout, retry.PlatformAPIConfig())
	model := callBudget(c.OllamaReadTimeout, retry.ModelAPIConfig())
	return 2*platform + model + runBudgetMargin
}

// callBudget is the worst-case wall time of one logical upstream call: all
// attempts running to the per-attempt read timeout, plus the maximum
// jittered backoff before each retry.
func callBudget(perAttempt time.Duration, cfg retry.Config) time.Duration {
	total := time.Duration(cfg.MaxAttempts) * perAttempt
	delay := cfg.InitialDelay
	for i := 1; i < cfg.MaxAttempts; i++ {
		wait := time.Duration(float64(delay) * (1 + cfg.JitterFraction))
		if wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}
		total += wait
		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}
	return total
}
