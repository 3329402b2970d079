// Package post orchestrates one posting cycle: verify the agent is claimed,
// consult the posting gate, generate content, and publish it, persisting the
// gate state after every evaluation.
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shrish242/moltbook-ai-agent/internal/domain/entity"
	"github.com/Shrish242/moltbook-ai-agent/internal/observability/metrics"
	"github.com/Shrish242/moltbook-ai-agent/internal/usecase/gate"
	"github.com/Shrish242/moltbook-ai-agent/internal/utils/text"
)

// AgentStatusClaimed is the platform status required before posting.
const AgentStatusClaimed = "claimed"

// Run status labels for metrics.
const (
	RunStatusPublished = "published"
	RunStatusSkipped   = "skipped"
	RunStatusFailed    = "failed"
)

// Platform is the social platform surface the service needs.
type Platform interface {
	AgentStatus(ctx context.Context) (string, error)
	CreatePost(ctx context.Context, submolt string, post *entity.GeneratedPost) error
}

// ContentGenerator produces one validated post.
type ContentGenerator interface {
	Generate(ctx context.Context) (*entity.GeneratedPost, error)
}

// StateStore persists the posting gate state between runs.
type StateStore interface {
	Load() (*entity.PostingState, error)
	Save(state *entity.PostingState) error
}

// Service runs posting cycles.
type Service struct {
	platform  Platform
	generator ContentGenerator
	store     StateStore
	gateCfg   gate.Config
	submolt   string
	logger    *slog.Logger
	metrics   *metrics.AgentMetrics
	now       func() time.Time
}

// New creates a posting service. metrics may be nil when unobserved.
func New(platform Platform, generator ContentGenerator, store StateStore, gateCfg gate.Config, submolt string, logger *slog.Logger, m *metrics.AgentMetrics) *Service {
	return &Service{
		platform:  platform,
		generator: generator,
		store:     store,
		gateCfg:   gateCfg,
		submolt:   submolt,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Run executes one posting cycle.
//
// A gate denial is a normal outcome and returns nil. A platform rate limit
// on publish is logged with its advisory wait and also returns nil, without
// consuming gate budget. All other failures return an error.
func (s *Service) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID))
	start := s.now()

	status, err := s.runOnce(ctx, logger)
	if s.metrics != nil {
		s.metrics.RecordRun(status, s.now().Sub(start).Seconds())
	}
	return err
}

func (s *Service) runOnce(ctx context.Context, logger *slog.Logger) (string, error) {
	agentStatus, err := s.platform.AgentStatus(ctx)
	if err != nil {
		return RunStatusFailed, fmt.Errorf("check agent status: %w", err)
	}
	if agentStatus != AgentStatusClaimed {
		logger.Error("agent is not claimed, refusing to post",
			slog.String("status", agentStatus))
		return RunStatusFailed, &entity.NotClaimedError{Status: agentStatus}
	}
	logger.Info("agent status verified", slog.String("status", agentStatus))

	state, err := s.store.Load()
	if err != nil {
		return RunStatusFailed, fmt.Errorf("load posting state: %w", err)
	}

	now := s.now()
	decision := gate.Evaluate(state, now, s.gateCfg)
	if s.metrics != nil {
		s.metrics.RecordGateDecision(decision.Outcome)
	}

	// The evaluation may have reset the day counter or cleared a corrupt
	// timestamp, so persist it regardless of the outcome.
	if err := s.store.Save(state); err != nil {
		return RunStatusFailed, fmt.Errorf("save posting state: %w", err)
	}

	if !decision.Allowed {
		logger.Info("posting gate denied this run",
			slog.String("outcome", decision.Outcome),
			slog.String("reason", decision.Reason),
			slog.Int("posts_today", state.PostsToday))
		return RunStatusSkipped, nil
	}

	generated, err := s.generator.Generate(ctx)
	if err != nil {
		return RunStatusFailed, fmt.Errorf("generate post: %w", err)
	}
	logger.Info("post content ready",
		slog.String("title", generated.Title),
		slog.Int("content_runes", text.CountRunes(generated.Content)))

	if err := s.platform.CreatePost(ctx, s.submolt, generated); err != nil {
		var rateErr *entity.RateLimitError
		if errors.As(err, &rateErr) {
			logger.Warn("platform rate limited the post, not consuming budget",
				slog.Duration("advisory_wait", rateErr.Advisory))
			return RunStatusSkipped, nil
		}
		return RunStatusFailed, fmt.Errorf("create post: %w", err)
	}

	gate.RecordSuccess(state, s.now())
	if err := s.store.Save(state); err != nil {
		return RunStatusFailed, fmt.Errorf("save posting state after publish: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PostsPublishedTotal.Inc()
	}
	logger.Info("post published",
		slog.String("submolt", s.submolt),
		slog.String("title", generated.Title),
		slog.Int("posts_today", state.PostsToday))
	return RunStatusPublished, nil
}
