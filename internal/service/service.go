// Package service implements the memory proxy's conversational core: session
// resolution, context windows, chat orchestration and retention.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiaot623/gogo/memproxy/internal/adapter/llm"
	"github.com/xiaot623/gogo/memproxy/internal/config"
	"github.com/xiaot623/gogo/memproxy/internal/metrics"
	"github.com/xiaot623/gogo/memproxy/internal/repository"
	"github.com/xiaot623/gogo/memproxy/policy"
)

type Service struct {
	store        repository.Store
	llmClient    llm.Gateway
	config       *config.Config
	policyEngine *policy.Engine
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
	locks        *sessionLocks
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics records service activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates the service. policyEngine may be nil, in which case every request is admitted.
func New(store repository.Store, llmClient llm.Gateway, cfg *config.Config, policyEngine *policy.Engine, opts ...Option) *Service {
	s := &Service{
		store:        store,
		llmClient:    llmClient,
		config:       cfg,
		policyEngine: policyEngine,
		logger:       slog.Default(),
		now:          time.Now,
		locks:        newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return s.logger.With("request_id", id)
	}
	return s.logger
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
