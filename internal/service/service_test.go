package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xiaot623/gogo/memproxy/internal/adapter/llm"
	"github.com/xiaot623/gogo/memproxy/internal/config"
	"github.com/xiaot623/gogo/memproxy/internal/domain"
	"github.com/xiaot623/gogo/memproxy/internal/repository"
	"github.com/xiaot623/gogo/memproxy/tests/helpers"
)

var errInjected = errors.New("injected storage failure")

func newTestService(t *testing.T, gateway llm.Gateway, mutate func(*config.Config), opts ...Option) (*Service, repository.Store) {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	if gateway == nil {
		gateway = llm.NewMockClient()
	}
	return New(store, gateway, cfg, nil, opts...), store
}

// faultyStore fails every call it overrides while fail is set.
type faultyStore struct {
	repository.Store
	fail atomic.Bool
}

func newFaultyStore(inner repository.Store) *faultyStore {
	s := &faultyStore{Store: inner}
	s.fail.Store(true)
	return s
}

func (s *faultyStore) CreateSession(ctx context.Context, session *domain.Session) error {
	if s.fail.Load() {
		return errInjected
	}
	return s.Store.CreateSession(ctx, session)
}

func (s *faultyStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	if s.fail.Load() {
		return nil, errInjected
	}
	return s.Store.GetSession(ctx, id)
}

func (s *faultyStore) CreateMessage(ctx context.Context, m *domain.Message) error {
	if s.fail.Load() {
		return errInjected
	}
	return s.Store.CreateMessage(ctx, m)
}

func (s *faultyStore) GetRecentMessages(ctx context.Context, id string, limit int) ([]domain.Message, error) {
	if s.fail.Load() {
		return nil, errInjected
	}
	return s.Store.GetRecentMessages(ctx, id, limit)
}

func (s *faultyStore) GetMessages(ctx context.Context, id string) ([]domain.Message, error) {
	if s.fail.Load() {
		return nil, errInjected
	}
	return s.Store.GetMessages(ctx, id)
}

func (s *faultyStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.fail.Load() {
		return 0, errInjected
	}
	return s.Store.DeleteSessionsBefore(ctx, cutoff)
}

// recordingGateway captures every window it is sent and answers like the mock client.
type recordingGateway struct {
	mu          sync.Mutex
	windows     [][]domain.ChatMessage
	inflight    int
	maxInflight int
	delay       time.Duration
	err         error
}

func (g *recordingGateway) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResult, error) {
	g.mu.Lock()
	g.windows = append(g.windows, append([]domain.ChatMessage(nil), req.Messages...))
	g.inflight++
	if g.inflight > g.maxInflight {
		g.maxInflight = g.inflight
	}
	g.mu.Unlock()

	if g.delay > 0 {
		time.Sleep(g.delay)
	}

	g.mu.Lock()
	g.inflight--
	g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	return llm.NewMockClient().CreateChatCompletion(ctx, req)
}

func (g *recordingGateway) ListModels(ctx context.Context) ([]llm.Model, error) {
	return llm.NewMockClient().ListModels(ctx)
}

func (g *recordingGateway) lastWindow() []domain.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.windows) == 0 {
		return nil
	}
	return g.windows[len(g.windows)-1]
}
