package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/memproxy/internal/adapter/llm"
	"github.com/xiaot623/gogo/memproxy/internal/domain"
	"github.com/xiaot623/gogo/memproxy/internal/metrics"
	"github.com/xiaot623/gogo/memproxy/policy"
)

// Chat runs one conversational turn: admit, resolve the session, store the user turn,
// call the backend with the context window and store its reply.
//
// The user turn is committed before the backend is called and stays stored when the call
// fails; no assistant turn is written in that case.
func (s *Service) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResult, error) {
	last, ok := req.LastMessage()
	if !ok || req.Model == "" {
		return nil, fmt.Errorf("%w: model and at least one message are required", domain.ErrInvalidRequest)
	}

	if err := s.admit(ctx, req, last); err != nil {
		return nil, err
	}

	sessionID, err := s.ResolveSession(ctx, req.CandidateSessionID())
	if err != nil {
		return nil, err
	}

	if s.config.Consistency == domain.ConsistencySerialized {
		unlock, err := s.locks.Lock(ctx, sessionID)
		if err != nil {
			s.log(ctx).Info("gave up waiting for session", "session_id", sessionID, "error", err)
			return nil, fmt.Errorf("%w: wait for session %s: %w", domain.ErrRequestCanceled, sessionID, err)
		}
		defer unlock()
	}

	window, err := s.BuildTurn(ctx, sessionID, last, s.config.ContextWindowSize)
	if err != nil {
		return nil, err
	}

	result, err := s.infer(ctx, req.Model, window)
	if err != nil {
		s.log(ctx).Warn("inference failed", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	if err := s.RecordReply(ctx, sessionID, result.Content); err != nil {
		return nil, err
	}

	s.log(ctx).Info("turn completed", "session_id", sessionID, "window", len(window))
	return &domain.ChatResult{SessionID: sessionID, Reply: result.Raw}, nil
}

func (s *Service) admit(ctx context.Context, req *domain.ChatRequest, last domain.ChatMessage) error {
	if s.policyEngine == nil {
		return nil
	}
	decision, err := s.policyEngine.Evaluate(ctx, policy.Input{
		Model:        req.Model,
		SessionID:    req.CandidateSessionID(),
		MessageCount: len(req.Messages),
		LastRole:     last.Role,
	})
	if err != nil {
		return fmt.Errorf("policy evaluation: %w", err)
	}
	if !decision.Allow {
		s.metrics.PolicyBlocked()
		s.log(ctx).Info("request blocked by policy", "model", req.Model, "reason", decision.Reason)
		if decision.Reason == "" {
			return domain.ErrRequestBlocked
		}
		return fmt.Errorf("%w: %s", domain.ErrRequestBlocked, decision.Reason)
	}
	return nil
}

func (s *Service) infer(ctx context.Context, model string, window []domain.ChatMessage) (*llm.ChatCompletionResult, error) {
	start := time.Now()
	result, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    model,
		Messages: window,
	})
	s.metrics.RecordInference(inferenceOutcome(err), time.Since(start))
	return result, err
}

func inferenceOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, domain.ErrMisconfiguredEndpoint):
		return metrics.OutcomeMisconfigured
	case errors.Is(err, domain.ErrUpstreamRejected):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeUnavailable
	}
}
