package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meddocs-labs/meddocs/internal/core/domain"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driven"
	"github.com/meddocs-labs/meddocs/internal/core/ports/driving"
)

// Default generation policy. Temperature is kept low so answers stay
// close to the cited excerpts.
const (
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.1
)

// Synthesizer answers conversation turns: it retrieves evidence for the
// incoming message, asks the completion model for a cited answer, and
// commits the turn to the session. A turn commits fully or not at all.
type Synthesizer struct {
	retriever     *Retriever
	conversations *ConversationManager
	completion    driven.CompletionService
	log           *slog.Logger

	maxTokens   int
	temperature float64
}

var _ driving.ChatService = (*Synthesizer)(nil)

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithMaxTokens caps the length of generated answers.
func WithMaxTokens(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature for generation.
func WithTemperature(t float64) SynthesizerOption {
	return func(s *Synthesizer) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(retriever *Retriever, conversations *ConversationManager, completion driven.CompletionService, log *slog.Logger, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		retriever:     retriever,
		conversations: conversations,
		completion:    completion,
		log:           log,
		maxTokens:     DefaultMaxTokens,
		temperature:   DefaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat runs one conversation turn. The session is locked for the
// duration of the turn so concurrent messages to the same session are
// answered one after another, each seeing the previous turn's history.
func (s *Synthesizer) Chat(ctx context.Context, message, sessionID string) (*driving.ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	session, release, err := s.conversations.BeginTurn(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	history := s.conversations.History(session)

	result, err := s.retriever.Retrieve(ctx, message, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieving evidence: %w", err)
	}
	if result.Empty() {
		s.log.Info("no evidence retrieved for turn", "session_id", session.ID)
	}

	answer, err := s.completion.Complete(ctx, buildMessages(message, history, result), driven.CompletionOptions{
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCompletionService, err)
	}

	citations := parseCitations(answer, result)
	now := time.Now().UTC()

	err = s.conversations.CommitTurn(ctx, session,
		domain.Message{Role: domain.RoleUser, Content: message, Timestamp: now},
		domain.Message{Role: domain.RoleAssistant, Content: answer, Citations: citations, Timestamp: now},
	)
	if err != nil {
		return nil, err
	}

	return &driving.ChatResult{
		Content:   answer,
		SessionID: session.ID,
		Citations: citations,
	}, nil
}
