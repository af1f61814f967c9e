package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"patientsim/internal/llm"
	"patientsim/pkg"
)

// Generation parameters of the evaluation call.  The low temperature keeps
// scores stable across runs.
const (
	EvaluationTemperature = 0.2
	EvaluationMaxTokens   = 400
)

// GenerationParams tune a conversational turn.
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
}

// Gateway sends conversation turns and evaluation requests to the model
// service.  It never returns an error: a failed or timed-out call becomes a
// fixed fallback text.  Calls are made at most once.
type Gateway struct {
	client  llm.Client
	timeout time.Duration
}

// NewGateway constructs a Gateway.  A non-positive timeout leaves calls
// bounded only by the caller's context.
func NewGateway(client llm.Client, timeout time.Duration) *Gateway {
	return &Gateway{client: client, timeout: timeout}
}

// Converse asks for the patient's reply to userMessage.  The payload is
// the windowed history followed by the new user turn, even when the history
// already ends with it.
func (g *Gateway) Converse(ctx context.Context, persona *pkg.Persona, history []llm.Message, userMessage string, params GenerationParams) string {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	reply, err := g.call(ctx, llm.Request{
		Persona:     persona.Fields,
		System:      BuildSystemPrompt(persona),
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		logrus.WithError(err).WithField("persona", persona.Slug).Warn("model turn failed, using fallback reply")
		return TurnFallback
	}
	return reply
}

// Evaluate asks the model to grade the conversation with the given
// instruction as system prompt.
func (g *Gateway) Evaluate(ctx context.Context, persona *pkg.Persona, history []llm.Message, instruction string) string {
	reply, err := g.call(ctx, llm.Request{
		Persona:     persona.Fields,
		System:      instruction,
		Messages:    history,
		Temperature: EvaluationTemperature,
		MaxTokens:   EvaluationMaxTokens,
	})
	if err != nil {
		logrus.WithError(err).WithField("persona", persona.Slug).Warn("model evaluation failed, using fallback")
		return EvalFallback
	}
	return reply
}

func (g *Gateway) call(ctx context.Context, req llm.Request) (string, error) {
	if req.Messages == nil {
		req.Messages = []llm.Message{}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.client.Chat(ctx, req)
}
