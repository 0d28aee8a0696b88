package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-text-editor-be/internal/pkg/logger"
	"ai-text-editor-be/pkg/editing/prompt"
	"ai-text-editor-be/pkg/llm"
	"ai-text-editor-be/pkg/proposal"
)

// HistoryEntry is one prior turn passed to the model.
type HistoryEntry struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// Request is everything the model needs to propose a change.
type Request struct {
	CurrentDocument   string             `json:"current_document"`
	LatestInstruction string             `json:"latest_instruction" validate:"required"`
	History           []HistoryEntry     `json:"history" validate:"dive"`
	IsFeedback        bool               `json:"is_feedback"`
	PreviousProposal  *proposal.Proposal `json:"previous_proposal"`
}

// Gateway turns a request into a typed proposal. Implementations never
// return transport errors; failures come back as KindFailed.
type Gateway interface {
	Propose(ctx context.Context, req Request) proposal.Proposal
}

type LLMGateway struct {
	provider llm.LLMProvider
	prompts  *prompt.Builder
	logger   logger.ILogger
	options  []llm.Option
}

var _ Gateway = &LLMGateway{}

func NewLLMGateway(provider llm.LLMProvider, log logger.ILogger, options ...llm.Option) *LLMGateway {
	return &LLMGateway{
		provider: provider,
		prompts:  prompt.NewBuilder(),
		logger:   log,
		options:  append([]llm.Option{llm.WithJSONMode()}, options...),
	}
}

func (g *LLMGateway) Propose(ctx context.Context, req Request) proposal.Proposal {
	messages := g.Messages(req)

	raw, err := g.provider.Chat(ctx, messages, g.options...)
	if err != nil {
		g.logger.Error("GATEWAY", "LLM call failed", map[string]interface{}{
			"error":       err.Error(),
			"is_feedback": req.IsFeedback,
		})
		return proposal.NewFailed(FailureMessage(err))
	}

	p := ParseResponse(raw)
	if p.Kind == proposal.KindFailed {
		g.logger.Warn("GATEWAY", "Unusable LLM response", map[string]interface{}{
			"reason":  p.Message,
			"preview": proposal.Truncate(raw, 200),
		})
	} else {
		g.logger.Debug("GATEWAY", "Proposal received", map[string]interface{}{
			"kind":    p.Kind,
			"preview": p.Preview(50),
		})
	}
	return p
}

// Messages assembles the system prompt, the prior turns and the final
// instruction turn.
func (g *LLMGateway) Messages(req Request) []llm.Message {
	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: prompt.SystemPrompt})

	for _, h := range req.History {
		content := h.Content
		if h.Role == llm.RoleAssistant && json.Valid([]byte(content)) {
			var buf bytes.Buffer
			if err := json.Compact(&buf, []byte(content)); err == nil {
				content = buf.String()
			}
		}
		messages = append(messages, llm.Message{Role: h.Role, Content: content})
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: g.prompts.Build(req.CurrentDocument, req.LatestInstruction, req.IsFeedback, req.PreviousProposal),
	})
	return messages
}

// ParseResponse decodes a raw model answer. Code fences and surrounding
// prose are tolerated; anything else that cannot be decoded becomes a
// failed proposal.
func ParseResponse(raw string) proposal.Proposal {
	content := stripFences(raw)
	if content == "" {
		return proposal.NewFailed("The AI returned an empty response.")
	}

	jsonContent := extractJSON(content)
	if jsonContent == "" {
		return proposal.NewFailed("The AI response could not be parsed: " + proposal.Truncate(content, 200))
	}

	p, err := proposal.Decode([]byte(jsonContent))
	if err != nil {
		if errors.Is(err, proposal.ErrUnknownKind) {
			return proposal.NewFailed("The AI response has no recognizable kind: " + proposal.Truncate(jsonContent, 200))
		}
		return proposal.NewFailed("The AI response could not be parsed: " + err.Error())
	}
	return p
}

// FailureMessage converts a provider error into text fit for the user.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI request timed out. Please try again."
	case errors.Is(err, context.Canceled):
		return "The AI request was cancelled."
	case errors.Is(err, llm.ErrRateLimited):
		return "Too many requests to the AI service. Please wait a moment and retry."
	case errors.Is(err, llm.ErrUnauthorized):
		return "The AI service rejected the configured credentials."
	case errors.Is(err, llm.ErrUnavailable):
		return "Could not reach the AI service. Check the network or try again later."
	case errors.Is(err, llm.ErrEmptyResponse):
		return "The AI returned an empty response."
	}
	return fmt.Sprintf("Unexpected error while calling the AI service: %v", err)
}

func stripFences(raw string) string {
	content := strings.TrimSpace(raw)
	for _, fence := range []string{"```json", "```JSON", "```"} {
		if strings.HasPrefix(content, fence) {
			content = strings.TrimPrefix(content, fence)
			content = strings.TrimSuffix(strings.TrimSpace(content), "```")
			break
		}
	}
	return strings.TrimSpace(content)
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
