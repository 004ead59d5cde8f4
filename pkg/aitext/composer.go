package aitext

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	pkgerrors "github.com/giftwell-app/giftwell-backend/pkg/errors"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

// ErrUnavailable signals the AI backend cannot serve the request; callers
// fall back to deterministic templates.
var ErrUnavailable = errors.New("ai text generation unavailable")

const nudgeSystemPrompt = "You write short, warm reminder messages for a gifting app. " +
	"The sender wants a friend to fill in missing profile details so gifts arrive on time. " +
	"Keep it under 80 words, friendly, no emojis, no marketing language."

// NudgePrompt carries the context needed to draft a nudge message.
type NudgePrompt struct {
	SenderName    string
	RecipientName string
	DataNeeded    []string
	Occasion      string
}

// Composer produces short user-facing copy.
type Composer interface {
	ComposeNudge(ctx context.Context, prompt NudgePrompt) (string, error)
}

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client drafts copy with the OpenAI chat API.
type Client struct {
	api    completionAPI
	model  string
	logger *logger.Logger
	cfg    config.OpenAIConfig
}

// NewClient builds the OpenAI-backed composer. An empty API key returns a
// client whose calls report ErrUnavailable.
func NewClient(cfg config.OpenAIConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("aitext logger is required")
	}
	c := &Client{
		model:  cfg.Model,
		logger: logg,
		cfg:    cfg,
	}
	if strings.TrimSpace(cfg.APIKey) != "" {
		c.api = openai.NewClient(cfg.APIKey)
	}
	return c, nil
}

// ComposeNudge asks the model for a personalized nudge message.
func (c *Client) ComposeNudge(ctx context.Context, prompt NudgePrompt) (string, error) {
	if c.api == nil {
		return "", ErrUnavailable
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: nudgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildNudgeUserPrompt(prompt)},
		},
		MaxTokens:   160,
		Temperature: 0.7,
	})
	if err != nil {
		c.logger.Warn(ctx, "openai completion failed, falling back to template")
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", ErrUnavailable
	}

	message := strings.TrimSpace(resp.Choices[0].Message.Content)
	if message == "" {
		return "", ErrUnavailable
	}
	return message, nil
}

func buildNudgeUserPrompt(p NudgePrompt) string {
	var b strings.Builder
	b.WriteString("Sender: ")
	b.WriteString(fallback(p.SenderName, "A friend"))
	b.WriteString("\nRecipient: ")
	b.WriteString(fallback(p.RecipientName, "their friend"))
	if p.Occasion != "" {
		b.WriteString("\nUpcoming occasion: ")
		b.WriteString(p.Occasion)
	}
	if len(p.DataNeeded) > 0 {
		b.WriteString("\nMissing details: ")
		b.WriteString(strings.Join(p.DataNeeded, ", "))
	}
	b.WriteString("\nWrite the message the sender would send.")
	return b.String()
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
