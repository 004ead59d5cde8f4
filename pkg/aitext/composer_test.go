package aitext

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

type stubCompletionAPI struct {
	response openai.ChatCompletionResponse
	err      error
	lastReq  openai.ChatCompletionRequest
}

func (s *stubCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastReq = req
	return s.response, s.err
}

func newTestComposer(t *testing.T, api completionAPI) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
	return &Client{
		api:    api,
		model:  "gpt-4o-mini",
		logger: logg,
		cfg:    config.OpenAIConfig{Model: "gpt-4o-mini"},
	}
}

func TestComposeNudgeSuccess(t *testing.T) {
	api := &stubCompletionAPI{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "  Hey Jordan, mind adding your address?  "}},
			},
		},
	}
	composer := newTestComposer(t, api)

	msg, err := composer.ComposeNudge(context.Background(), NudgePrompt{
		SenderName:    "Alex",
		RecipientName: "Jordan",
		DataNeeded:    []string{"shipping address", "birthday"},
		Occasion:      "birthday",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != "Hey Jordan, mind adding your address?" {
		t.Fatalf("unexpected message %q", msg)
	}

	if len(api.lastReq.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(api.lastReq.Messages))
	}
	userPrompt := api.lastReq.Messages[1].Content
	if !strings.Contains(userPrompt, "shipping address") || !strings.Contains(userPrompt, "Jordan") {
		t.Fatalf("user prompt missing context: %q", userPrompt)
	}
}

func TestComposeNudgeAPIFailure(t *testing.T) {
	api := &stubCompletionAPI{err: errors.New("rate limited")}
	composer := newTestComposer(t, api)

	if _, err := composer.ComposeNudge(context.Background(), NudgePrompt{}); err == nil {
		t.Fatal("expected error when API fails")
	}
}

func TestComposeNudgeDisabledClient(t *testing.T) {
	composer := newTestComposer(t, nil)
	composer.api = nil

	_, err := composer.ComposeNudge(context.Background(), NudgePrompt{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestComposeNudgeEmptyChoices(t *testing.T) {
	api := &stubCompletionAPI{}
	composer := newTestComposer(t, api)

	_, err := composer.ComposeNudge(context.Background(), NudgePrompt{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
