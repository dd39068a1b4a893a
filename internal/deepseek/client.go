// Package deepseek calls the DeepSeek chat completion API through its
// OpenAI-compatible surface.
package deepseek

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/metrics"
	"github.com/activityboards/board-lambdas/internal/payload"
)

const service = "DeepSeek"

// DefaultTimeout applies when a completion does not set its own.
const DefaultTimeout = 30 * time.Second

// Result is a finished completion.
type Result struct {
	// Content is the first choice's message content.
	Content string
	// Raw is the full response, returned verbatim by the chat handler.
	Raw openai.ChatCompletionResponse
}

// Client is a DeepSeek completion client. It is safe for concurrent use.
type Client struct {
	api    *openai.Client
	model  string
	logger *zap.Logger
}

// NewClient creates a client for the given base URL (the library appends
// /chat/completions) and default model.
func NewClient(apiKey, baseURL, model string, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Complete runs one chat completion. Failures are classified: a deadline is
// UpstreamTimeout, an error answer is UpstreamError carrying status and body.
func (c *Client) Complete(ctx context.Context, req *payload.Completion) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
		TopP:        req.TopP,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	c.logger.Debug("Calling DeepSeek",
		zap.String("model", model),
		zap.Int("messages", len(chatReq.Messages)),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Bool("json", req.JSON),
		zap.Duration("timeout", timeout))

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	metrics.ObserveUpstream("deepseek", start, err)
	if err != nil {
		c.logger.Error("DeepSeek call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, classify(err, timeout)
	}

	if len(resp.Choices) == 0 {
		return nil, apperr.Upstream(service, http.StatusOK, "response has no choices")
	}

	c.logger.Info("DeepSeek responded",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{Content: resp.Choices[0].Message.Content, Raw: resp}, nil
}

// wireTemperature keeps a requested temperature of 0 on the wire. go-openai
// omits a zero temperature, which would select the API default instead.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func toMessages(msgs []payload.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == payload.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func classify(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.UpstreamTimeout(service, timeout)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(service, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return apperr.Upstream(service, reqErr.HTTPStatusCode, msg)
	}

	return apperr.UpstreamFailed(service, err)
}
