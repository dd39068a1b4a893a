package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/config"
	"github.com/activityboards/board-lambdas/internal/domain"
	"github.com/activityboards/board-lambdas/internal/httpx"
	"github.com/activityboards/board-lambdas/internal/payload"
	"github.com/activityboards/board-lambdas/internal/supabase"
)

// TaskSearchOnly returns the matched boards without a model call.
const TaskSearchOnly = "search_only"

// Similarity search parameters.
const (
	matchThreshold = 0.0
	matchCount     = 20
)

// Chat answers questions about the user's boards using similarity search.
type Chat struct {
	base
}

// NewChat creates the chat handler.
func NewChat(deps Deps) *Chat {
	return &Chat{base{
		function: "chat",
		required: []string{config.KeySupabaseURL, config.KeySupabaseKey, config.KeyVoyageKey, config.KeyDeepSeekAPIKey},
		deps:     deps,
	}}
}

// Handle processes one invocation.
func (h *Chat) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	return h.serve(ctx, raw, h.run), nil
}

func (h *Chat) run(ctx context.Context, inv *invocation) (events.APIGatewayProxyResponse, error) {
	id, err := resolveIdentity(inv, true)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	task := stringField(inv, "task")
	inv.task = "chat"
	if task == TaskSearchOnly {
		inv.task = TaskSearchOnly
	}

	query := stringField(inv, "query")
	if strings.TrimSpace(query) == "" {
		return events.APIGatewayProxyResponse{}, apperr.MissingData("Missing query")
	}

	vec, err := h.deps.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	rows, err := h.deps.Store.MatchBoards(ctx, supabase.MatchParams{
		Embedding: vec,
		UserID:    id.UserID,
		Threshold: matchThreshold,
		Count:     matchCount,
	})
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	inv.log.Info("Similarity search finished", zap.Int("matches", len(rows)))

	if inv.task == TaskSearchOnly {
		return httpx.JSON(http.StatusOK, map[string]any{
			"boards": rows,
			"count":  len(rows),
		}), nil
	}

	items := make([]any, len(rows))
	for i, r := range rows {
		items[i] = map[string]any(r)
	}
	completion := payload.Chat(query, domain.BoardsFrom(items), chatOptions(inv))

	result, err := h.deps.Completer.Complete(ctx, completion)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return httpx.JSON(http.StatusOK, result.Raw), nil
}

func chatOptions(inv *invocation) payload.ChatOptions {
	opts := payload.ChatOptions{Model: stringField(inv, "model")}
	if f, ok := numberField(inv, "temperature"); ok {
		t := float32(f)
		opts.Temperature = &t
	}
	if f, ok := numberField(inv, "max_tokens"); ok && f > 0 {
		opts.MaxTokens = int(f)
	}
	return opts
}

func stringField(inv *invocation, key string) string {
	v, _ := inv.ev.Field(key)
	return strings.TrimSpace(domain.Text(v))
}

func numberField(inv *invocation, key string) (float64, bool) {
	v, ok := inv.ev.Field(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(domain.Text(v), 64)
	if err != nil {
		inv.log.Warn("Ignoring non-numeric field", zap.String("field", key))
		return 0, false
	}
	return f, true
}
