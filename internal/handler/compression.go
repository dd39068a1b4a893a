package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/chunker"
	"github.com/activityboards/board-lambdas/internal/config"
	"github.com/activityboards/board-lambdas/internal/domain"
	"github.com/activityboards/board-lambdas/internal/httpx"
	"github.com/activityboards/board-lambdas/internal/payload"
	"github.com/activityboards/board-lambdas/internal/supabase"
)

const previewLength = 100

// Compression folds new boards into the user's compressed history.
type Compression struct {
	base
	maxTokens int
}

// NewCompression creates the compression handler.
func NewCompression(deps Deps) *Compression {
	h := &Compression{
		base: base{
			function: "compression",
			required: []string{config.KeySupabaseURL, config.KeySupabaseKey, config.KeyDeepSeekAPIKey},
			deps:     deps,
		},
		maxTokens: chunker.DefaultMaxTokens,
	}
	h.onError = h.decorate
	return h
}

// Handle processes one invocation.
func (h *Compression) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	return h.serve(ctx, raw, h.run), nil
}

func (h *Compression) run(ctx context.Context, inv *invocation) (events.APIGatewayProxyResponse, error) {
	req := domain.NewRequest(inv.ev, inv.ev.Body)
	if len(req.Boards) == 0 {
		return events.APIGatewayProxyResponse{}, apperr.MissingData("Missing boards data")
	}

	id, err := resolveIdentity(inv, true)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	inv.log.Info("Processing compression",
		zap.Int("boards", len(req.Boards)),
		zap.String("auth_prefix", config.KeyPrefix(h.deps.Config.SupabaseKey)))

	summary, err := supabase.LoadCompressedHistory(ctx, h.deps.Store, id.UserID)
	if err != nil {
		inv.log.Warn("Could not fetch previous summary, starting empty", zap.Error(err))
		summary = ""
	} else {
		inv.log.Info("Fetched previous summary", zap.Int("length", len([]rune(summary))))
	}

	batches := chunker.ChunkBoards(req.RawBoards(), h.maxTokens)
	for i, batch := range batches {
		result, err := h.deps.Completer.Complete(ctx, payload.Compression(summary, batch))
		if err != nil {
			return events.APIGatewayProxyResponse{}, err
		}
		summary = result.Content
		inv.log.Info("Folded batch into summary",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int("boards", len(batch)),
			zap.Int("summary_length", len([]rune(summary))))
	}

	inserted, err := supabase.SaveCompressedHistory(ctx, h.deps.Store, id.UserID, summary)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	inv.log.Info("Stored compressed history", zap.Bool("inserted", inserted))

	runes := []rune(summary)
	preview := runes
	if len(preview) > previewLength {
		preview = preview[:previewLength]
	}

	return httpx.JSON(http.StatusOK, map[string]any{
		"message":            "Compression successful",
		"new_summary_length": len(runes),
		"preview":            string(preview) + "...",
	}), nil
}

// decorate adds the error kind and a credential prefix to server errors.
func (h *Compression) decorate(e *apperr.Error) *apperr.Error {
	if e.Status < http.StatusInternalServerError {
		return e
	}
	out := *e
	out.Details = make(map[string]any, len(e.Details)+2)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details["type"] = string(e.Kind)
	out.Details["auth_prefix"] = config.KeyPrefix(h.deps.Config.SupabaseKey)
	return &out
}
