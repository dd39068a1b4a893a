package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/config"
	"github.com/activityboards/board-lambdas/internal/domain"
	"github.com/activityboards/board-lambdas/internal/httpx"
	"github.com/activityboards/board-lambdas/internal/supabase"
)

var embeddingRequiredFields = []string{"description", "tags", "date", "board_id"}

// Embedding vectorizes one board and stores the vector on its row.
type Embedding struct {
	base
}

// NewEmbedding creates the embedding handler.
func NewEmbedding(deps Deps) *Embedding {
	return &Embedding{base{
		function: "embedding",
		required: []string{config.KeySupabaseURL, config.KeySupabaseKey, config.KeyVoyageKey},
		deps:     deps,
	}}
}

// Handle processes one invocation.
func (h *Embedding) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	return h.serve(ctx, raw, h.run), nil
}

func (h *Embedding) run(ctx context.Context, inv *invocation) (events.APIGatewayProxyResponse, error) {
	fields := make(map[string]any, len(embeddingRequiredFields))
	for _, f := range embeddingRequiredFields {
		v, ok := inv.ev.Field(f)
		if !ok {
			return events.APIGatewayProxyResponse{}, apperr.MissingData("Missing required field: " + f)
		}
		fields[f] = v
	}

	// Boards are keyed by id; the caller's identity is only logged.
	if _, err := resolveIdentity(inv, false); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	boardID := domain.Text(fields["board_id"])
	description := domain.Text(fields["description"])
	tags := domain.NormalizeTags(fields["tags"])
	date := domain.Text(fields["date"])
	image, _ := inv.ev.Field("image")
	imageURL := domain.Text(image)

	inv.log = inv.log.With(zap.String("board_id", boardID))

	text := fmt.Sprintf("Description: %s, Tags: %s, Date: %s", description, strings.Join(tags, ", "), date)
	inv.log.Info("Generating embedding",
		zap.Int("text_length", len([]rune(text))),
		zap.Bool("has_image", imageURL != ""))

	vec, model, err := h.deps.Embedder.EmbedDocument(ctx, text, imageURL)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	inv.log.Info("Embedding generated", zap.String("model", model), zap.Int("dimension", len(vec)))

	n, err := supabase.SaveBoardVector(ctx, h.deps.Store, boardID, vec)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	if n == 0 {
		inv.log.Warn("No rows were updated, board may not exist")
	}

	return httpx.JSON(http.StatusOK, map[string]any{
		"message":       "Vectorized successfully",
		"embedding_dim": len(vec),
		"board_id":      fields["board_id"],
	}), nil
}
