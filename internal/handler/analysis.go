package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/config"
	"github.com/activityboards/board-lambdas/internal/domain"
	"github.com/activityboards/board-lambdas/internal/httpx"
	"github.com/activityboards/board-lambdas/internal/router"
)

// Analysis serves the analysis, query_parser and quick_insight tasks.
type Analysis struct {
	base
}

// NewAnalysis creates the analysis handler.
func NewAnalysis(deps Deps) *Analysis {
	return &Analysis{base{
		function: "analysis",
		required: []string{config.KeyDeepSeekAPIKey},
		deps:     deps,
	}}
}

// Handle processes one invocation. Errors are always rendered into the response.
func (h *Analysis) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	return h.serve(ctx, raw, h.run), nil
}

func (h *Analysis) run(ctx context.Context, inv *invocation) (events.APIGatewayProxyResponse, error) {
	if _, err := resolveIdentity(inv, true); err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	req := domain.NewRequest(inv.ev, inv.ev.Body)
	strategy := router.Route(req.Task)
	inv.task = strategy.Name
	inv.log = inv.log.With(zap.String("task", strategy.Name))

	if !router.IsKnown(req.Task) {
		inv.log.Warn("Unknown task, using default",
			zap.String("requested", req.Task),
			zap.Strings("supported", router.SupportedTasks()))
	}
	inv.log.Info("Dispatching task", zap.Int("boards", len(req.Boards)))

	plan, err := strategy.Build(req)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	if plan.Immediate != nil {
		inv.log.Warn("Target board is empty, skipping model call")
		return httpx.JSON(http.StatusOK, plan.Immediate), nil
	}

	result, err := h.deps.Completer.Complete(ctx, plan.Completion)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	inv.log.Debug("Model content", zap.String("content", result.Content))

	if strategy.Validate != nil {
		if problems := strategy.Validate(result.Content); len(problems) > 0 {
			inv.log.Warn("Model output does not match the expected shape", zap.Strings("problems", problems))
		}
	}

	body, err := strategy.Shape(result.Content)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return httpx.JSON(http.StatusOK, body), nil
}
