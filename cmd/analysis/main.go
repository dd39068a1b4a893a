// Command analysis is the Lambda entry point that serves the analysis, query_parser and quick_insight tasks.
package main

import (
	"context"

	"github.com/activityboards/board-lambdas/internal/bootstrap"
	"github.com/activityboards/board-lambdas/internal/handler"
)

func main() {
	deps, cleanup := bootstrap.Deps(context.Background(), "analysis-lambda")
	defer cleanup()

	h := handler.NewAnalysis(deps)
	bootstrap.Start(h.Handle, deps.Logger)
}
