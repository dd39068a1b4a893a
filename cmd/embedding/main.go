// Command embedding is the Lambda entry point that vectorizes boards with VoyageAI and stores the vectors.
package main

import (
	"context"

	"github.com/activityboards/board-lambdas/internal/bootstrap"
	"github.com/activityboards/board-lambdas/internal/handler"
)

func main() {
	deps, cleanup := bootstrap.Deps(context.Background(), "embedding-lambda")
	defer cleanup()

	h := handler.NewEmbedding(deps)
	bootstrap.Start(h.Handle, deps.Logger)
}
