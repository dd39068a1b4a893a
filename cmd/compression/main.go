// Command compression is the Lambda entry point that folds new boards into a user's compressed history.
package main

import (
	"context"

	"github.com/activityboards/board-lambdas/internal/bootstrap"
	"github.com/activityboards/board-lambdas/internal/handler"
)

func main() {
	deps, cleanup := bootstrap.Deps(context.Background(), "compression-lambda")
	defer cleanup()

	h := handler.NewCompression(deps)
	bootstrap.Start(h.Handle, deps.Logger)
}
