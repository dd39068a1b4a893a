// Command chat is the Lambda entry point that answers questions about a user's boards using similarity search.
package main

import (
	"context"

	"github.com/activityboards/board-lambdas/internal/bootstrap"
	"github.com/activityboards/board-lambdas/internal/handler"
)

func main() {
	deps, cleanup := bootstrap.Deps(context.Background(), "chat-lambda")
	defer cleanup()

	h := handler.NewChat(deps)
	bootstrap.Start(h.Handle, deps.Logger)
}
