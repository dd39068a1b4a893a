// Package bootstrap builds the collaborators shared by the Lambda entry points
// and adapts a handler to the Lambda runtime.
package bootstrap

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/config"
	"github.com/activityboards/board-lambdas/internal/deepseek"
	"github.com/activityboards/board-lambdas/internal/handler"
	"github.com/activityboards/board-lambdas/internal/logger"
	"github.com/activityboards/board-lambdas/internal/supabase"
	"github.com/activityboards/board-lambdas/internal/voyage"
	"github.com/activityboards/board-lambdas/internal/warmup"
)

// HandlerFunc is the signature every function handler exposes.
type HandlerFunc func(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error)

// Deps loads configuration and builds the collaborators. The returned cleanup
// closes the database pool when one was opened.
func Deps(ctx context.Context, service string) (handler.Deps, func()) {
	cfg := config.Load()
	log := logger.New(service, cfg.LogLevel, cfg.LogFormat)

	deps := handler.Deps{
		Config:    cfg,
		Logger:    log,
		Completer: deepseek.NewClient(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DeepSeekModel, log),
		Embedder:  voyage.NewClient(cfg.VoyageKey, cfg.VoyageBaseURL, log),
		Store:     supabase.NewRESTClient(cfg.SupabaseURL, cfg.SupabaseKey, log),
	}
	cleanup := func() { _ = log.Sync() }

	if cfg.SupabaseDBURL != "" {
		store, err := supabase.OpenSQLStore(ctx, cfg.SupabaseDBURL, log)
		if err != nil {
			log.Warn("Direct database connection failed, using the REST API", zap.Error(err))
		} else {
			log.Info("Using direct database connection")
			deps.Store = store
			cleanup = func() {
				_ = store.Close()
				_ = log.Sync()
			}
		}
	}

	log.Info("Initialized",
		zap.String("environment", cfg.Environment),
		zap.String("supabase_key", config.KeyPrefix(cfg.SupabaseKey)))
	return deps, cleanup
}

// Start runs h under the Lambda runtime. Warmup pings are answered before the
// event reaches the handler.
func Start(h HandlerFunc, log *zap.Logger) {
	warmer := warmup.New(os.Getenv("AWS_LAMBDA_FUNCTION_NAME"), log)
	lambda.Start(Wrap(h, warmer))
}

// Wrap combines warmup detection with a function handler.
func Wrap(h HandlerFunc, warmer *warmup.Warmer) func(ctx context.Context, raw json.RawMessage) (any, error) {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		if ev, ok := warmup.Detect(raw); ok {
			return warmer.Handle(ctx, ev)
		}
		return h(ctx, raw)
	}
}
