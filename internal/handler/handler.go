// Package handler contains the per-function orchestration of the board
// Lambdas. Every handler follows the same shape: normalize the event, answer
// preflight, check configuration, run the function body, and convert any
// error into one JSON error response.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/config"
	"github.com/activityboards/board-lambdas/internal/deepseek"
	"github.com/activityboards/board-lambdas/internal/event"
	"github.com/activityboards/board-lambdas/internal/httpx"
	"github.com/activityboards/board-lambdas/internal/identity"
	"github.com/activityboards/board-lambdas/internal/metrics"
	"github.com/activityboards/board-lambdas/internal/payload"
	"github.com/activityboards/board-lambdas/internal/supabase"
)

// Completer runs one chat completion.
type Completer interface {
	Complete(ctx context.Context, req *payload.Completion) (*deepseek.Result, error)
}

// Embedder produces embeddings for queries and boards.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
	EmbedDocument(ctx context.Context, text, imageURL string) ([]float64, string, error)
}

// Deps are the process-wide collaborators, built once in main.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Completer Completer
	Embedder  Embedder
	Store     supabase.Store
}

// invocation is the per-request state passed to a function body.
type invocation struct {
	ev   *event.Event
	log  *zap.Logger
	task string
}

type runFunc func(ctx context.Context, inv *invocation) (events.APIGatewayProxyResponse, error)

// base implements the steps shared by every function.
type base struct {
	function string
	required []string
	deps     Deps
	// onError lets a function decorate its error bodies.
	onError func(e *apperr.Error) *apperr.Error
}

func (b *base) serve(ctx context.Context, raw json.RawMessage, run runFunc) (resp events.APIGatewayProxyResponse) {
	inv := &invocation{log: b.deps.Logger.With(
		zap.String("function", b.function),
		zap.String("request_id", requestID(ctx)),
	)}

	defer func() {
		if r := recover(); r != nil {
			inv.log.Error("Panic while handling request",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			resp = b.fail(inv, apperr.Internal(fmt.Errorf("panic: %v", r)))
		}
		metrics.ObserveInvocation(b.function, inv.task, resp.StatusCode)
	}()

	ev, err := event.Parse(raw)
	if err != nil {
		return b.fail(inv, err)
	}
	inv.ev = ev

	if ev.IsPreflight() {
		inv.log.Debug("Handling OPTIONS preflight request")
		return httpx.Preflight()
	}

	if missing := b.deps.Config.Missing(b.required...); len(missing) > 0 {
		return b.fail(inv, apperr.Configuration(missing))
	}

	resp, err = run(ctx, inv)
	if err != nil {
		return b.fail(inv, err)
	}

	inv.log.Info("Request completed", zap.Int("status", resp.StatusCode))
	return resp
}

func (b *base) fail(inv *invocation, err error) events.APIGatewayProxyResponse {
	e := apperr.From(err)
	if b.onError != nil {
		e = b.onError(e)
	}

	fields := []zap.Field{
		zap.String("kind", string(e.Kind)),
		zap.Int("status", e.Status),
		zap.Error(err),
	}
	if e.Status >= 500 {
		inv.log.Error("Request failed", fields...)
	} else {
		inv.log.Warn("Request rejected", fields...)
	}
	return httpx.Error(e)
}

// resolveIdentity resolves the caller and logs how. When required is false a
// missing identity is tolerated.
func resolveIdentity(inv *invocation, required bool) (identity.Identity, error) {
	id, err := identity.Resolve(inv.ev)
	if err != nil {
		if required || !apperr.Is(err, apperr.KindUnauthorized) {
			return id, err
		}
		inv.log.Warn("No user identity in request, continuing without one")
		return id, nil
	}

	inv.log = inv.log.With(zap.String("user_id", id.UserID))
	inv.log.Info("Resolved user identity", zap.String("source", id.Source))
	if !id.HasToken() {
		inv.log.Warn("No access token found, database calls use the service credential")
	}
	return id, nil
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
