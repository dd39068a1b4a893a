// Package warmup keeps board Lambda instances warm.
//
// A scheduled rule sends {"source":"warmup","concurrency":N}. The receiving
// instance fires N asynchronous self-invocations (each with concurrency 0, so
// they never fan out again) and lingers briefly so the instances overlap.
package warmup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// Source identifies warmup events.
	Source = "warmup"

	// Delay makes concurrent instances overlap.
	Delay = 75 * time.Millisecond

	// MaxConcurrency caps the fan-out of one warmup event.
	MaxConcurrency = 50
)

// Event is the scheduled warmup payload.
type Event struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// Response is the body of a warmup answer.
type Response struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// Invoker is the subset of the Lambda API used for self-invocation.
type Invoker interface {
	Invoke(ctx context.Context, in *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

// Detect reports whether raw is a warmup event.
func Detect(raw json.RawMessage) (*Event, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	if src, _ := m["source"].(string); src != Source {
		return nil, false
	}

	ev := &Event{Source: Source}
	if n, ok := m["concurrency"].(float64); ok && n > 0 {
		ev.Concurrency = min(int(n), MaxConcurrency)
	}
	return ev, true
}

// Warmer answers warmup events for one function.
type Warmer struct {
	functionName string
	logger       *zap.Logger
	delay        time.Duration

	mu      sync.Mutex
	invoker Invoker
	newInv  func(ctx context.Context) (Invoker, error)
}

// New creates a Warmer that invokes functionName. The Lambda client is
// created on the first warmup that needs one.
func New(functionName string, logger *zap.Logger) *Warmer {
	return &Warmer{
		functionName: functionName,
		logger:       logger,
		delay:        Delay,
		newInv:       defaultInvoker,
	}
}

// NewWithInvoker creates a Warmer around an existing client.
func NewWithInvoker(functionName string, inv Invoker, logger *zap.Logger) *Warmer {
	w := New(functionName, logger)
	w.invoker = inv
	return w
}

func defaultInvoker(ctx context.Context) (Invoker, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return lambdasdk.NewFromConfig(cfg), nil
}

// Handle processes a warmup event. Self-invocation failures are logged and
// only reduce the reported instance count.
func (w *Warmer) Handle(ctx context.Context, ev *Event) (map[string]any, error) {
	warmed := 1

	if ev.Concurrency > 0 {
		n, err := w.selfInvoke(ctx, ev.Concurrency)
		if err != nil {
			w.logger.Warn("Warmup self-invoke failed",
				zap.Error(err),
				zap.Int("requested", ev.Concurrency),
				zap.Int("succeeded", n))
		}
		warmed += n
	}

	time.Sleep(w.delay)

	w.logger.Info("Warmup handled", zap.Int("instances_warmed", warmed))
	return map[string]any{
		"statusCode": 200,
		"body":       Response{Status: "warm", InstancesWarmed: warmed},
	}, nil
}

func (w *Warmer) client(ctx context.Context) (Invoker, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.invoker == nil {
		inv, err := w.newInv(ctx)
		if err != nil {
			return nil, err
		}
		w.invoker = inv
	}
	return w.invoker, nil
}

// selfInvoke fires count async invocations in parallel and returns how many
// were accepted plus the first error seen.
func (w *Warmer) selfInvoke(ctx context.Context, count int) (int, error) {
	inv, err := w.client(ctx)
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(Event{Source: Source, Concurrency: 0})
	if err != nil {
		return 0, err
	}

	var (
		g  errgroup.Group
		ok atomic.Int64
	)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			_, err := inv.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(w.functionName),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			if err != nil {
				return err
			}
			ok.Add(1)
			return nil
		})
	}
	err = g.Wait()

	return int(ok.Load()), err
}
