package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/config"
	"github.com/activityboards/board-lambdas/internal/deepseek"
	"github.com/activityboards/board-lambdas/internal/metrics"
	"github.com/activityboards/board-lambdas/internal/payload"
	"github.com/activityboards/board-lambdas/internal/supabase"
)

type fakeCompleter struct {
	replies []string
	err     error
	calls   []*payload.Completion
}

func (f *fakeCompleter) Complete(_ context.Context, req *payload.Completion) (*deepseek.Result, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
	}
	return &deepseek.Result{
		Content: reply,
		Raw: openai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			}},
		},
	}, nil
}

type fakeEmbedder struct {
	vector      []float64
	model       string
	err         error
	queryCalls  int
	docCalls    int
	lastText    string
	lastImage   string
	lastQueries []string
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, query string) ([]float64, error) {
	f.queryCalls++
	f.lastQueries = append(f.lastQueries, query)
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, text, imageURL string) ([]float64, string, error) {
	f.docCalls++
	f.lastText = text
	f.lastImage = imageURL
	return f.vector, f.model, f.err
}

type fakeStore struct {
	selectRows []supabase.Row
	selectErr  error
	updateN    int
	updates    []supabase.Row
	inserts    []supabase.Row
	matches    []supabase.Row
	matchCalls []supabase.MatchParams
}

func (f *fakeStore) Select(context.Context, string, supabase.Eq, ...string) ([]supabase.Row, error) {
	return f.selectRows, f.selectErr
}

func (f *fakeStore) Update(_ context.Context, _ string, _ supabase.Eq, values supabase.Row) (int, error) {
	f.updates = append(f.updates, values)
	return f.updateN, nil
}

func (f *fakeStore) Insert(_ context.Context, _ string, values supabase.Row) error {
	f.inserts = append(f.inserts, values)
	return nil
}

func (f *fakeStore) MatchBoards(_ context.Context, p supabase.MatchParams) ([]supabase.Row, error) {
	f.matchCalls = append(f.matchCalls, p)
	return f.matches, nil
}

func fullConfig() *config.Config {
	return &config.Config{
		SupabaseURL:    "https://example.supabase.co",
		SupabaseKey:    "service-role-key-0123456789",
		DeepSeekAPIKey: "sk-test",
		VoyageKey:      "pa-test",
	}
}

func newDeps(t *testing.T, c *fakeCompleter, e *fakeEmbedder, s *fakeStore) Deps {
	return Deps{
		Config:    fullConfig(),
		Logger:    zaptest.NewLogger(t),
		Completer: c,
		Embedder:  e,
		Store:     s,
	}
}

// apiEvent wraps body as an API Gateway proxy event with a Cognito authorizer.
func apiEvent(t *testing.T, body map[string]any, sub string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	ev := map[string]any{
		"httpMethod": "POST",
		"headers":    map[string]any{"Authorization": "Bearer token-abc"},
		"body":       string(b),
	}
	if sub != "" {
		ev["requestContext"] = map[string]any{
			"authorizer": map[string]any{"claims": map[string]any{"sub": sub}},
		}
	}
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return raw
}

func decodeBody(t *testing.T, resp events.APIGatewayProxyResponse) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	return out
}

var sampleBoards = []any{
	map[string]any{"board_id": "b1", "description": "아침 러닝 5km", "tags": []any{"운동"}, "date": "2024-05-01"},
	map[string]any{"board_id": "b2", "description": "코딩 스터디", "tags": []any{"공부"}, "date": "2024-05-02"},
}

func TestAnalysis_Preflight(t *testing.T) {
	c := &fakeCompleter{}
	h := NewAnalysis(newDeps(t, c, nil, nil))

	resp, err := h.Handle(context.Background(), json.RawMessage(`{"httpMethod":"OPTIONS","body":""}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Empty(t, c.calls)
}

func TestAnalysis_MissingConfiguration(t *testing.T) {
	c := &fakeCompleter{}
	deps := newDeps(t, c, nil, nil)
	deps.Config = &config.Config{}
	h := NewAnalysis(deps)

	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"boards": sampleBoards}, "user-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, []any{config.KeyDeepSeekAPIKey}, body["missing"])
	assert.Empty(t, c.calls)
}

func TestAnalysis_Unauthorized(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"analysis":"ok"}`}}
	h := NewAnalysis(newDeps(t, c, nil, nil))

	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"boards": sampleBoards}, ""))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized - no user_id found", decodeBody(t, resp)["error"])
	assert.Empty(t, c.calls)
}

func TestAnalysis_MalformedBody(t *testing.T) {
	c := &fakeCompleter{}
	h := NewAnalysis(newDeps(t, c, nil, nil))

	resp, err := h.Handle(context.Background(), json.RawMessage(`{"httpMethod":"POST","body":"{not json"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid JSON in request body", decodeBody(t, resp)["error"])
	assert.Empty(t, c.calls)
}

func TestAnalysis_Tasks(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		reply      string
		wantStatus int
		wantCalls  int
		check      func(t *testing.T, body map[string]any, calls []*payload.Completion)
	}{
		{
			name:       "analysis unwraps analysis key",
			body:       map[string]any{"task": "analysis", "boards": sampleBoards},
			reply:      `{"analysis":{"summary":"꾸준함"}}`,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any, calls []*payload.Completion) {
				assert.Equal(t, map[string]any{"summary": "꾸준함"}, body["analysis"])
				assert.True(t, calls[0].JSON)
				assert.Equal(t, 1024, calls[0].MaxTokens)
			},
		},
		{
			name:       "analysis degrades to raw content",
			body:       map[string]any{"boards": sampleBoards},
			reply:      `{"insights":["a"]}`,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any, _ []*payload.Completion) {
				assert.Equal(t, `{"insights":["a"]}`, body["analysis"])
			},
		},
		{
			name:       "analysis without boards makes no call",
			body:       map[string]any{"task": "analysis", "boards": []any{}},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any, _ []*payload.Completion) {
				assert.Equal(t, "No boards data provided", body["error"])
			},
		},
		{
			name:       "unknown task falls back to analysis",
			body:       map[string]any{"task": "summarize_everything", "boards": sampleBoards},
			reply:      `{"analysis":"fallback"}`,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, _ map[string]any, calls []*payload.Completion) {
				assert.Equal(t, 1024, calls[0].MaxTokens)
			},
		},
		{
			name:       "query parser returns filters",
			body:       map[string]any{"task": "query_parser", "query": "지난주 운동 기록", "current_date": "2024-05-10"},
			reply:      `{"startDate":"2024-04-29","endDate":"2024-05-05","tags":["운동"],"keywords":null,"daysOfWeek":null,"hasImage":null,"sort":null,"limit":null}`,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any, calls []*payload.Completion) {
				assert.Equal(t, map[string]any{
					"startDate":  "2024-04-29",
					"endDate":    "2024-05-05",
					"tags":       []any{"운동"},
					"keywords":   nil,
					"daysOfWeek": nil,
					"hasImage":   nil,
					"sort":       nil,
					"limit":      nil,
				}, body["filters"])
				assert.Contains(t, calls[0].Messages[0].Content, "2024-05-10")
				assert.Equal(t, "지난주 운동 기록", calls[0].Messages[1].Content)
			},
		},
		{
			name:       "query parser keeps decodable filters that break the schema",
			body:       map[string]any{"task": "query_parser", "query": "사진 있는 운동"},
			reply:      `{"hasImage":"true","tags":["운동"]}`,
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any, _ []*payload.Completion) {
				assert.Equal(t, map[string]any{"hasImage": "true", "tags": []any{"운동"}}, body["filters"])
			},
		},
		{
			name:       "query parser rejects non-json output",
			body:       map[string]any{"task": "query_parser", "query": "사진"},
			reply:      "I think you want photos",
			wantStatus: http.StatusUnprocessableEntity,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any, _ []*payload.Completion) {
				assert.Equal(t, "Failed to parse filters", body["error"])
			},
		},
		{
			name: "quick insight on empty target skips the model",
			body: map[string]any{
				"task":         "quick_insight",
				"target_board": map[string]any{"board_id": "b9", "description": "", "tags": []any{}},
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any, _ []*payload.Completion) {
				assert.Equal(t, payload.EmptyDataNotice, body["insight"])
				assert.Contains(t, body, "full_body_keys")
			},
		},
		{
			name: "quick insight strips quotes",
			body: map[string]any{
				"task":         "quick_insight",
				"action":       "create",
				"target_board": map[string]any{"board_id": "b1", "description": "아침 러닝 5km", "tags": []any{"운동"}},
			},
			reply:      "\"벌써 세 번째 러닝이네요!\"\n",
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any, calls []*payload.Completion) {
				assert.Equal(t, "벌써 세 번째 러닝이네요!", body["insight"])
				assert.Equal(t, 150, calls[0].MaxTokens)
				assert.Equal(t, 10*time.Second, calls[0].Timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCompleter{replies: []string{tt.reply}}
			h := NewAnalysis(newDeps(t, c, nil, nil))

			resp, err := h.Handle(context.Background(), apiEvent(t, tt.body, "user-1"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode, resp.Body)
			assert.Len(t, c.calls, tt.wantCalls)
			if tt.check != nil {
				tt.check(t, decodeBody(t, resp), c.calls)
			}
		})
	}
}

func TestAnalysis_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"timeout", apperr.UpstreamTimeout("DeepSeek", 30*time.Second), http.StatusInternalServerError},
		{"rejected", apperr.Upstream("DeepSeek", http.StatusTooManyRequests, "rate limited"), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCompleter{err: tt.err}
			h := NewAnalysis(newDeps(t, c, nil, nil))

			resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"boards": sampleBoards}, "user-1"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, decodeBody(t, resp)["error"])
		})
	}
}

func TestAnalysis_DirectInvocation(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"analysis":"direct"}`}}
	h := NewAnalysis(newDeps(t, c, nil, nil))

	raw, err := json.Marshal(map[string]any{"user_id": "user-1", "boards": sampleBoards})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, c.calls, 1)
}

func TestAnalysis_CountsInvocations(t *testing.T) {
	counter := metrics.Invocations.WithLabelValues("analysis", "query_parser", "200")
	before := testutil.ToFloat64(counter)

	c := &fakeCompleter{replies: []string{`{"tags":["운동"]}`}}
	h := NewAnalysis(newDeps(t, c, nil, nil))
	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"task": "query_parser", "query": "운동"}, "user-1"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestAnalysis_LogsTaskOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := &fakeCompleter{replies: []string{`{"hasImage":"true"}`}}
	deps := newDeps(t, c, nil, nil)
	deps.Logger = zap.New(core)
	h := NewAnalysis(deps)

	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"task": "query_parser", "query": "사진"}, "user-1"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	completed := logs.FilterMessage("Request completed").All()
	require.Len(t, completed, 1)
	taskFields := 0
	for _, f := range completed[0].Context {
		if f.Key == "task" {
			taskFields++
			assert.Equal(t, "query_parser", f.String)
		}
	}
	assert.Equal(t, 1, taskFields)

	assert.Equal(t, 1, logs.FilterMessage("Model output does not match the expected shape").Len())
}

func TestCompression_InsertsWhenNoRowExists(t *testing.T) {
	c := &fakeCompleter{replies: []string{"새로운 요약"}}
	s := &fakeStore{selectRows: nil, updateN: 0}
	h := NewCompression(newDeps(t, c, nil, s))

	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"boards": sampleBoards}, "user-1"))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	body := decodeBody(t, resp)
	assert.Equal(t, "Compression successful", body["message"])
	assert.EqualValues(t, len([]rune("새로운 요약")), body["new_summary_length"])
	assert.Equal(t, "새로운 요약...", body["preview"])

	require.Len(t, c.calls, 1)
	assert.Contains(t, c.calls[0].Messages[1].Content, "(Empty - This is the start of the archive)")

	require.Len(t, s.updates, 1)
	require.Len(t, s.inserts, 1)
	assert.Equal(t, "user-1", s.inserts[0][supabase.ColUserID])
	assert.Equal(t, "새로운 요약", s.inserts[0][supabase.ColCompressedData])
	assert.Equal(t, supabase.UncompressedWindow, s.inserts[0][supabase.ColSinceLast])
}

func TestCompression_FoldsBatchesInOrder(t *testing.T) {
	c := &fakeCompleter{replies: []string{"요약 1", "요약 2", "요약 3"}}
	s := &fakeStore{
		selectRows: []supabase.Row{{supabase.ColCompressedData: "이전 요약"}},
		updateN:    1,
	}
	h := NewCompression(newDeps(t, c, nil, s))
	// Each sample board exceeds this budget, so every board is its own batch.
	h.maxTokens = 1

	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"boards": sampleBoards}, "user-1"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	require.Len(t, c.calls, 2)
	assert.Contains(t, c.calls[0].Messages[1].Content, "이전 요약")
	assert.Contains(t, c.calls[1].Messages[1].Content, "요약 1")

	require.Len(t, s.updates, 1)
	assert.Empty(t, s.inserts)
	assert.Equal(t, "요약 2", s.updates[0][supabase.ColCompressedData])
}

func TestCompression_HistoryReadFailureStartsEmpty(t *testing.T) {
	c := &fakeCompleter{replies: []string{"요약"}}
	s := &fakeStore{selectErr: errors.New("connection refused"), updateN: 1}
	h := NewCompression(newDeps(t, c, nil, s))

	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"boards": sampleBoards}, "user-1"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, c.calls, 1)
	assert.Contains(t, c.calls[0].Messages[1].Content, "(Empty - This is the start of the archive)")
}

func TestCompression_Rejections(t *testing.T) {
	t.Run("missing boards", func(t *testing.T) {
		c := &fakeCompleter{}
		h := NewCompression(newDeps(t, c, nil, &fakeStore{}))

		resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"boards": []any{}}, "user-1"))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Missing boards data", decodeBody(t, resp)["error"])
		assert.Empty(t, c.calls)
	})

	t.Run("upstream failure carries kind and key prefix", func(t *testing.T) {
		c := &fakeCompleter{err: apperr.UpstreamTimeout("DeepSeek", time.Minute)}
		h := NewCompression(newDeps(t, c, nil, &fakeStore{}))

		resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"boards": sampleBoards}, "user-1"))
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, string(apperr.KindUpstreamTimeout), body["type"])
		assert.Equal(t, "service-role-ke...", body["auth_prefix"])
		assert.NotContains(t, resp.Body, fullConfig().SupabaseKey)
	})
}

func TestEmbedding_StoresVector(t *testing.T) {
	e := &fakeEmbedder{vector: []float64{0.1, 0.2, 0.3}, model: "voyage-multimodal-3"}
	s := &fakeStore{updateN: 1}
	h := NewEmbedding(newDeps(t, nil, e, s))

	raw, err := json.Marshal(map[string]any{
		"board_id":    "b1",
		"description": "아침 러닝",
		"tags":        []any{map[string]any{"tag_name": "운동"}, "건강"},
		"date":        "2024-05-01",
		"image":       "https://cdn.example.com/run.jpg",
	})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), raw)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	body := decodeBody(t, resp)
	assert.Equal(t, "Vectorized successfully", body["message"])
	assert.EqualValues(t, 3, body["embedding_dim"])
	assert.Equal(t, "b1", body["board_id"])

	assert.Equal(t, "Description: 아침 러닝, Tags: 운동, 건강, Date: 2024-05-01", e.lastText)
	assert.Equal(t, "https://cdn.example.com/run.jpg", e.lastImage)
	require.Len(t, s.updates, 1)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, s.updates[0][supabase.ColVector])
}

func TestEmbedding_MissingField(t *testing.T) {
	e := &fakeEmbedder{}
	h := NewEmbedding(newDeps(t, nil, e, &fakeStore{}))

	raw, err := json.Marshal(map[string]any{"board_id": "b1", "description": "x", "tags": []any{}})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing required field: date", decodeBody(t, resp)["error"])
	assert.Zero(t, e.docCalls)
}

func TestEmbedding_UnknownBoardStillSucceeds(t *testing.T) {
	e := &fakeEmbedder{vector: []float64{1}, model: "voyage-3"}
	s := &fakeStore{updateN: 0}
	h := NewEmbedding(newDeps(t, nil, e, s))

	raw, err := json.Marshal(map[string]any{"board_id": "missing", "description": "x", "tags": []any{}, "date": "2024-05-01"})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, e.lastImage)
}

func TestChat_SearchOnly(t *testing.T) {
	c := &fakeCompleter{}
	e := &fakeEmbedder{vector: []float64{0.5, 0.5}}
	s := &fakeStore{matches: []supabase.Row{
		{"board_id": "b1", "description": "아침 러닝", "similarity": 0.91},
	}}
	h := NewChat(newDeps(t, c, e, s))

	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"task": "search_only", "query": "러닝"}, "user-1"))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["count"])
	assert.Len(t, body["boards"], 1)
	assert.Empty(t, c.calls)

	require.Len(t, s.matchCalls, 1)
	assert.Equal(t, supabase.MatchParams{Embedding: []float64{0.5, 0.5}, UserID: "user-1", Threshold: 0, Count: 20}, s.matchCalls[0])
}

func TestChat_Answers(t *testing.T) {
	c := &fakeCompleter{replies: []string{"러닝을 3번 했어요."}}
	e := &fakeEmbedder{vector: []float64{0.5}}
	s := &fakeStore{matches: []supabase.Row{
		{"board_id": "b1", "description": "아침 러닝", "tags": []any{"운동"}, "date": "2024-05-01"},
	}}
	h := NewChat(newDeps(t, c, e, s))

	resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{
		"query":       "러닝 몇 번 했어?",
		"temperature": 0.2,
		"max_tokens":  300,
	}, "user-1"))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	body := decodeBody(t, resp)
	choices, ok := body["choices"].([]any)
	require.True(t, ok)
	require.Len(t, choices, 1)

	require.Len(t, c.calls, 1)
	call := c.calls[0]
	assert.InDelta(t, 0.2, call.Temperature, 1e-6)
	assert.Equal(t, 300, call.MaxTokens)
	assert.Equal(t, payload.DefaultChatModel, call.Model)
	assert.True(t, strings.Contains(call.Messages[0].Content, "아침 러닝"))
}

func TestChat_Rejections(t *testing.T) {
	t.Run("no identity", func(t *testing.T) {
		e := &fakeEmbedder{}
		h := NewChat(newDeps(t, &fakeCompleter{}, e, &fakeStore{}))

		resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"query": "러닝"}, ""))
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Zero(t, e.queryCalls)
	})

	t.Run("empty query", func(t *testing.T) {
		e := &fakeEmbedder{}
		h := NewChat(newDeps(t, &fakeCompleter{}, e, &fakeStore{}))

		resp, err := h.Handle(context.Background(), apiEvent(t, map[string]any{"query": "  "}, "user-1"))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Zero(t, e.queryCalls)
	})
}
