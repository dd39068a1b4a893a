package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
)

type captured struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

func restServer(t *testing.T, status int, resp string) (*RESTClient, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*c = captured{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, header: r.Header.Clone(), body: string(b)}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return NewRESTClient(srv.URL+"/", "service-role-key", zap.NewNop()), c
}

func TestRESTClient_Select(t *testing.T) {
	client, got := restServer(t, http.StatusOK, `[{"compressed_data":"요약"}]`)

	rows, err := client.Select(context.Background(), TableUserAnalysis, Eq{ColUserID, "u1"}, ColCompressedData)
	require.NoError(t, err)

	assert.Equal(t, []Row{{"compressed_data": "요약"}}, rows)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/rest/v1/user_analysis", got.path)
	assert.Equal(t, "select=compressed_data&user_id=eq.u1", got.query)
	assert.Equal(t, "service-role-key", got.header.Get("apikey"))
	assert.Equal(t, "Bearer service-role-key", got.header.Get("Authorization"))
}

func TestRESTClient_Update(t *testing.T) {
	client, got := restServer(t, http.StatusOK, `[{"board_id":7},{"board_id":7}]`)

	n, err := client.Update(context.Background(), TableBoard, Eq{ColBoardID, "7"}, Row{ColVector: []float64{0.1, 0.2}})
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "board_id=eq.7", got.query)
	assert.Equal(t, "return=representation", got.header.Get("Prefer"))
	assert.JSONEq(t, `{"vector":[0.1,0.2]}`, got.body)
}

func TestRESTClient_UpdateNoRows(t *testing.T) {
	client, _ := restServer(t, http.StatusOK, `[]`)

	n, err := client.Update(context.Background(), TableUserAnalysis, Eq{ColUserID, "u1"}, Row{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRESTClient_Insert(t *testing.T) {
	client, got := restServer(t, http.StatusCreated, ``)

	err := client.Insert(context.Background(), TableUserAnalysis, Row{ColUserID: "u1", ColCompressedData: "s"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/rest/v1/user_analysis", got.path)
	assert.Equal(t, "return=minimal", got.header.Get("Prefer"))
	assert.JSONEq(t, `{"user_id":"u1","compressed_data":"s"}`, got.body)
}

func TestRESTClient_MatchBoards(t *testing.T) {
	client, got := restServer(t, http.StatusOK, `[{"board_id":1,"description":"run","similarity":0.83}]`)

	rows, err := client.MatchBoards(context.Background(), MatchParams{
		Embedding: []float64{0.5},
		UserID:    "u1",
		Threshold: 0,
		Count:     20,
	})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, json.Number("0.83"), rows[0]["similarity"])
	assert.Equal(t, "/rest/v1/rpc/match_boards", got.path)
	assert.JSONEq(t, `{"query_embedding":[0.5],"query_user_id":"u1","match_threshold":0,"match_count":20}`, got.body)
}

func TestRESTClient_ErrorStatus(t *testing.T) {
	client, _ := restServer(t, http.StatusUnauthorized, `{"message":"Invalid API key"}`)

	_, err := client.Select(context.Background(), TableUserAnalysis, Eq{ColUserID, "u1"})
	require.Error(t, err)

	e := apperr.From(err)
	assert.Equal(t, apperr.KindUpstream, e.Kind)
	assert.Contains(t, e.Message, "Supabase API error 401")
	assert.Contains(t, e.Message, "Invalid API key")
}

func TestRESTClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, "k", zap.NewNop())
	client.timeout = 50 * time.Millisecond

	_, err := client.Select(context.Background(), TableUserAnalysis, Eq{ColUserID, "u1"})
	assert.True(t, apperr.Is(err, apperr.KindUpstreamTimeout))
}
