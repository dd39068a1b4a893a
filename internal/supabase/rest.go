package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/metrics"
)

const maxErrorBody = 1024

// RESTClient is a PostgREST client authenticated with the service credential.
type RESTClient struct {
	baseURL    string
	serviceKey string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Store = (*RESTClient)(nil)

// NewRESTClient creates a client for the project at baseURL.
func NewRESTClient(baseURL, serviceKey string, logger *zap.Logger) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Select issues GET /rest/v1/<table>?<col>=eq.<value>&select=<cols>.
func (c *RESTClient) Select(ctx context.Context, table string, where Eq, columns ...string) ([]Row, error) {
	q := url.Values{}
	q.Set(where.Column, "eq."+where.Value)
	if len(columns) > 0 {
		q.Set("select", strings.Join(columns, ","))
	}

	var rows []Row
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+table, q, nil, "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Update issues PATCH and asks for the changed rows back so they can be counted.
func (c *RESTClient) Update(ctx context.Context, table string, where Eq, values Row) (int, error) {
	q := url.Values{}
	q.Set(where.Column, "eq."+where.Value)

	var rows []Row
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/"+table, q, values, "return=representation", &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Insert issues POST /rest/v1/<table>.
func (c *RESTClient) Insert(ctx context.Context, table string, values Row) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/"+table, nil, values, "return=minimal", nil)
}

// MatchBoards calls the match_boards stored procedure.
func (c *RESTClient) MatchBoards(ctx context.Context, p MatchParams) ([]Row, error) {
	body := map[string]any{
		"query_embedding": p.Embedding,
		"query_user_id":   p.UserID,
		"match_threshold": p.Threshold,
		"match_count":     p.Count,
	}

	var rows []Row
	if err := c.do(ctx, http.MethodPost, "/rest/v1/rpc/match_boards", nil, body, "", &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, query url.Values, body any, prefer string, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.ObserveUpstream("supabase", start, err) }()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	c.logger.Debug("Supabase request", zap.String("method", method), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperr.UpstreamTimeout(service, c.timeout)
		}
		return apperr.UpstreamFailed(service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.Upstream(service, resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.UpstreamFailed(service, fmt.Errorf("read response: %w", err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return apperr.UpstreamFailed(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
