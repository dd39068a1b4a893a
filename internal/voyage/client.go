// Package voyage calls the VoyageAI embedding API.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/metrics"
)

const service = "VoyageAI"

// Models and input types used by the board functions.
const (
	ModelText       = "voyage-3"
	ModelMultimodal = "voyage-multimodal-3"

	InputQuery    = "query"
	InputDocument = "document"
)

// DefaultTimeout bounds every embedding call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error answer is kept in the message.
const maxErrorBody = 1024

// Client is a VoyageAI client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for baseURL (e.g. https://api.voyageai.com/v1).
func NewClient(apiKey, baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed returns one text embedding per input. inputType may be empty.
func (c *Client) Embed(ctx context.Context, model, inputType string, texts ...string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("voyage: no texts provided")
	}

	reqBody := map[string]any{
		"input": texts,
		"model": model,
	}
	if inputType != "" {
		reqBody["input_type"] = inputType
	}

	var parsed embeddingResponse
	if err := c.postJSON(ctx, c.baseURL+"/embeddings", reqBody, &parsed); err != nil {
		return nil, err
	}
	return vectors(parsed, len(texts))
}

// ContentPart is one piece of a multimodal input.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// EmbedMultimodal embeds one input made of text and, when imageURL is set, an image.
func (c *Client) EmbedMultimodal(ctx context.Context, model, text, imageURL string) ([]float64, error) {
	content := []ContentPart{{Type: "text", Text: text}}
	if imageURL != "" {
		content = append(content, ContentPart{Type: "image_url", ImageURL: imageURL})
	}

	reqBody := map[string]any{
		"inputs": []any{map[string]any{"content": content}},
		"model":  model,
	}

	var parsed embeddingResponse
	if err := c.postJSON(ctx, c.baseURL+"/multimodalembeddings", reqBody, &parsed); err != nil {
		return nil, err
	}
	out, err := vectors(parsed, 1)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedQuery embeds a search query for similarity lookup.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	out, err := c.Embed(ctx, ModelText, InputQuery, query)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedDocument embeds a board. The multimodal model is tried first; any
// failure there falls back to the text-only model. The model that produced
// the vector is returned.
func (c *Client) EmbedDocument(ctx context.Context, text, imageURL string) ([]float64, string, error) {
	vec, err := c.EmbedMultimodal(ctx, ModelMultimodal, text, imageURL)
	if err == nil {
		return vec, ModelMultimodal, nil
	}

	c.logger.Warn("Multimodal embedding failed, falling back to text-only",
		zap.Error(err),
		zap.Bool("had_image", imageURL != ""))

	out, err := c.Embed(ctx, ModelText, "", text)
	if err != nil {
		return nil, "", err
	}
	return out[0], ModelText, nil
}

func vectors(parsed embeddingResponse, want int) ([][]float64, error) {
	if len(parsed.Data) < want {
		return nil, apperr.Upstream(service, http.StatusOK,
			fmt.Sprintf("expected %d embeddings, got %d", want, len(parsed.Data)))
	}
	out := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, apperr.Upstream(service, http.StatusOK, "empty embedding")
		}
		out[i] = d.Embedding
	}
	return out, nil
}

// postJSON sends body to url and decodes the JSON answer into out.
func (c *Client) postJSON(ctx context.Context, url string, body any, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.ObserveUpstream("voyage", start, err) }()

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.UpstreamFailed(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
