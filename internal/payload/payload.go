// Package payload turns a normalized request into an upstream completion
// request and turns the completion text back into a response body.
//
// Each task is one Strategy: Build is a pure function of the request, and
// Shape is a pure function of the first choice's content.
package payload

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/activityboards/board-lambdas/internal/domain"
)

// Role of an upstream chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one entry of the upstream message list.
type Message struct {
	Role    Role
	Content string
}

// Completion is everything the completion collaborator needs for one call.
type Completion struct {
	Messages []Message
	// Model overrides the configured model when set.
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
	// JSON requests a JSON-object response format.
	JSON    bool
	Timeout time.Duration
}

// Plan is the result of Build: either a completion to run, or a response
// that is returned as-is without any upstream call.
type Plan struct {
	Completion *Completion
	Immediate  map[string]any
}

// Strategy builds and shapes one task.
type Strategy struct {
	Name  string
	Build func(req *domain.Request) (*Plan, error)
	Shape func(content string) (map[string]any, error)
	// Validate is optional. It reports problems with content that do not
	// prevent shaping.
	Validate func(content string) []string
}

func call(c *Completion) *Plan { return &Plan{Completion: c} }

func system(content string) Message { return Message{Role: RoleSystem, Content: content} }

func user(content string) Message { return Message{Role: RoleUser, Content: content} }

// prettyJSON renders v with two-space indentation and without HTML escaping,
// so Korean text and symbols reach the model unchanged.
func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
