// Package event normalizes the heterogeneous Lambda event shapes the board
// functions receive into one flat request mapping.
//
// Supported shapes: API Gateway proxy events (string body, optionally base64),
// function URL events (requestContext.http.method), and direct invocations
// where the request fields sit at the top level of the event.
package event

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/activityboards/board-lambdas/internal/apperr"
)

var errNotObject = errors.New("payload must be a JSON object")

// Event is a normalized invocation.
type Event struct {
	// Method is the HTTP method when the event came through an HTTP front door.
	Method string
	// Headers are the request headers as sent; use Header for lookups.
	Headers map[string]string
	// Authorizer is requestContext.authorizer, nil when absent.
	Authorizer map[string]any
	// Body is the canonical request mapping. Never nil.
	Body map[string]any

	top map[string]any
}

// Parse decodes a raw Lambda event.
func Parse(raw []byte) (*Event, error) {
	top, err := decodeObject(raw)
	if err != nil {
		return nil, apperr.MalformedInput("Invalid event payload", err)
	}
	return FromMap(top)
}

// FromMap normalizes an already decoded event.
func FromMap(top map[string]any) (*Event, error) {
	if top == nil {
		top = map[string]any{}
	}
	ev := &Event{
		Method:     method(top),
		Headers:    headers(top),
		Authorizer: authorizer(top),
		top:        top,
	}

	// Preflight requests carry no usable body.
	if ev.IsPreflight() {
		ev.Body = map[string]any{}
		return ev, nil
	}

	body, hasBody := top["body"]
	_, hasUserID := top["user_id"]
	_, hasDescription := top["description"]

	switch b := body.(type) {
	case string:
		data := []byte(b)
		if truthy(top["isBase64Encoded"]) {
			decoded, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, apperr.MalformedInput("Invalid base64 body", err)
			}
			data = decoded
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, apperr.MalformedInput("No request body provided", nil)
		}
		m, err := decodeObject(data)
		if err != nil {
			return nil, apperr.MalformedInput("Invalid JSON in request body", err)
		}
		ev.Body = m
	default:
		if !hasBody || hasUserID || hasDescription {
			ev.Body = top
		} else if m, ok := body.(map[string]any); ok {
			ev.Body = m
		} else {
			ev.Body = map[string]any{}
		}
	}

	return ev, nil
}

// IsPreflight reports whether this is a CORS preflight request.
func (e *Event) IsPreflight() bool {
	return e.Method == http.MethodOptions
}

// Header returns a header value regardless of the key's case.
func (e *Event) Header(name string) string {
	if v, ok := e.Headers[name]; ok {
		return v
	}
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Field looks a request field up in the body first and at the event's top
// level second. Values that are explicitly null count as absent.
func (e *Event) Field(key string) (any, bool) {
	if v, ok := e.Body[key]; ok && v != nil {
		return v, true
	}
	if v, ok := e.top[key]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// Top returns a field from the raw event top level only.
func (e *Event) Top(key string) any {
	return e.top[key]
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errNotObject
	}
	return m, nil
}

func method(top map[string]any) string {
	if m, ok := top["httpMethod"].(string); ok && m != "" {
		return strings.ToUpper(m)
	}
	rc, _ := top["requestContext"].(map[string]any)
	h, _ := rc["http"].(map[string]any)
	if m, ok := h["method"].(string); ok {
		return strings.ToUpper(m)
	}
	return ""
}

func headers(top map[string]any) map[string]string {
	raw, _ := top["headers"].(map[string]any)
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func authorizer(top map[string]any) map[string]any {
	rc, _ := top["requestContext"].(map[string]any)
	a, _ := rc["authorizer"].(map[string]any)
	return a
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}
