// Package identity resolves the caller's user id and access token from a
// normalized event.
package identity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/event"
)

// Identity is the resolved caller.
type Identity struct {
	UserID string
	// AccessToken may be empty: database mutations use the service credential.
	AccessToken string
	// Source names the rule that produced UserID, for logs.
	Source string
}

// HasToken reports whether a user access token was supplied.
func (i Identity) HasToken() bool { return i.AccessToken != "" }

type rule struct {
	source  string
	extract func(*event.Event) string
}

// userIDRules are tried in order; the authorizer always wins over the body.
var userIDRules = []rule{
	{"authorizer.claims.sub", func(ev *event.Event) string { return subFromClaims(ev.Authorizer["claims"]) }},
	{"authorizer.jwt.claims.sub", func(ev *event.Event) string {
		jwt, _ := ev.Authorizer["jwt"].(map[string]any)
		return subFromClaims(jwt["claims"])
	}},
	{"authorizer.principalId", func(ev *event.Event) string { return stringOf(ev.Authorizer["principalId"]) }},
	{"authorizer.user_id", func(ev *event.Event) string { return stringOf(ev.Authorizer["user_id"]) }},
	{"body.user_id", func(ev *event.Event) string { return stringOf(ev.Body["user_id"]) }},
}

var tokenRules = []func(*event.Event) string{
	func(ev *event.Event) string {
		auth := strings.TrimSpace(ev.Header("Authorization"))
		if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
			return strings.TrimSpace(auth[len("bearer "):])
		}
		return ""
	},
	func(ev *event.Event) string { return stringOf(ev.Body["access_token"]) },
}

// Resolve returns the caller identity, or an Unauthorized error when no rule
// yields a user id.
func Resolve(ev *event.Event) (Identity, error) {
	id := Identity{AccessToken: token(ev)}
	for _, r := range userIDRules {
		if v := r.extract(ev); v != "" {
			id.UserID = v
			id.Source = r.source
			return id, nil
		}
	}
	return id, apperr.Unauthorized("Unauthorized - no user_id found")
}

func token(ev *event.Event) string {
	for _, r := range tokenRules {
		if v := r(ev); v != "" {
			return v
		}
	}
	return ""
}

// subFromClaims reads "sub" from a claims value that may arrive as a map or
// as a JSON-encoded string.
func subFromClaims(raw any) string {
	switch c := raw.(type) {
	case map[string]any:
		return stringOf(c["sub"])
	case string:
		var m map[string]any
		if json.Unmarshal([]byte(c), &m) == nil {
			return stringOf(m["sub"])
		}
	}
	return ""
}

func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64, int, int64:
		return fmt.Sprint(s)
	}
	return ""
}
