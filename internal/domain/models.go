// Package domain contains the activity-board types and the normalization
// rules applied to loosely-typed request fields before any prompt is built.
//
// Every rule here is total: absent or oddly-typed input yields a default,
// never an error.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Board is one user-authored activity/journal entry.
type Board struct {
	ID          string
	Description string
	Tags        []string
	Date        string
	CreatedAt   string
	Image       string
	// Raw is the record as received, kept for prompts and diagnostics.
	Raw map[string]any
}

// IsEmpty reports whether the board carries neither text nor tags.
func (b Board) IsEmpty() bool {
	return strings.TrimSpace(b.Description) == "" && len(b.Tags) == 0
}

// BoardFrom normalizes one board record. Non-object input yields an empty board.
func BoardFrom(v any) Board {
	m, _ := v.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return Board{
		ID:          Text(m["board_id"]),
		Description: Text(m["description"]),
		Tags:        NormalizeTags(m["tags"]),
		Date:        Text(m["date"]),
		CreatedAt:   Text(m["created_at"]),
		Image:       Text(m["image"]),
		Raw:         m,
	}
}

// BoardsFrom normalizes a sequence of board records.
func BoardsFrom(v any) []Board {
	items, _ := v.([]any)
	out := make([]Board, 0, len(items))
	for _, item := range items {
		out = append(out, BoardFrom(item))
	}
	return out
}

// NormalizeTags flattens the tag shapes clients send into a list of names:
// tag objects ({"tag_name": ...} or {"name": ...}), plain strings, or a
// single comma-separated string.
func NormalizeTags(v any) []string {
	tags := []string{}
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				tags = append(tags, p)
			}
		}
	case []string:
		tags = append(tags, t...)
	case []any:
		for _, item := range t {
			tags = append(tags, tagName(item))
		}
	}
	return tags
}

func tagName(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return Text(item)
	}
	for _, key := range []string{"tag_name", "name"} {
		if s := Text(m[key]); s != "" {
			return s
		}
	}
	if len(m) == 0 {
		return "Unknown"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Text(m[keys[0]])
}

// Text renders a scalar field as a string; nil becomes "".
func Text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case map[string]any, []any:
		b, _ := json.Marshal(s)
		return string(b)
	}
	return fmt.Sprint(v)
}

// Metric is one highlight figure computed by the client.
type Metric struct {
	Label string
	Value string
}

// MetricsFrom normalizes [{label, value}] records.
func MetricsFrom(v any) []Metric {
	items, _ := v.([]any)
	out := make([]Metric, 0, len(items))
	for _, item := range items {
		m, _ := item.(map[string]any)
		label := Text(m["label"])
		if label == "" {
			label = "Metric"
		}
		value := Text(m["value"])
		if value == "" {
			value = "N/A"
		}
		out = append(out, Metric{Label: label, Value: value})
	}
	return out
}

// Stats are the habit statistics optionally sent with a quick insight.
type Stats struct {
	MostActiveDay string
	CurrentStreak string
	TotalBoards   string
}

// StatsFrom reads {habits: {mostActiveDay, currentStreak}, counts: {totalBoards}}.
// It returns nil when no stats were sent.
func StatsFrom(v any) *Stats {
	m, _ := v.(map[string]any)
	if len(m) == 0 {
		return nil
	}
	habits, _ := m["habits"].(map[string]any)
	counts, _ := m["counts"].(map[string]any)
	return &Stats{
		MostActiveDay: orDefault(Text(habits["mostActiveDay"]), "N/A"),
		CurrentStreak: orDefault(Text(habits["currentStreak"]), "0"),
		TotalBoards:   orDefault(Text(counts["totalBoards"]), "0"),
	}
}

// Action is what the user just did to the target board.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction lowercases the raw value; empty means create.
func ParseAction(v any) Action {
	s := strings.ToLower(strings.TrimSpace(Text(v)))
	if s == "" {
		return ActionCreate
	}
	return Action(s)
}

// Known reports whether the action is one of create, update or delete.
func (a Action) Known() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

// PastTense returns the upper-case verb used in prompts ("CREATED").
func (a Action) PastTense() string {
	switch a {
	case ActionCreate:
		return "CREATED"
	case ActionUpdate:
		return "UPDATED"
	case ActionDelete:
		return "DELETED"
	}
	return "INTERACTED WITH"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
