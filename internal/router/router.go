// Package router maps the request's task discriminator to a payload strategy.
package router

import (
	"sort"
	"strings"

	"github.com/activityboards/board-lambdas/internal/payload"
)

// Supported tasks
const (
	TaskAnalysis     = "analysis"
	TaskQueryParser  = "query_parser"
	TaskQuickInsight = "quick_insight"
)

// DefaultTask is selected for an empty or unknown task.
const DefaultTask = TaskAnalysis

var strategies = map[string]payload.Strategy{
	TaskAnalysis:     payload.Analysis,
	TaskQueryParser:  payload.QueryParser,
	TaskQuickInsight: payload.QuickInsight,
}

// Route returns the strategy for task. It is total: every input maps to
// exactly one strategy, and anything unrecognized maps to analysis.
func Route(task string) payload.Strategy {
	if s, ok := strategies[normalize(task)]; ok {
		return s
	}
	return strategies[DefaultTask]
}

// IsKnown reports whether task names a strategy without falling back.
func IsKnown(task string) bool {
	_, ok := strategies[normalize(task)]
	return ok
}

// SupportedTasks returns the task names in sorted order.
func SupportedTasks() []string {
	tasks := make([]string, 0, len(strategies))
	for t := range strategies {
		tasks = append(tasks, t)
	}
	sort.Strings(tasks)
	return tasks
}

func normalize(task string) string {
	return strings.ToLower(strings.TrimSpace(task))
}
