package payload

import (
	"fmt"
	"strings"
	"time"

	"github.com/activityboards/board-lambdas/internal/domain"
)

// Chat defaults, each overridable per request.
const (
	DefaultChatModel       = "deepseek-chat"
	DefaultChatTemperature = 0.7
	DefaultChatMaxTokens   = 1000
)

// ChatOptions are the caller-supplied sampling overrides. Zero values mean default.
type ChatOptions struct {
	Model       string
	Temperature *float32
	MaxTokens   int
}

// Chat answers a question about the user's boards using the boards found by
// similarity search as system context.
func Chat(query string, boards []domain.Board, opts ChatOptions) *Completion {
	msgs := make([]Message, 0, 2)
	if ctx := boardContext(boards); ctx != "" {
		msgs = append(msgs, system(fmt.Sprintf(
			"You are a helpful assistant. Here are the user's relevant boards:\n\n%s\n\nUse this information to answer the user's questions about their boards.",
			ctx)))
	}
	msgs = append(msgs, user(query))

	c := &Completion{
		Messages:    msgs,
		Model:       DefaultChatModel,
		Temperature: DefaultChatTemperature,
		MaxTokens:   DefaultChatMaxTokens,
		Timeout:     20 * time.Second,
	}
	if opts.Model != "" {
		c.Model = opts.Model
	}
	if opts.Temperature != nil {
		c.Temperature = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		c.MaxTokens = opts.MaxTokens
	}
	return c
}

func boardContext(boards []domain.Board) string {
	entries := make([]string, 0, len(boards))
	for i, b := range boards {
		tags := "None"
		if len(b.Tags) > 0 {
			tags = strings.Join(b.Tags, ", ")
		}
		entries = append(entries, fmt.Sprintf("Board %d:\n- Description: %s\n- Date: %s\n- Tags: %s",
			i+1, b.Description, b.Date, tags))
	}
	return strings.Join(entries, "\n")
}
