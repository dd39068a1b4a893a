// Package chunker groups boards into batches by estimated token count.
package chunker

import "encoding/json"

// DefaultMaxTokens is the default maximum tokens per batch.
// The compression call allows 4000 output tokens, so input batches stay
// well under the model context.
const DefaultMaxTokens = 6000

// EstimateTokens estimates the token count for a text.
// Uses a simple heuristic: ~4 bytes per token.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len(text) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// Chunk splits items into batches whose summed size does not exceed maxTokens.
// Each item is kept whole; an item larger than maxTokens gets its own batch.
// Order is preserved.
func Chunk[T any](items []T, size func(T) int, maxTokens int) [][]T {
	if len(items) == 0 {
		return nil
	}

	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var chunks [][]T
	var current []T
	currentTokens := 0

	for _, item := range items {
		itemTokens := size(item)

		if itemTokens > maxTokens {
			if len(current) > 0 {
				chunks = append(chunks, current)
				current = nil
				currentTokens = 0
			}
			chunks = append(chunks, []T{item})
			continue
		}

		if currentTokens+itemTokens > maxTokens && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			currentTokens = 0
		}

		current = append(current, item)
		currentTokens += itemTokens
	}

	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// ChunkBoards splits board records into batches by the size of their JSON
// encoding, which is what the model receives.
func ChunkBoards(boards []map[string]any, maxTokens int) [][]map[string]any {
	return Chunk(boards, BoardTokens, maxTokens)
}

// BoardTokens estimates the tokens of one board record.
func BoardTokens(board map[string]any) int {
	b, err := json.Marshal(board)
	if err != nil {
		return 1
	}
	return EstimateTokens(string(b))
}
