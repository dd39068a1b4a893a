package chunker

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{
			name:     "empty string",
			text:     "",
			expected: 0,
		},
		{
			name:     "short text",
			text:     "Hi",
			expected: 1, // 2/4 = 0, min 1
		},
		{
			name:     "typical description",
			text:     "Ran 5km along the river",
			expected: 5, // 23/4
		},
		{
			name:     "korean counts bytes",
			text:     "운동",
			expected: 1, // 6 bytes
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EstimateTokens(tt.text)
			if result != tt.expected {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, result, tt.expected)
			}
		})
	}
}

func TestChunk_Texts(t *testing.T) {
	tests := []struct {
		name           string
		texts          []string
		maxTokens      int
		expectedChunks int
	}{
		{
			name:           "empty input",
			texts:          []string{},
			maxTokens:      100,
			expectedChunks: 0,
		},
		{
			name:           "nil input",
			texts:          nil,
			maxTokens:      100,
			expectedChunks: 0,
		},
		{
			name:           "multiple texts fit in one chunk",
			texts:          []string{"Hello", "World", "Test"},
			maxTokens:      100,
			expectedChunks: 1,
		},
		{
			name: "texts split into multiple chunks",
			texts: []string{
				strings.Repeat("a", 40), // 10 tokens
				strings.Repeat("b", 40),
				strings.Repeat("c", 40),
			},
			maxTokens:      15,
			expectedChunks: 3,
		},
		{
			name: "oversized text gets own chunk",
			texts: []string{
				"small",
				strings.Repeat("x", 200), // 50 tokens
				"another",
			},
			maxTokens:      20,
			expectedChunks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(tt.texts, EstimateTokens, tt.maxTokens)

			if len(chunks) != tt.expectedChunks {
				t.Errorf("Chunk() returned %d chunks, want %d", len(chunks), tt.expectedChunks)
			}

			var all []string
			for _, chunk := range chunks {
				all = append(all, chunk...)
			}
			if len(all) != len(tt.texts) {
				t.Fatalf("Chunk() lost texts: got %d, want %d", len(all), len(tt.texts))
			}
			for i, text := range tt.texts {
				if all[i] != text {
					t.Errorf("Chunk() text[%d] = %q, want %q", i, all[i], text)
				}
			}
		})
	}
}

func board(desc string) map[string]any {
	return map[string]any{"description": desc, "tags": []any{"t"}}
}

func TestChunkBoards(t *testing.T) {
	boards := []map[string]any{
		board(strings.Repeat("a", 400)),
		board(strings.Repeat("b", 400)),
		board(strings.Repeat("c", 400)),
	}

	// Each board encodes to a little over 100 tokens.
	if got := len(ChunkBoards(boards, 0)); got != 1 {
		t.Errorf("ChunkBoards with default limit returned %d batches, want 1", got)
	}
	if got := len(ChunkBoards(boards, 250)); got != 2 {
		t.Errorf("ChunkBoards(250) returned %d batches, want 2", got)
	}
	if got := len(ChunkBoards(boards, 50)); got != 3 {
		t.Errorf("ChunkBoards(50) returned %d batches, want 3", got)
	}

	batches := ChunkBoards(boards, 250)
	if batches[1][0]["description"] != strings.Repeat("c", 400) {
		t.Errorf("ChunkBoards did not preserve order")
	}
}

func TestBoardTokens(t *testing.T) {
	// {"description":"abcd","tags":["t"]} is 35 bytes
	if got := BoardTokens(board("abcd")); got != 8 {
		t.Errorf("BoardTokens() = %d, want 8", got)
	}
	if got := BoardTokens(map[string]any{"bad": make(chan int)}); got != 1 {
		t.Errorf("BoardTokens(unencodable) = %d, want 1", got)
	}
}
