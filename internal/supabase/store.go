// Package supabase is the data store collaborator: point reads, updates and
// inserts keyed by one column, and the match_boards similarity search.
//
// Two implementations exist. RESTClient talks to PostgREST with the service
// credential; SQLStore talks to Postgres directly and is selected when a
// database URL is configured.
package supabase

import (
	"context"
	"time"
)

const service = "Supabase"

// DefaultTimeout bounds every store call.
const DefaultTimeout = 10 * time.Second

// Row is one record as returned by the store.
type Row = map[string]any

// Eq selects rows whose Column equals Value.
type Eq struct {
	Column string
	Value  string
}

// MatchParams are the arguments of the match_boards procedure.
type MatchParams struct {
	Embedding []float64
	UserID    string
	Threshold float64
	Count     int
}

// Store is the narrow interface the handlers consume.
type Store interface {
	Select(ctx context.Context, table string, where Eq, columns ...string) ([]Row, error)
	// Update returns the number of rows changed.
	Update(ctx context.Context, table string, where Eq, values Row) (int, error)
	Insert(ctx context.Context, table string, values Row) error
	MatchBoards(ctx context.Context, p MatchParams) ([]Row, error)
}

// Tables and columns used by the board functions.
const (
	TableUserAnalysis = "user_analysis"
	TableBoard        = "board"

	ColUserID         = "user_id"
	ColBoardID        = "board_id"
	ColCompressedData = "compressed_data"
	ColSinceLast      = "boards_since_last_compression"
	ColVector         = "vector"
)

// UncompressedWindow is how many recent boards stay outside the compressed
// history after a compression run.
const UncompressedWindow = 15
