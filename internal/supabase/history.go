package supabase

import (
	"context"
	"fmt"

	"github.com/activityboards/board-lambdas/internal/domain"
)

// LoadCompressedHistory returns the user's current compressed history, or ""
// when none exists yet.
func LoadCompressedHistory(ctx context.Context, s Store, userID string) (string, error) {
	rows, err := s.Select(ctx, TableUserAnalysis, Eq{ColUserID, userID}, ColCompressedData)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return domain.Text(rows[0][ColCompressedData]), nil
}

// SaveCompressedHistory stores summary for the user and resets the
// uncompressed counter. It updates the existing row and inserts one when
// nothing was updated.
func SaveCompressedHistory(ctx context.Context, s Store, userID, summary string) (inserted bool, err error) {
	values := Row{
		ColCompressedData: summary,
		ColSinceLast:      UncompressedWindow,
	}

	n, err := s.Update(ctx, TableUserAnalysis, Eq{ColUserID, userID}, values)
	if err != nil {
		return false, fmt.Errorf("update compressed history: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	values[ColUserID] = userID
	if err := s.Insert(ctx, TableUserAnalysis, values); err != nil {
		return false, fmt.Errorf("insert compressed history: %w", err)
	}
	return true, nil
}

// SaveBoardVector stores a board's embedding and returns how many rows matched.
func SaveBoardVector(ctx context.Context, s Store, boardID string, vector []float64) (int, error) {
	n, err := s.Update(ctx, TableBoard, Eq{ColBoardID, boardID}, Row{ColVector: vector})
	if err != nil {
		return 0, fmt.Errorf("update board vector: %w", err)
	}
	return n, nil
}
