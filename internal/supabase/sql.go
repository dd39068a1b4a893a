package supabase

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/metrics"
)

// SQLStore talks to the Supabase Postgres database directly.
type SQLStore struct {
	db      *sql.DB
	timeout time.Duration
	logger  *zap.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, logger *zap.Logger) *SQLStore {
	return &SQLStore{db: db, timeout: DefaultTimeout, logger: logger}
}

// OpenSQLStore opens and pings a Postgres connection.
func OpenSQLStore(ctx context.Context, dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One Lambda instance serves one request at a time.
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}
	return NewSQLStore(db, logger), nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Select(ctx context.Context, table string, where Eq, columns ...string) (rows []Row, err error) {
	ctx, cancel, done := s.begin(ctx)
	defer cancel()
	defer func() { done(err) }()

	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = pq.QuoteIdentifier(c)
		}
		cols = strings.Join(quoted, ", ")
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		cols, pq.QuoteIdentifier(table), pq.QuoteIdentifier(where.Column))

	res, err := s.db.QueryContext(ctx, query, where.Value)
	if err != nil {
		return nil, s.classify(err)
	}
	defer res.Close()

	rows, err = scanRows(res)
	if err != nil {
		return nil, s.classify(err)
	}
	return rows, nil
}

func (s *SQLStore) Update(ctx context.Context, table string, where Eq, values Row) (n int, err error) {
	ctx, cancel, done := s.begin(ctx)
	defer cancel()
	defer func() { done(err) }()

	keys := sortedColumns(values)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(k), i+1)
		args = append(args, encodeValue(values[k]))
	}
	args = append(args, where.Value)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		pq.QuoteIdentifier(table), strings.Join(sets, ", "), pq.QuoteIdentifier(where.Column), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, s.classify(err)
	}
	return int(affected), nil
}

func (s *SQLStore) Insert(ctx context.Context, table string, values Row) (err error) {
	ctx, cancel, done := s.begin(ctx)
	defer cancel()
	defer func() { done(err) }()

	keys := sortedColumns(values)
	cols := make([]string, len(keys))
	params := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = pq.QuoteIdentifier(k)
		params[i] = "$" + strconv.Itoa(i+1)
		args[i] = encodeValue(values[k])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(cols, ", "), strings.Join(params, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return s.classify(err)
	}
	return nil
}

func (s *SQLStore) MatchBoards(ctx context.Context, p MatchParams) (rows []Row, err error) {
	ctx, cancel, done := s.begin(ctx)
	defer cancel()
	defer func() { done(err) }()

	const query = `SELECT * FROM match_boards(
		query_embedding => $1::vector,
		query_user_id => $2,
		match_threshold => $3,
		match_count => $4)`

	res, err := s.db.QueryContext(ctx, query, VectorLiteral(p.Embedding), p.UserID, p.Threshold, p.Count)
	if err != nil {
		return nil, s.classify(err)
	}
	defer res.Close()

	rows, err = scanRows(res)
	if err != nil {
		return nil, s.classify(err)
	}
	return rows, nil
}

func (s *SQLStore) begin(ctx context.Context) (context.Context, context.CancelFunc, func(error)) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	return ctx, cancel, func(err error) { metrics.ObserveUpstream("postgres", start, err) }
}

func (s *SQLStore) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.UpstreamTimeout(service, s.timeout)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		s.logger.Error("Postgres error",
			zap.String("code", string(pqErr.Code)),
			zap.String("message", pqErr.Message))
	}
	return apperr.UpstreamFailed(service, err)
}

// scanRows reads every row into a column-keyed map. Text values arrive as
// []byte and become strings; text[] columns become []string and json/jsonb
// columns are decoded the way PostgREST returns them.
func scanRows(res *sql.Rows) ([]Row, error) {
	types, err := res.ColumnTypes()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for res.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := res.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(types))
		for i, ct := range types {
			row[ct.Name()] = decodeValue(ct.DatabaseTypeName(), vals[i])
		}
		out = append(out, row)
	}
	return out, res.Err()
}

func decodeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch dbType {
	case "_TEXT", "_VARCHAR":
		var arr pq.StringArray
		if err := arr.Scan(b); err == nil {
			return []string(arr)
		}
	case "JSON", "JSONB":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var out any
		if err := dec.Decode(&out); err == nil {
			return out
		}
	}
	return string(b)
}

// encodeValue converts Go values to parameters lib/pq understands.
func encodeValue(v any) any {
	switch t := v.(type) {
	case []float64:
		return VectorLiteral(t)
	case []string:
		return pq.Array(t)
	}
	return v
}

// VectorLiteral renders an embedding in pgvector's text form: [0.1,0.2].
func VectorLiteral(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func sortedColumns(values Row) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
