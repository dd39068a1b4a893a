package domain

import "strings"

// Fields is a source of request fields with the multi-location lookup rule
// already applied (body first, event top level second).
type Fields interface {
	Field(key string) (any, bool)
}

// Request is the normalized inbound request of the analysis family.
type Request struct {
	Task        string
	Boards      []Board
	History     string
	Metrics     []Metric
	Stats       *Stats
	Query       string
	CurrentDate string
	Action      Action

	TargetBoardID string
	TargetBoard   *Board
	RelatedBoards []Board

	// Body is the decoded request body, used for diagnostics only.
	Body map[string]any
}

// DefaultTask is used when no task is given.
const DefaultTask = "analysis"

// NewRequest extracts the canonical request from normalized fields.
func NewRequest(f Fields, body map[string]any) *Request {
	get := func(key string) any {
		v, _ := f.Field(key)
		return v
	}

	req := &Request{
		Task:          strings.TrimSpace(Text(get("task"))),
		Boards:        BoardsFrom(get("boards")),
		History:       strings.TrimSpace(Text(get("history"))),
		Metrics:       MetricsFrom(get("metrics")),
		Stats:         StatsFrom(get("stats")),
		Query:         Text(get("query")),
		CurrentDate:   Text(get("current_date")),
		Action:        ParseAction(get("action")),
		TargetBoardID: Text(get("target_board_id")),
		RelatedBoards: BoardsFrom(get("related_boards")),
		Body:          body,
	}
	if req.Task == "" {
		req.Task = DefaultTask
	}
	if tb, ok := get("target_board").(map[string]any); ok && len(tb) > 0 {
		b := BoardFrom(tb)
		req.TargetBoard = &b
	}
	if req.Body == nil {
		req.Body = map[string]any{}
	}
	return req
}

// RawBoards returns the boards exactly as received.
func (r *Request) RawBoards() []map[string]any {
	out := make([]map[string]any, 0, len(r.Boards))
	for _, b := range r.Boards {
		out = append(out, b.Raw)
	}
	return out
}

// ResolveTarget picks the board a quick insight reacts to: the explicit
// target_board, else the board matching target_board_id, else the first
// board, else an empty board.
func (r *Request) ResolveTarget() Board {
	switch {
	case r.TargetBoard != nil:
		return *r.TargetBoard
	case r.TargetBoardID != "":
		if b := r.findBoard(r.TargetBoardID); b != nil {
			return *b
		}
	}
	if len(r.Boards) > 0 {
		return r.Boards[0]
	}
	return BoardFrom(nil)
}

func (r *Request) findBoard(id string) *Board {
	for i := range r.Boards {
		if r.Boards[i].ID == id {
			return &r.Boards[i]
		}
	}
	return nil
}
