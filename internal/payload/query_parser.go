package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/domain"
)

const queryParserPrompt = `You are a precise query parser. Your job is to extract search filters from the user's natural language query (which may be in Korean or English).
Current Date: %s

Return a JSON object with these fields:
{
  "startDate": "YYYY-MM-DD" or null,
  "endDate": "YYYY-MM-DD" or null,
  "tags": ["tag1", "tag2"] (empty array if none),
  "keywords": ["word1", "word2"] (empty array if none),
  "daysOfWeek": [0, 1, ...] (integers 0=Sun to 6=Sat, empty if none),
  "hasImage": boolean or null (true/false if explicitly requested, else null),
  "sort": "newest" | "oldest" | "random" | null,
  "limit": integer or null
}

Rules:
1. Handle date ranges: "1월 1일부터 2월 1일까지" -> startDate: "2024-01-01", endDate: "2024-02-01".
2. Handle relative dates: "지난주", "저번주" -> calculate range. "어제" -> specific date.
3. Handle tags: "운동 태그", "#운동" -> tags: ["운동"].
4. Handle specific text: "코딩 관련 보드" -> keywords: ["코딩"].
5. Days: "월요일에 뭐했지?" -> daysOfWeek: [1]. "주말" -> [0, 6].
6. Images: "사진 보여줘" -> hasImage: true.
7. Sort/Limit: "최근 5개" -> sort: "newest", limit: 5. "랜덤 2개" -> sort: "random", limit: 2.
8. If the user asks for "summary", "analysis", "요약", "분석" without specific constraints, return null for all fields.
9. Return format must be valid JSON.`

// filterSchema describes the filter record. Every field is optional and
// nullable; unknown fields are tolerated.
const filterSchema = `{
  "type": "object",
  "properties": {
    "startDate":  {"type": ["string", "null"]},
    "endDate":    {"type": ["string", "null"]},
    "tags":       {"type": ["array", "null"], "items": {"type": "string"}},
    "keywords":   {"type": ["array", "null"], "items": {"type": "string"}},
    "daysOfWeek": {"type": ["array", "null"], "items": {"type": "integer", "minimum": 0, "maximum": 6}},
    "hasImage":   {"type": ["boolean", "null"]},
    "sort":       {"enum": ["newest", "oldest", "random", null]},
    "limit":      {"type": ["integer", "null"]}
  }
}`

var loadFilterSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(filterSchema))
})

// now is replaced in tests.
var now = time.Now

// QueryParser extracts a structured search filter from a natural-language query.
var QueryParser = Strategy{
	Name:     "query_parser",
	Build:    buildQueryParser,
	Shape:    shapeQueryParser,
	Validate: FilterViolations,
}

func buildQueryParser(req *domain.Request) (*Plan, error) {
	currentDate := req.CurrentDate
	if currentDate == "" {
		currentDate = now().Format(time.DateOnly)
	}

	return call(&Completion{
		Messages: []Message{
			system(fmt.Sprintf(queryParserPrompt, currentDate)),
			user(req.Query),
		},
		Temperature: 0.1,
		JSON:        true,
		Timeout:     30 * time.Second,
	}), nil
}

func shapeQueryParser(content string) (map[string]any, error) {
	filters, err := ParseFilters(content)
	if err != nil {
		return nil, err
	}
	return map[string]any{"filters": filters}, nil
}

// ParseFilters decodes model output into a filter record. Only content that
// is not a JSON object is rejected; schema problems are left to
// FilterViolations.
func ParseFilters(content string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.UseNumber()

	var filters map[string]any
	if err := dec.Decode(&filters); err != nil {
		return nil, apperr.ParseFailure("Failed to parse filters", err)
	}
	if filters == nil {
		return nil, apperr.ParseFailure("Failed to parse filters", errors.New("filters must be a JSON object"))
	}
	return filters, nil
}

// FilterViolations checks content against the filter schema and returns one
// description per violation.
func FilterViolations(content string) []string {
	schema, err := loadFilterSchema()
	if err != nil {
		return []string{fmt.Sprintf("filter schema: %v", err)}
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return []string{err.Error()}
	}

	var out []string
	for _, desc := range result.Errors() {
		out = append(out, desc.String())
	}
	return out
}
