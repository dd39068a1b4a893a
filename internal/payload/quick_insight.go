package payload

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/activityboards/board-lambdas/internal/domain"
)

// EmptyDataNotice is returned instead of an insight when the target board
// has neither description nor tags.
const EmptyDataNotice = "⚠️ SYSTEM NOTICE: Data was empty. (Description & Tags missing)"

const (
	maxRelatedBoards = 5
	debugDumpLimit   = 3000
)

const quickInsightSystemPrompt = `You are a witty, observant friend.
Your goal is to PROVE you read the specific details of the user's entry.

[CORE INSTRUCTION]
Don't just say "Good job". Tell them WHY it's interesting or relatable.
If they say "Ate pizza", don't say "Yum". Say "Pepperoni? Or Hawaiian?"
If they say "Fixed bug", don't say "Good". Say "Finally! That bug was annoying."

[CONTEXT AWARENESS]
- Time: %s (Is it late? Early?)
- Status: This entry was just %s.
- %s

[ACTION GUIDES]
- CREATE/UPDATE: React to the content energetically.
- DELETE: "Deleting '%s...'? Changed your mind?" or "Cleaning up history?"

[FORMAT]
- Korean (casual 해요체)
- One short sentence (max 60 chars)
- NO quotes.
- NO generic placeholders like "오늘 하루".

[EXAMPLES]
Entry: { "description": "Running 5km", "tags": ["Health"] }
-> "와 5km... 무릎 괜찮으세요? 대단해요!"

Entry: { "description": "Debugging", "tags": ["Work"] }
-> "버그와의 전쟁... 승리하셨나요?"

Entry: { "description": "", "tags": ["Reading"] }
-> "무슨 책이에요? 저도 추천해주세요!"
`

const quickInsightUserPrompt = `User Action: %s

TARGET DATA (JSON):
%s
%s%s%s

[RAW DEBUG DUMP]
(If target data seems empty, look here!)
%s

(React specifically to the description and tags above.)`

const patternInstructions = `
[PATTERN DETECTION INSTRUCTIONS]
- Compare the TARGET ENTRY to these RELATED PAST ENTRIES
- Notice patterns: frequency, improvements, consistency, time gaps
- Examples of pattern-aware responses:
  ✅ '이번 주만 벌써 3번째네요!' (if similar activity happened 2+ times this week)
  ✅ '2주 만이네요?' (if last similar entry was 2 weeks ago)
  ✅ '무게 늘었네요!' (if workout weight increased)
  ✅ '요즘 자주 하시네요 ㅎㅎ' (if activity is becoming more frequent)
`

var actionDescriptions = map[domain.Action]string{
	domain.ActionCreate: "User just WROTE this new entry.",
	domain.ActionUpdate: "User just EDITED this entry.",
	domain.ActionDelete: "User just DELETED this entry.",
}

// QuickInsight produces a one-line reaction to the board the user just touched.
var QuickInsight = Strategy{
	Name:  "quick_insight",
	Build: buildQuickInsight,
	Shape: shapeQuickInsight,
}

// TargetView is the structured representation of the target sent to the model.
type TargetView struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	DebugInfo   string   `json:"debug_info"`
}

func viewOf(b domain.Board) TargetView {
	desc := strings.TrimSpace(b.Description)
	createdAt := b.CreatedAt
	if createdAt == "" {
		createdAt = "Unknown"
	}
	return TargetView{
		Description: desc,
		Tags:        b.Tags,
		CreatedAt:   createdAt,
		DebugInfo:   fmt.Sprintf("Desc length: %d", len([]rune(desc))),
	}
}

func buildQuickInsight(req *domain.Request) (*Plan, error) {
	target := req.ResolveTarget()
	view := viewOf(target)

	if target.IsEmpty() {
		return &Plan{Immediate: map[string]any{
			"insight":             EmptyDataNotice,
			"debug":               view,
			"raw_received_target": target.Raw,
			"full_body_keys":      sortedKeys(req.Body),
		}}, nil
	}

	date := target.Date
	if date == "" {
		date = "Unknown Date"
	}
	actionDesc := "User interacted with this entry."
	if req.Action.Known() {
		actionDesc = actionDescriptions[req.Action]
	}
	verb := strings.ToUpper(string(req.Action))

	return call(&Completion{
		Messages: []Message{
			system(fmt.Sprintf(quickInsightSystemPrompt,
				date, req.Action.PastTense(), actionDesc, truncateRunes(view.Description, 10))),
			user(fmt.Sprintf(quickInsightUserPrompt,
				verb,
				prettyJSON(view),
				relatedBlock(req.RelatedBoards),
				statsBlock(req.Stats),
				longHistoryBlock(req.History),
				truncateRunes(compactJSON(req.Body), debugDumpLimit))),
		},
		MaxTokens:   150,
		Temperature: 1.1,
		Timeout:     10 * time.Second,
	}), nil
}

func relatedBlock(related []domain.Board) string {
	if len(related) == 0 {
		return ""
	}
	if len(related) > maxRelatedBoards {
		related = related[:maxRelatedBoards]
	}

	var sb strings.Builder
	sb.WriteString("\n\n=== RELATED PAST ENTRIES (Pattern Detection) ===\n")
	sb.WriteString("These are semantically similar entries from the user's history:\n\n")
	for i, rb := range related {
		date := rb.Date
		if date == "" {
			date = "N/A"
		}
		desc := rb.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, date, desc)
		if len(rb.Tags) > 0 {
			fmt.Fprintf(&sb, "   Tags: %s\n", strings.Join(rb.Tags, ", "))
		}
	}
	sb.WriteString(patternInstructions)
	return sb.String()
}

func statsBlock(s *domain.Stats) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("\n\n[User Statistics]\n- Most Active Day: %s\n- Current Streak: %s days\n- Total Records: %s",
		s.MostActiveDay, s.CurrentStreak, s.TotalBoards)
}

func longHistoryBlock(history string) string {
	if history == "" {
		return ""
	}
	return "\n\n[Long-term History]\n" + history
}

// shapeQuickInsight trims the reply and strips the quotes models like to add.
func shapeQuickInsight(content string) (map[string]any, error) {
	insight := strings.TrimSpace(content)
	insight = strings.TrimSpace(strings.Trim(insight, "\"'“”‘’"))
	return map[string]any{"insight": insight}, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
