package payload

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/activityboards/board-lambdas/internal/apperr"
	"github.com/activityboards/board-lambdas/internal/domain"
)

const analysisSystemPrompt = `당신은 열정적인 퍼스널 라이프 코치이자 데이터 스토리텔러입니다.
%s
%s

Respond with a JSON object containing a SINGLE field "analysis":
{
  "analysis": "사용자의 최근 활동을 요약하는 따뜻하고 격려가 담긴 3-5문장의 하나의 완성된 문단 (한국어)."
}

Guidelines:
- **반드시 한국어로 작성하세요.**
- 사용자에게 직접 말하듯이 ("해요체" 사용, 예: "했어요", "좋네요") 친근하게 작성하세요.
- 위에 제공된 **주요 하이라이트(Metrics)**를 자연스럽게 이야기에 포함시키세요. 단순히 나열하지 말고, 이것이 왜 멋진지 설명하세요.
- 활동 보드에서 발견된 패턴을 요약하세요.
- 열정적이고 전문적인 톤을 유지하세요.
- "Fact 1", "Fact 2" 등으로 나누지 말고, 하나의 흐르는 문단으로 작성하세요.

CRITICAL:
- Return ONLY valid JSON.
- The "analysis" field must contain the ENTIRE message string in Korean.
- Do not hallucinate data not present in Boards or Highlights.`

const analysisUserPrompt = `최근 활동 보드 데이터입니다:

%s

데이터를 분석하고 격려의 메시지를 한국어로 작성해주세요.`

// Analysis summarizes the user's recent boards as one encouraging paragraph.
var Analysis = Strategy{
	Name:  "analysis",
	Build: buildAnalysis,
	Shape: shapeAnalysis,
}

func buildAnalysis(req *domain.Request) (*Plan, error) {
	if len(req.Boards) == 0 {
		return nil, apperr.MissingData("No boards data provided")
	}

	return call(&Completion{
		Messages: []Message{
			system(fmt.Sprintf(analysisSystemPrompt, historyBlock(req.History), metricsBlock(req.Metrics))),
			user(fmt.Sprintf(analysisUserPrompt, prettyJSON(req.RawBoards()))),
		},
		MaxTokens:   1024,
		Temperature: 1,
		TopP:        1,
		JSON:        true,
		Timeout:     30 * time.Second,
	}), nil
}

func historyBlock(history string) string {
	if history == "" {
		return ""
	}
	return "\n\n=== 사용자의 장기 기록 (참고용) ===\n" + history +
		"\n\n(이 기록은 장기적인 성장을 이해하는 데 참고하되, 아래의 새로운 활동 보드에 집중해서 피드백을 주세요.)"
}

func metricsBlock(metrics []domain.Metric) string {
	if len(metrics) == 0 {
		return ""
	}
	lines := make([]string, 0, len(metrics))
	for _, m := range metrics {
		lines = append(lines, fmt.Sprintf("- %s: %s", m.Label, m.Value))
	}
	return "\n\n=== 주요 하이라이트 (랜덤 선택됨) ===\n" + strings.Join(lines, "\n") +
		"\n\n(이 수치들을 자연스럽게 이야기에 녹여내어 데이터에 기반한 칭찬을 해주세요.)"
}

// shapeAnalysis never fails: content that is not an object with an
// "analysis" key is passed through as text.
func shapeAnalysis(content string) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		if v, ok := parsed["analysis"]; ok {
			return map[string]any{"analysis": v}, nil
		}
	}
	return map[string]any{"analysis": content}, nil
}
