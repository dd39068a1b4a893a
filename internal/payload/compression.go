package payload

import (
	"fmt"
	"time"
)

const compressionSystemPrompt = `당신은 꼼꼼한 전기 작가이자 데이터 기록관입니다.
당신의 임무는 사용자의 활동 보드를 기반으로 "압축된 인생 기록"을 유지하는 것입니다.

제공되는 데이터:
1. 현재의 압축 기록 (과거의 요약).
2. 새로운 활동 보드 묶음 (최근 사건들).

목표:
새로운 사건들을 기존 서사에 자연스럽게 통합하여 업데이트된 압축 기록을 작성하세요.

규칙:
- **반드시 한국어로 작성하세요.**
- 기존 기록의 중요한 장기적 사실을 보존하세요.
- 새로운 보드의 세부 정보를 서사에 요약하여 추가하세요.
- 시간 순서에 따른 흐름을 유지하세요.
- 전문적이지만 개인적인 어조를 유지하세요.
- 주요 이정표나 성과를 누락하지 마세요.
`

const compressionUserPrompt = `
=== CURRENT COMPRESSED HISTORY ===
%s

=== NEW BATCH OF BOARDS ===
%s

=== INSTRUCTION ===
업데이트된 압축 기록을 지금 생성하세요. 오직 기록의 텍스트만 반환하세요.
`

const emptyHistory = "(Empty - This is the start of the archive)"

// Compression folds one batch of boards into the running compressed history.
func Compression(history string, batch []map[string]any) *Completion {
	if history == "" {
		history = emptyHistory
	}
	return &Completion{
		Messages: []Message{
			system(compressionSystemPrompt),
			user(fmt.Sprintf(compressionUserPrompt, history, prettyJSON(batch))),
		},
		MaxTokens:   4000,
		Temperature: 0.5,
		Timeout:     60 * time.Second,
	}
}
