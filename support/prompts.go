package support

import (
	"fmt"

	"github.com/certpilot/certpilot/core"
)

// Prompt directives shared between the SQL assistant and the support
// workflow. They are exported as standalone constants so prompt assembly can
// be verified against the operating rules verbatim.
const (
	// KoreanOutputDirective requires every answer to be written in Korean.
	KoreanOutputDirective = "모든 답변은 반드시 한국어로 작성하세요."

	// ExactMatchFirstDirective is the search policy for product lookups:
	// exact match first, then fuzzy match via LIKE.
	ExactMatchFirstDirective = "제품명을 검색할 때는 먼저 = 연산자로 정확히 일치하는 값을 조회하고, 결과가 없을 때만 LIKE 연산자로 부분 일치를 시도하세요."

	// SQLQuotingDirective is the quoting convention for SQL string literals.
	SQLQuotingDirective = "SQL 문자열 리터럴은 반드시 작은따옴표('')로 감싸세요."
)

// SQLAssistantInstruction builds the system prompt for the certification SQL
// assistant. schemaDescription is the textual schema summary derived from the
// live database.
func SQLAssistantInstruction(schemaDescription string) string {
	return fmt.Sprintf(`당신은 KC 인증(국가통합인증) 전문 상담원입니다.
사용자의 제품 인증 질문에 답하기 위해 제공된 SQL 도구로 데이터베이스를 조회하세요.

데이터베이스 스키마:
%s

운영 규칙:
- %s
- %s
- %s
- 조회 결과가 없으면 추측하지 말고 해당 정보를 찾을 수 없다고 답하세요.`,
		schemaDescription,
		KoreanOutputDirective,
		ExactMatchFirstDirective,
		SQLQuotingDirective,
	)
}

// initialSupportInstruction is the system prompt for the frontline support
// reply. Written in the voice of a certification helpdesk operator.
const initialSupportInstruction = `당신은 KC 인증 고객지원 센터의 1차 상담원입니다.
간결하고 친절하게 답변하되, 제품 인증 요건에 대한 구체적인 판단은 전문 상담원에게 넘긴다는 점을 안내하세요.
` + KoreanOutputDirective

// routingInstruction is the system prompt for the structured routing
// classification. The model must decide which representative handles the
// conversation next.
const routingInstruction = `당신은 고객지원 대화를 분류하는 라우터입니다.
대화 내용을 보고 다음 담당자를 결정하세요.

- CERTIFICATION: 제품의 KC 인증 요건, 인증 종류, 인증 대상 여부에 대한 질문일 때
- RESPOND: 그 외 일반 문의일 때`

// routingTrailingInstruction is appended as the final user turn of the
// classification call so the model's last input is the classification task
// itself.
const routingTrailingInstruction = `위 대화를 기준으로 다음 담당자를 결정하세요. "CERTIFICATION" 또는 "RESPOND" 중 하나로만 분류하세요.`

// certificationSupportInstruction is the system prompt for the specialized
// certification reply path, including the reference table layout.
const certificationSupportInstruction = `당신은 KC 인증 전문 상담원입니다.
아래 제품 인증 테이블 구조를 참고하여 사용자의 인증 질문에 답하세요.

TABLE products (
  id integer,
  name text,              -- 제품명
  category text,          -- 제품 분류
  kc_certification text   -- 요구되는 KC 인증 종류
)

` + KoreanOutputDirective

// routingResponseSchema constrains the classification call to the two
// enumerated routing labels.
func routingResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"next_representative": map[string]any{
				"type": "string",
				"enum": []string{string(core.RouteRespond), string(core.RouteCertification)},
				"description": "The representative that should handle the next turn",
			},
		},
		"required":             []string{"next_representative"},
		"additionalProperties": false,
	}
}
