package service

import (
	"fmt"
	"strings"

	"github.com/ecojourney/backend/internal/models"
	"github.com/ecojourney/backend/internal/rules"
)

const (
	DefaultLanguage       = "한국어"
	noCategoryPlaceholder = "- 상세 카테고리 데이터 없음"
)

type PromptCompiler struct {
	Rule     rules.KnowledgeRule
	Language string
}

// Compile renders the model instruction for one profile. Same rule, language
// and profile always give the same string.
func (c PromptCompiler) Compile(profile models.CarbonProfile) string {
	lang := strings.TrimSpace(c.Language)
	if lang == "" {
		lang = DefaultLanguage
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.Rule.SystemInstruction()))
	b.WriteString("\n\n[데이터 분석 원칙]\n")
	b.WriteString("아래 원칙을 충실히 따르십시오:\n")
	for _, p := range c.Rule.Principles() {
		fmt.Fprintf(&b, "- %s\n", p)
	}

	b.WriteString("\n[분석 대상 데이터]\n")
	b.WriteString("아래 값은 이미 kg CO2e 단위로 환산된 사용자의 실제 활동 데이터입니다.\n")
	b.WriteString("카테고리별 배출량:\n")
	if len(profile.Categories) == 0 {
		b.WriteString(noCategoryPlaceholder + "\n")
	}
	for _, cat := range profile.Categories {
		fmt.Fprintf(&b, "- %s: %.2f kg CO2e\n", cat.Category, cat.KgCO2e)
	}
	fmt.Fprintf(&b, "총 탄소 배출량: %.2f kg CO2e\n", profile.Total)

	b.WriteString("\n[출력 형식]\n")
	b.WriteString("반드시 아래 JSON 스키마를 따르는 하나의 JSON 객체만 출력하십시오.\n\n")
	b.WriteString("JSON 스키마:\n")
	b.WriteString(c.Rule.Schema())

	b.WriteString("\n\n[추가 지침]\n")
	fmt.Fprintf(&b, "- %s로만 답변합니다.\n", lang)
	b.WriteString("- 설명 문장이나 코드블록 기호(```)를 쓰지 마십시오.\n")
	b.WriteString("- JSON 객체 이외의 어떤 텍스트도 출력하지 마십시오.\n")
	b.WriteString("- 위 데이터에 맞는 구체적인 분석과 행동 제안을 제공합니다.")
	return b.String()
}
