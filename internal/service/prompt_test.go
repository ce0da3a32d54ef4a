package service

import (
	"strings"
	"testing"

	"github.com/ecojourney/backend/internal/models"
	"github.com/ecojourney/backend/internal/rules"
)

func testRule(t *testing.T) rules.KnowledgeRule {
	t.Helper()
	rule, err := rules.Parse([]byte("system_instruction: 코치입니다\ncoaching_principles:\n  - 첫째 원칙\n  - 둘째 원칙\njson_schema: '{\"report_title\": \"string\"}'\n"))
	if err != nil {
		t.Fatalf("parse rule: %v", err)
	}
	return rule
}

func TestCompileOrdersSections(t *testing.T) {
	c := PromptCompiler{Rule: testRule(t)}
	profile := models.CarbonProfile{
		Categories: []models.CategoryAmount{{Category: "교통", KgCO2e: 1.25}, {Category: "식품", KgCO2e: 0.8}},
		Total:      2.05,
	}
	prompt := c.Compile(profile)

	order := []string{
		"코치입니다",
		"- 첫째 원칙\n- 둘째 원칙",
		"- 교통: 1.25 kg CO2e\n- 식품: 0.80 kg CO2e",
		"총 탄소 배출량: 2.05 kg CO2e",
		"{\n  \"report_title\": \"string\"\n}",
		"- 한국어로만 답변합니다.",
	}
	last := -1
	for _, part := range order {
		idx := strings.Index(prompt, part)
		if idx < 0 {
			t.Fatalf("prompt is missing %q:\n%s", part, prompt)
		}
		if idx <= last {
			t.Fatalf("section %q is out of order", part)
		}
		last = idx
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	c := PromptCompiler{Rule: testRule(t), Language: "English"}
	profile := models.CarbonProfile{Categories: []models.CategoryAmount{{Category: "전기", KgCO2e: 0.45}}, Total: 0.45}
	first := c.Compile(profile)
	if first != c.Compile(profile) {
		t.Fatalf("expected identical prompts for identical input")
	}
	if !strings.Contains(first, "- English로만 답변합니다.") {
		t.Fatalf("expected configured language in closing block")
	}
}

func TestCompileEmptyCategoriesUsesPlaceholder(t *testing.T) {
	prompt := PromptCompiler{Rule: testRule(t)}.Compile(models.CarbonProfile{})
	if !strings.Contains(prompt, noCategoryPlaceholder) {
		t.Fatalf("expected placeholder line, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "총 탄소 배출량: 0.00 kg CO2e") {
		t.Fatalf("expected zero total line")
	}
}
