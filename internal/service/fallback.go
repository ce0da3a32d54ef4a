package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ecojourney/backend/internal/models"
)

const insufficientDataFocus = "기록 시작하기"

// Synthesize builds a report from the profile alone. It has the same shape as
// a model answer and never fails.
func Synthesize(profile models.CarbonProfile) models.CoachingReport {
	if !profile.HasPositive() {
		return insufficientDataReport()
	}

	top := profile.Categories[0]
	for _, c := range profile.Categories[1:] {
		if c.KgCO2e > top.KgCO2e {
			top = c
		}
	}
	sum := profile.CategorySum()
	if sum == 0 {
		sum = 1.0
	}
	share := top.KgCO2e / sum * 100

	var second string
	if len(profile.Categories) >= 2 {
		sorted := make([]models.CategoryAmount, len(profile.Categories))
		copy(sorted, profile.Categories)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].KgCO2e > sorted[j].KgCO2e })
		second = sorted[1].Category
	}

	total := profile.Total
	ratioText := fmt.Sprintf("거의 대부분이 '%s'에서 발생했어요.", top.Category)
	summaryText := fmt.Sprintf("오늘은 '%s' 한 영역에 배출이 몰린 패턴이에요.", top.Category)
	chartText := fmt.Sprintf("'%s'가 다른 카테고리보다 높게 나타나요.", top.Category)
	if second != "" {
		ratioText = fmt.Sprintf("%.0f%%가 '%s'에서 발생했고, 그다음은 '%s'입니다.", share, top.Category, second)
		summaryText = fmt.Sprintf("오늘 총 배출량은 %.2f kg CO2e예요. '%s' 비중이 가장 높고 '%s'가 뒤를 잇습니다.", total, top.Category, second)
		chartText = fmt.Sprintf("그래프에서도 '%s'와 '%s'가 두드러집니다.", top.Category, second)
	}

	return models.CoachingReport{
		ReportTitle: fmt.Sprintf("오늘 하루 탄소 진단 결과 (%.2f kg CO2e)", total),
		TodayResultScreen: models.TodayResult{
			UsageSummaryText:  fmt.Sprintf("오늘 탄소 사용량은 총 %.2f kg CO2e예요.", total),
			CategoryRatioText: ratioText,
			MoneySavingText:   "오늘 패턴만 조금 조정해도 한 달 생활비를 아낄 여지가 있어요.",
			EarthStatusText:   "오늘의 지구 상태는 " + EarthLevel(total),
		},
		FinalReportScreen: models.FinalReport{
			TotalSummaryText:  summaryText,
			CategoryChartText: chartText,
			FocusArea:         top.Category,
			Recommendations: []models.Recommendation{
				{
					Action: fmt.Sprintf("'%s' 사용량 20%% 줄이기", top.Category),
					Detail: fmt.Sprintf("'%s'에서 가장 자주 반복된 행동 하나를 골라 20%%만 줄여보세요.", top.Category),
					Impact: fmt.Sprintf("%.2f kg CO2e 감축 가능", top.KgCO2e*0.2),
					Reason: fmt.Sprintf("'%s'가 오늘 배출의 핵심 요인이기 때문이에요.", top.Category),
				},
				{
					Action: fmt.Sprintf("'%s'를 위한 플랜 B 정해두기", top.Category),
					Detail: "비슷한 상황이 다시 올 때 바로 꺼낼 수 있는 대체 행동을 미리 하나 정해두세요.",
					Impact: "반복될수록 감축 효과가 쌓여요.",
					Reason: "오늘 데이터가 반복되는 패턴의 힌트를 주고 있어요.",
				},
				{
					Action: "소비 전 30초 멈춤",
					Detail: fmt.Sprintf("'%s' 관련 소비를 하기 전, 이 선택이 탄소와 지갑에 어떤 영향을 줄지 30초만 떠올려보세요.", top.Category),
					Impact: "충동적인 소비와 불필요한 배출을 함께 줄일 수 있어요.",
					Reason: "작은 멈춤이 가장 부담 없이 시작할 수 있는 변화예요.",
				},
			},
			PolicyRecommendations: []models.PolicyRecommendation{},
			ClosingMessage:        fmt.Sprintf("추천 중 한 가지만 실천해도 '%s' 개선에 큰 도움이 돼요.", top.Category),
		},
	}
}

// EarthLevel maps a total to the three-step earth status.
func EarthLevel(total float64) string {
	switch {
	case total <= 2:
		return "Level 1 - 아주 상쾌해요 🍃"
	case total <= 5:
		return "Level 2 - 꽤 괜찮은 하루예요 🙂"
	default:
		return "Level 3 - 조금 지친 하루예요 🌏"
	}
}

func insufficientDataReport() models.CoachingReport {
	return models.CoachingReport{
		ReportTitle: "오늘은 기록된 탄소 데이터가 부족해요.",
		TodayResultScreen: models.TodayResult{
			UsageSummaryText:  "탄소 사용량 기록이 거의 없어요.",
			CategoryRatioText: "카테고리 기록이 없으면 비중을 계산할 수 없어요.",
			MoneySavingText:   "기록을 시작하면 절감 지점을 더 정확히 찾을 수 있어요.",
			EarthStatusText:   "내일 한 카테고리만 기록해도 지구 상태를 알려드릴게요.",
		},
		FinalReportScreen: models.FinalReport{
			TotalSummaryText:  "데이터가 부족해서 패턴을 분석하기 어려워요.",
			CategoryChartText: "차트를 그릴 정보가 아직 없어요.",
			FocusArea:         insufficientDataFocus,
			Recommendations: []models.Recommendation{
				{
					Action: "내일 카테고리 하나만 기록하기",
					Detail: "교통이나 식품처럼 한 영역만 숫자로 남겨보세요.",
					Impact: "기록이 쌓이면 정확한 감축 전략을 세울 수 있어요.",
					Reason: "지금은 분석할 수 있는 정보가 없어요.",
				},
			},
			PolicyRecommendations: []models.PolicyRecommendation{},
			ClosingMessage:        "부담 없이 내일 한 카테고리만 기록해봐요.",
		},
	}
}

// MarshalReport serializes a report the same way model answers are
// canonicalized: four-space indent, non-ASCII kept as is.
func MarshalReport(r models.CoachingReport) (string, error) {
	if r.FinalReportScreen.PolicyRecommendations == nil {
		r.FinalReportScreen.PolicyRecommendations = []models.PolicyRecommendation{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
