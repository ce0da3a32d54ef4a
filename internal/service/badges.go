package service

import (
	"time"

	"github.com/ecojourney/backend/internal/models"
)

const (
	DefaultSaverCapKg     = 5.0
	DefaultAverageDailyKg = 10.0

	foodCategory      = "식품"
	transportCategory = "교통"
	publicTripsNeeded = 3
)

var (
	meatTypes    = map[string]bool{"소고기": true, "쇠고기": true, "돼지고기": true, "닭고기": true}
	transitTypes = map[string]bool{"버스": true, "지하철": true}
)

type rankBand struct {
	factor float64
	badge  models.Badge
}

// Bands are checked in order; the first factor with total <= average*factor
// wins and rank_d catches the rest.
var rankBands = []rankBand{
	{0.5, models.Badge{ID: "rank_s", Name: "🌍 지구 수호자", Description: "평균보다 훨씬 낮은 배출량이에요! 정말 훌륭해요!", Icon: "🌍✨"}},
	{0.7, models.Badge{ID: "rank_a", Name: "🌱 환경 지킴이", Description: "평균보다 낮은 배출량이에요! 잘하고 계세요!", Icon: "🌱"}},
	{1.0, models.Badge{ID: "rank_b", Name: "💚 친환경 실천가", Description: "평균 수준의 배출량이에요. 조금만 더 노력하면 더 좋아질 거예요!", Icon: "💚"}},
	{1.3, models.Badge{ID: "rank_c", Name: "🌿 성장 중", Description: "평균보다 조금 높지만, 조금씩 줄여가면 좋을 거예요!", Icon: "🌿"}},
}

var (
	rankD           = models.Badge{ID: "rank_d", Name: "🌎 개선의 여지", Description: "평균보다 높지만, 작은 변화로도 큰 개선이 가능해요. 함께 노력해봐요!", Icon: "🌎"}
	vegetarianBadge = models.Badge{ID: "vegetarian", Name: "채식주의자", Description: "하루 동안 육류 없이 식사하셨어요!", Icon: "🥬"}
	transitBadge    = models.Badge{ID: "public_transport", Name: "대중교통 애호가", Description: "대중교통을 3회 이상 이용하셨어요!", Icon: "🚇"}
	saverBadge      = models.Badge{ID: "saver", Name: "절약왕", Description: "하루 배출량을 5kgCO₂e 이하로 유지하셨어요!", Icon: "👑"}
)

type BadgeEvaluator struct {
	SaverCapKg float64
	Now        func() time.Time
}

// RankFor returns the rank badge for total against the population average.
// It compares against average*factor so a zero average never divides.
func RankFor(total, average float64) models.Badge {
	for _, band := range rankBands {
		if total <= average*band.factor {
			return band.badge
		}
	}
	return rankD
}

// Evaluate returns exactly one rank badge followed by any earned special
// badges, in a fixed order.
func (e BadgeEvaluator) Evaluate(acts []models.Activity, averageTotal float64) []models.Badge {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	saverCap := e.SaverCapKg
	if saverCap <= 0 {
		saverCap = DefaultSaverCapKg
	}
	if averageTotal <= 0 {
		averageTotal = DefaultAverageDailyKg
	}

	var (
		total        float64
		hasFood      bool
		hasMeat      bool
		transitTrips int
	)
	for _, a := range acts {
		total += a.CarbonKg
		switch a.Category {
		case foodCategory:
			hasFood = true
			if meatTypes[a.ActivityType] {
				hasMeat = true
			}
		case transportCategory:
			if transitTypes[a.ActivityType] {
				transitTrips++
			}
		}
	}

	earned := now()
	stamp := func(b models.Badge) models.Badge {
		b.EarnedDate = earned
		return b
	}

	badges := []models.Badge{stamp(RankFor(total, averageTotal))}
	if hasFood && !hasMeat {
		badges = append(badges, stamp(vegetarianBadge))
	}
	if transitTrips >= publicTripsNeeded {
		badges = append(badges, stamp(transitBadge))
	}
	if total <= saverCap && len(acts) > 0 {
		badges = append(badges, stamp(saverBadge))
	}
	return badges
}
