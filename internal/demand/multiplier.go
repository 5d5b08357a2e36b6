// Package demand implements the generative demand model: a context-driven
// attendance multiplier, a Normal attendance draw clamped to capacity, a
// mean-one lognormal noise factor, and the resulting integer demand.
package demand

import (
	"math"

	"newsvendor-lab/internal/config"
	"newsvendor-lab/internal/domain"
)

// WinPctMultiplier scales attendance linearly around a .500 record.
// At winPct=0.5 it is 1.0, at 1.0 it equals boostAt1, and at 0.0 it mirrors
// to 2-boostAt1. The result never drops below floor.
func WinPctMultiplier(winPct, boostAt1, floor float64) float64 {
	slope := boostAt1 - 1.0
	m := 1.0 + (winPct-0.5)*2.0*slope
	return math.Max(floor, m)
}

// TempMultiplier reduces attendance by TempPenaltyPer10F for every 10 degrees
// away from the ideal temperature, floored at TempMultFloor.
func TempMultiplier(tempF float64, m config.Model) float64 {
	tens := math.Abs(tempF-m.TempIdealF) / 10.0
	return math.Max(m.TempMultFloor, 1.0-m.TempPenaltyPer10F*tens)
}

// AttendanceMultiplier combines promo, playoff, weather, temperature and
// season-record effects into one multiplier on baseline mean attendance.
// Indoor venues skip weather, temperature and record terms entirely.
func AttendanceMultiplier(sc domain.Scenario, m config.Model) float64 {
	mult := 1.0

	if sc.Promo {
		mult *= m.PromoBoost
	}
	if sc.Playoff {
		mult *= m.PlayoffBoost
	}

	if sc.Indoor {
		return mult
	}

	if sc.Rain {
		mult *= m.RainPenalty
	}
	if sc.Snow {
		mult *= m.SnowPenalty
	}

	mult *= TempMultiplier(sc.TempF, m)
	mult *= WinPctMultiplier(sc.TeamWinPct(), m.TeamWinBoostAt1, m.TeamWinMultFloor)
	mult *= WinPctMultiplier(sc.OppWinPct(), m.OppWinBoostAt1, m.OppWinMultFloor)

	return mult
}

// AttendanceParams returns the adjusted mean and the baseline std dev of the
// attendance distribution. The std dev is not scaled by the multiplier.
func AttendanceParams(sc domain.Scenario, m config.Model) (mean, std float64) {
	mu0 := float64(sc.StadiumCapacity) * m.BaseFillRate
	std = math.Max(m.MinStd, mu0*m.AttendanceStdFrac)
	mean = mu0 * AttendanceMultiplier(sc, m)
	return mean, std
}
