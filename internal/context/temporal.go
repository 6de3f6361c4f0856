package context

import (
	"time"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
)

const (
	lateNightRiskModifier = 0.10
	rapidPostingModifier  = 0.05
)

// DetectTemporal classifies the message's arrival time (spec §4.9.2):
// whether it falls in the configured late-night window, whether posting
// frequency over the configured window is elevated, and whether it
// landed on a weekend. now and history timestamps are both assumed to
// already be in the caller's local time (timezone is resolved by the
// caller before this is invoked; this package does no IANA lookups of its
// own).
func DetectTemporal(history []models.MessageHistoryItem, now time.Time, cfg config.ContextConfig) models.TemporalResult {
	hour := now.Hour()
	lateNight := inLateNightWindow(hour, cfg.LateNightWindowStart, cfg.LateNightWindowEnd)

	window := time.Duration(cfg.RapidPostingWindowMin * float64(time.Minute))
	count := 0
	for _, item := range history {
		if now.Sub(item.Timestamp) <= window && now.Sub(item.Timestamp) >= 0 {
			count++
		}
	}
	frequency := 0.0
	if cfg.RapidPostingWindowMin > 0 {
		frequency = float64(count) / cfg.RapidPostingWindowMin
	}

	var modifier float64
	if lateNight {
		modifier += lateNightRiskModifier
	}
	if cfg.RapidPostingK > 0 && count >= cfg.RapidPostingK {
		modifier += rapidPostingModifier
	}

	risk := models.TimeOfDayNormal
	if lateNight {
		risk = models.TimeOfDayLateNight
	}

	weekday := now.Weekday()
	isWeekend := weekday == time.Saturday || weekday == time.Sunday

	return models.TemporalResult{
		TimeOfDayRisk:    risk,
		PostingFrequency: frequency,
		RiskModifier:     modifier,
		IsWeekend:        isWeekend,
	}
}

// inLateNightWindow supports windows that wrap past midnight (e.g. 22 to
// 4, spec default).
func inLateNightWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
