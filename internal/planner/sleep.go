package planner

import (
	"math"
	"sort"
)

const (
	sleepWindow          = 7
	shortSleepHours      = 6.0
	longSleepHours       = 10.0
	shortLatestPenalty   = 0.8
	lowSleepScoreCutoff  = 0.6
	goodSleepScoreCutoff = 0.8

	noSleepDataRecommendation = "No sleep data available"
	restRecommendation        = "Consider reducing workout intensity today. Prioritize rest and recovery."
	moderateRecommendation    = "Moderate intensity workout recommended. Ensure adequate hydration."
	proceedRecommendation     = "Good sleep quality. You can proceed with planned workout intensity."
)

// SleepAnalyzer maps nightly sleep durations to a quality score. The band is the optimal range in hours.
type SleepAnalyzer struct {
	MinSleepHours float64
	MaxSleepHours float64
}

// DefaultSleepAnalyzer uses the 7-9 hour band.
func DefaultSleepAnalyzer() SleepAnalyzer {
	return SleepAnalyzer{MinSleepHours: 7.0, MaxSleepHours: 9.0} //nolint:mnd // recommended adult sleep band
}

// Analyze scores the last seven samples, ordered oldest first.
func (a SleepAnalyzer) Analyze(samples []float64) SleepQuality {
	if len(samples) == 0 {
		return SleepQuality{
			Quality:        SleepUnknown,
			Score:          0.5, //nolint:mnd // neutral
			Recommendation: noSleepDataRecommendation,
		}
	}
	if len(samples) > sleepWindow {
		samples = samples[len(samples)-sleepWindow:]
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	avg := sum / float64(len(samples))
	latest := samples[len(samples)-1]

	var (
		score   float64
		quality SleepQualityLevel
	)
	switch {
	case avg >= a.MinSleepHours && avg <= a.MaxSleepHours:
		score, quality = 1.0, SleepExcellent
	case avg >= shortSleepHours && avg < a.MinSleepHours:
		score, quality = 0.7, SleepModerate //nolint:mnd // slightly short
	case avg > a.MaxSleepHours && avg <= longSleepHours:
		score, quality = 0.8, SleepGood //nolint:mnd // slightly long
	case avg < shortSleepHours:
		score, quality = 0.3, SleepPoor //nolint:mnd // chronically short
	default:
		score, quality = 0.5, SleepIrregular //nolint:mnd // oversleeping
	}

	// A short last night overrides the label but only scales the score.
	if latest < shortSleepHours {
		score *= shortLatestPenalty
		quality = SleepPoor
	}

	return SleepQuality{
		Quality:        quality,
		Score:          clamp01(score),
		AvgSleep:       roundTo(avg, 1),
		LatestSleep:    roundTo(latest, 1),
		HasData:        true,
		Recommendation: sleepRecommendation(score),
	}
}

func sleepRecommendation(score float64) string {
	switch {
	case score < lowSleepScoreCutoff:
		return restRecommendation
	case score < goodSleepScoreCutoff:
		return moderateRecommendation
	default:
		return proceedRecommendation
	}
}

// IsPoor reports whether the score warrants reducing training intensity.
func (q SleepQuality) IsPoor() bool {
	return q.Score < lowSleepScoreCutoff
}

// SleepHoursFromSamples returns sleep durations ordered by RecordedAt ascending, skipping samples without sleep.
func SleepHoursFromSamples(samples []WearableSample) []float64 {
	sorted := make([]WearableSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})
	hours := make([]float64, 0, len(sorted))
	for _, s := range sorted {
		if s.SleepHours > 0 {
			hours = append(hours, s.SleepHours)
		}
	}
	return hours
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

func roundTo(f float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals)) //nolint:mnd // base ten
	return math.Round(f*pow) / pow
}
