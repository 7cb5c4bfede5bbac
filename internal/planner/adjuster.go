package planner

import (
	"fmt"
	"time"
)

const (
	lowAdherenceCutoff     = 0.7
	frequencyReduction     = -0.2
	intensityReduction     = -0.3
	intensityPercent       = 70
	minReducedDurationMin  = 15
	RestDayWorkoutType     = "Rest Day"
	IntensityReducedNote   = "Intensity reduced due to poor sleep quality"
	RecoveryDayNote        = "Recovery day recommended"
	fewerWorkoutsAdvice    = "Consider scheduling fewer workouts per week to improve consistency."
	restOrLightAdvice      = "Consider a rest day or light activity (yoga, walking)."
	lowAdherenceMessage    = "Low adherence detected. Reducing workout frequency by 20%."
	recentActivityMessage  = "Recent activity detected. Adding rest day."
	poorSleepMessageFormat = "Poor sleep quality (%s). Reducing workout intensity."
)

// AdjustSchedule fires every matching rule and returns a modified copy of upcoming.
//
// Only slots dated today or later are mutated. When both rules touch tomorrow's slot the rest day wins.
func AdjustSchedule(
	adherence AdherenceReport,
	sleep SleepQuality,
	upcoming []ScheduleSlot,
	recent *RecentActivity,
	today time.Time,
) ScheduleAdjustment {
	today = Day(today)
	result := ScheduleAdjustment{
		Adjustments:     []Adjustment{},
		Recommendations: []string{},
		Schedule:        make([]ScheduleSlot, 0, len(upcoming)),
		AdherenceRate:   adherence.AdherenceRate,
		SleepScore:      sleep.Score,
	}

	if adherence.AdherenceRate < lowAdherenceCutoff {
		result.Adjustments = append(result.Adjustments, Adjustment{
			Type:      AdjustReduceFrequency,
			Message:   lowAdherenceMessage,
			Magnitude: frequencyReduction,
		})
		result.Recommendations = append(result.Recommendations, fewerWorkoutsAdvice)
	}

	poorSleep := sleep.IsPoor()
	if poorSleep {
		result.Adjustments = append(result.Adjustments, Adjustment{
			Type:      AdjustReduceIntensity,
			Message:   fmt.Sprintf(poorSleepMessageFormat, sleep.Quality),
			Magnitude: intensityReduction,
		})
		result.Recommendations = append(result.Recommendations, sleep.Recommendation)
	}

	restDay := recent != nil && recent.DaysSinceLastWorkout < 1
	if restDay {
		result.Adjustments = append(result.Adjustments, Adjustment{
			Type:    AdjustAddRecovery,
			Message: recentActivityMessage,
			RestDay: true,
		})
		result.Recommendations = append(result.Recommendations, restOrLightAdvice)
	}

	tomorrow := today.AddDate(0, 0, 1)
	for _, slot := range upcoming {
		date := Day(slot.ScheduledDate)
		if date.Before(today) {
			result.Schedule = append(result.Schedule, slot)
			continue
		}
		if poorSleep {
			slot = ReduceIntensity(slot)
		}
		if restDay && date.Equal(tomorrow) {
			slot.WorkoutType = RestDayWorkoutType
			slot.DurationMin = 0
			slot.Note = RecoveryDayNote
		}
		result.Schedule = append(result.Schedule, slot)
	}

	return result
}

// ReduceIntensity shortens the slot to 70% of its duration, never below 15 minutes.
func ReduceIntensity(slot ScheduleSlot) ScheduleSlot {
	slot.DurationMin = max(minReducedDurationMin, slot.DurationMin*intensityPercent/100) //nolint:mnd // percent
	slot.Note = IntensityReducedNote
	return slot
}
