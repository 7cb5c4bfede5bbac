package planner

import "time"

const (
	daysPerWeek            = 7
	defaultWorkoutDuration = 30
)

type tier struct {
	pool           []string
	frequency      int
	noConsecutive  bool
	recommendation []string
}

// tierFor groups the five activity levels into beginner, intermediate and advanced tiers.
func tierFor(level ActivityLevel) tier {
	switch level {
	case ActivitySedentary, ActivityLight:
		return tier{
			pool:           []string{"Walking", "Yoga", "Cycling"},
			frequency:      3, //nolint:mnd // three sessions a week
			noConsecutive:  true,
			recommendation: []string{"Walking", "Yoga", "Cycling"},
		}
	case ActivityActive, ActivityVeryActive:
		return tier{
			pool:           []string{"Running", "HIIT", "Weightlifting", "Cycling"},
			frequency:      5, //nolint:mnd // five sessions a week
			noConsecutive:  false,
			recommendation: []string{"Running", "HIIT", "Weightlifting"},
		}
	case ActivityModerate:
		fallthrough
	default:
		return tier{
			pool:           []string{"Running", "Cycling", "Swimming", "Weightlifting"},
			frequency:      4, //nolint:mnd // four sessions a week
			noConsecutive:  false,
			recommendation: []string{"Running", "Cycling", "Swimming"},
		}
	}
}

var workoutDurations = map[string]int{ //nolint:gochecknoglobals // lookup table
	"Walking":       30,
	"Yoga":          45,
	"Cycling":       40,
	"Running":       35,
	"Swimming":      40,
	"Weightlifting": 45,
	"HIIT":          30,
}

// WorkoutDuration returns the default session length in minutes for workoutType.
func WorkoutDuration(workoutType string) int {
	if d, ok := workoutDurations[workoutType]; ok {
		return d
	}
	return defaultWorkoutDuration
}

// GenerateWeek lays out a fresh week of pending slots starting today.
//
// Beginner tiers never train on consecutive days, which can leave the week with fewer sessions than the
// tier's frequency.
func GenerateWeek(profile UserProfile, today time.Time) []ScheduleSlot {
	t := tierFor(profile.ActivityLevel)
	today = Day(today)
	slots := make([]ScheduleSlot, 0, t.frequency)

	lastScheduledOffset := -2
	for offset := 0; offset < daysPerWeek && len(slots) < t.frequency; offset++ {
		if t.noConsecutive && offset-lastScheduledOffset < 2 {
			continue
		}
		workoutType := t.pool[len(slots)%len(t.pool)]
		slots = append(slots, ScheduleSlot{
			ScheduledDate: today.AddDate(0, 0, offset),
			WorkoutType:   workoutType,
			DurationMin:   WorkoutDuration(workoutType),
			Status:        SlotPending,
		})
		lastScheduledOffset = offset
	}
	return slots
}
