// Package planner holds the rule-based fitness computations: sleep analysis, adherence detection, schedule
// adjustment, weekly schedule generation and the calorie/workout formulas.
//
// Everything in this package is a pure function over caller-supplied snapshots. Storage lives in
// package tracker and the optional learned model in package recommend.
package planner

import (
	"fmt"
	"strings"
	"time"
)

// Gender as used by the Mifflin-St Jeor formula.
type Gender string

const (
	GenderMale  Gender = "Male"
	GenderOther Gender = "Other"
)

// ParseGender treats anything but "male" (case-insensitive) as [GenderOther].
func ParseGender(s string) Gender {
	if strings.EqualFold(strings.TrimSpace(s), string(GenderMale)) {
		return GenderMale
	}
	return GenderOther
}

// ActivityLevel is one of five ordinal buckets describing habitual exercise frequency.
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// ActivityLevels lists the tiers from least to most active.
func ActivityLevels() []ActivityLevel {
	return []ActivityLevel{ActivitySedentary, ActivityLight, ActivityModerate, ActivityActive, ActivityVeryActive}
}

// ParseActivityLevel accepts any letter case and "very active" with a space.
func ParseActivityLevel(s string) (ActivityLevel, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	for _, level := range ActivityLevels() {
		if string(level) == normalized {
			return level, nil
		}
	}
	return "", fmt.Errorf("unknown activity level %q", s)
}

// Code returns the ordinal 1..5 of the tier, 3 for unknown tiers.
func (a ActivityLevel) Code() int {
	for i, level := range ActivityLevels() {
		if level == a {
			return i + 1
		}
	}
	return 3 //nolint:mnd // moderate
}

// Label is the human readable tier name.
func (a ActivityLevel) Label() string {
	switch a {
	case ActivitySedentary:
		return "Sedentary"
	case ActivityLight:
		return "Light"
	case ActivityModerate:
		return "Moderate"
	case ActivityActive:
		return "Active"
	case ActivityVeryActive:
		return "Very active"
	default:
		return string(a)
	}
}

// UserProfile is immutable within a single computation.
type UserProfile struct {
	Age           int
	WeightKg      float64
	HeightCm      int
	Gender        Gender
	ActivityLevel ActivityLevel
}

// DefaultProfile is used for users that have not filled in their profile yet.
func DefaultProfile() UserProfile {
	return UserProfile{
		Age:           25,  //nolint:mnd // sensible default
		WeightKg:      70,  //nolint:mnd // sensible default
		HeightCm:      170, //nolint:mnd // sensible default
		Gender:        GenderMale,
		ActivityLevel: ActivityModerate,
	}
}

type WorkoutRecord struct {
	Date           time.Time
	WorkoutType    string
	DurationMin    int
	CaloriesBurned int
}

type DietRecord struct {
	Date     time.Time
	MealType string
	Calories int
	ProteinG float64
	CarbsG   float64
	FatsG    float64
}

type WearableSample struct {
	RecordedAt     time.Time
	Steps          int
	HeartRate      int
	SleepHours     float64
	CaloriesBurned int
}

type SlotStatus string

const (
	SlotPending   SlotStatus = "pending"
	SlotCompleted SlotStatus = "completed"
)

// ScheduleSlot is a single scheduled workout occurrence.
type ScheduleSlot struct {
	ID            int
	ScheduledDate time.Time
	WorkoutType   string
	DurationMin   int
	Status        SlotStatus
	Note          string
}

type SleepQualityLevel string

const (
	SleepExcellent SleepQualityLevel = "excellent"
	SleepGood      SleepQualityLevel = "good"
	SleepModerate  SleepQualityLevel = "moderate"
	SleepPoor      SleepQualityLevel = "poor"
	SleepIrregular SleepQualityLevel = "irregular"
	SleepUnknown   SleepQualityLevel = "unknown"
)

// SleepQuality is derived on demand and never persisted.
type SleepQuality struct {
	Quality SleepQualityLevel
	// Score is in [0, 1].
	Score float64
	// AvgSleep and LatestSleep are rounded to one decimal and only meaningful when HasData is true.
	AvgSleep       float64
	LatestSleep    float64
	HasData        bool
	Recommendation string
}

type SkippedWorkout struct {
	SlotID      int
	Date        time.Time
	WorkoutType string
	DaysAgo     int
}

// AdherenceReport invariant: AdherenceRate = CompletedCount / TotalScheduled, or 1 for an empty schedule.
type AdherenceReport struct {
	Skipped        []SkippedWorkout
	AdherenceRate  float64
	TotalScheduled int
	CompletedCount int
}

type AdjustmentType string

const (
	AdjustReduceFrequency AdjustmentType = "reduce_frequency"
	AdjustReduceIntensity AdjustmentType = "reduce_intensity"
	AdjustAddRecovery     AdjustmentType = "add_recovery"
)

// Adjustment is a single fired rule. Recovery adjustments carry RestDay instead of a numeric magnitude.
type Adjustment struct {
	Type      AdjustmentType
	Message   string
	Magnitude float64
	RestDay   bool
}

// RecentActivity summarises the latest logged workout.
type RecentActivity struct {
	DaysSinceLastWorkout int
	LastWorkoutType      string
}

// ScheduleAdjustment is recomputed per request. Schedule is a modified copy of the input slots.
type ScheduleAdjustment struct {
	Adjustments     []Adjustment
	Recommendations []string
	Schedule        []ScheduleSlot
	AdherenceRate   float64
	SleepScore      float64
}

// Fired reports whether an adjustment of type typ fired.
func (a ScheduleAdjustment) Fired(typ AdjustmentType) bool {
	for _, adj := range a.Adjustments {
		if adj.Type == typ {
			return true
		}
	}
	return false
}

// Goal selects the calorie target.
type Goal string

const (
	GoalMaintenance Goal = "maintenance"
	GoalWeightLoss  Goal = "weight_loss"
	GoalWeightGain  Goal = "weight_gain"
)

// Goals lists every supported goal.
func Goals() []Goal {
	return []Goal{GoalMaintenance, GoalWeightLoss, GoalWeightGain}
}

// ParseGoal accepts the snake_case identifiers and their space separated variants.
func ParseGoal(s string) (Goal, error) {
	normalized := Goal(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	for _, g := range Goals() {
		if g == normalized {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown goal %q", s)
}

const dateLayout = time.DateOnly

// Day truncates t to midnight UTC of its calendar date so that dates compare by value.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// daysBetween returns the number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	const hoursPerDay = 24
	return int(Day(b).Sub(Day(a)).Hours() / hoursPerDay)
}
