package planner

import (
	"math"
	"slices"
)

const (
	minWeightLossCalories = 1200
	weightLossDeficit     = 500
	weightGainSurplus     = 400
	defaultMultiplier     = 1.55
	defaultWorkoutType    = "Running"
)

var activityMultipliers = map[ActivityLevel]float64{ //nolint:gochecknoglobals // lookup table
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(p UserProfile) float64 {
	bmr := 10*p.WeightKg + 6.25*float64(p.HeightCm) - 5*float64(p.Age) //nolint:mnd // Mifflin-St Jeor
	if p.Gender == GenderMale {
		return bmr + 5 //nolint:mnd // Mifflin-St Jeor
	}
	return bmr - 161 //nolint:mnd // Mifflin-St Jeor
}

// ActivityMultiplier returns the TDEE factor for level, 1.55 for unknown levels.
func ActivityMultiplier(level ActivityLevel) float64 {
	if m, ok := activityMultipliers[level]; ok {
		return m
	}
	return defaultMultiplier
}

// MaintenanceCalories is the rounded total daily energy expenditure.
func MaintenanceCalories(p UserProfile) int {
	return int(math.Round(BMR(p) * ActivityMultiplier(p.ActivityLevel)))
}

// CaloriesForGoal applies the goal delta to a maintenance estimate.
func CaloriesForGoal(maintenance int, goal Goal) int {
	switch goal {
	case GoalWeightLoss:
		return max(minWeightLossCalories, maintenance-weightLossDeficit)
	case GoalWeightGain:
		return maintenance + weightGainSurplus
	case GoalMaintenance:
		return maintenance
	default:
		return maintenance
	}
}

// RecommendCalories returns the daily calorie target for goal.
func RecommendCalories(p UserProfile, goal Goal) int {
	return CaloriesForGoal(MaintenanceCalories(p), goal)
}

// RecommendWorkout picks the first workout of the tier's pool that differs from the last logged one.
func RecommendWorkout(p UserProfile, recent *RecentActivity) string {
	pool := slices.Clone(tierFor(p.ActivityLevel).recommendation)
	if recent != nil && recent.LastWorkoutType != "" {
		pool = slices.DeleteFunc(pool, func(w string) bool { return w == recent.LastWorkoutType })
	}
	if len(pool) == 0 {
		return defaultWorkoutType
	}
	return pool[0]
}
