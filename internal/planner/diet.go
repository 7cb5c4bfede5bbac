package planner

import "math"

const (
	poorSleepCalorieFactor = 0.95
	highActivitySteps      = 10000
	lowActivitySteps       = 5000
	PoorSleepCaloriesNote  = "Calories reduced by 5% due to poor sleep quality"
)

// DietPlan is the daily intake target derived from profile, sleep and wearable activity.
type DietPlan struct {
	MaintenanceCalories int
	ProteinGPerKg       float64
	ProteinG            float64
	AvgSteps            int
	Note                string
}

// AdjustDiet lowers calories by 5% after poor sleep and scales protein with the average daily steps.
func AdjustDiet(p UserProfile, sleep SleepQuality, wearables []WearableSample) DietPlan {
	plan := DietPlan{MaintenanceCalories: MaintenanceCalories(p)}
	if sleep.IsPoor() {
		plan.MaintenanceCalories = int(float64(plan.MaintenanceCalories) * poorSleepCalorieFactor)
		plan.Note = PoorSleepCaloriesNote
	}

	if len(wearables) > 0 {
		var total int
		for _, w := range wearables {
			total += w.Steps
		}
		plan.AvgSteps = int(math.Round(float64(total) / float64(len(wearables))))
	}

	switch {
	case plan.AvgSteps > highActivitySteps:
		plan.ProteinGPerKg = 2.0
	case plan.AvgSteps < lowActivitySteps:
		plan.ProteinGPerKg = 1.6
	default:
		plan.ProteinGPerKg = 1.8
	}
	plan.ProteinG = roundTo(plan.ProteinGPerKg*p.WeightKg, 1)
	return plan
}
