package recommend

import (
	"time"

	"github.com/myrjola/fitplan/internal/planner"
	"gonum.org/v1/gonum/stat"
)

// profileFeatures flattens a profile into [age, weight, height, male flag, activity code].
func profileFeatures(p planner.UserProfile) []float64 {
	var male float64
	if p.Gender == planner.GenderMale {
		male = 1
	}
	return []float64{
		float64(p.Age),
		p.WeightKg,
		float64(p.HeightCm),
		male,
		float64(p.ActivityLevel.Code()),
	}
}

// workoutFeatures appends days since the prior workout and the weekday (Monday = 0) to the profile features.
func workoutFeatures(p planner.UserProfile, daysSincePrior int, date time.Time) []float64 {
	return append(profileFeatures(p), float64(daysSincePrior), float64(weekday(date)))
}

func weekday(t time.Time) int {
	const daysPerWeek = 7
	return (int(t.Weekday()) + daysPerWeek - 1) % daysPerWeek
}

// scaler standardizes columns to zero mean and unit variance. Constant columns collapse to zero.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(rows [][]float64) scaler {
	cols := len(rows[0])
	s := scaler{mean: make([]float64, cols), std: make([]float64, cols)}
	column := make([]float64, len(rows))
	for c := range cols {
		for r, row := range rows {
			column[r] = row[c]
		}
		s.mean[c], s.std[c] = stat.MeanStdDev(column, nil)
	}
	return s
}

func (s scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		if s.std[i] == 0 {
			continue
		}
		out[i] = (v - s.mean[i]) / s.std[i]
	}
	return out
}
