package planner

import "time"

// DetectAdherence compares scheduled slots with logged workouts.
//
// A slot counts as skipped when it lies before today, is still pending and no workout was logged on its date.
// The adherence rate counts every slot, including future ones, so completing a future slot early earns credit.
func DetectAdherence(schedule []ScheduleSlot, completed []WorkoutRecord, today time.Time) AdherenceReport {
	if len(schedule) == 0 {
		return AdherenceReport{
			Skipped:        []SkippedWorkout{},
			AdherenceRate:  1.0,
			TotalScheduled: 0,
			CompletedCount: 0,
		}
	}

	today = Day(today)
	completedDates := make(map[string]struct{}, len(completed))
	for _, w := range completed {
		completedDates[FormatDate(w.Date)] = struct{}{}
	}

	report := AdherenceReport{
		Skipped:        []SkippedWorkout{},
		TotalScheduled: len(schedule),
	}
	for _, slot := range schedule {
		if slot.Status == SlotCompleted {
			report.CompletedCount++
		}
		date := Day(slot.ScheduledDate)
		if !date.Before(today) || slot.Status != SlotPending {
			continue
		}
		if _, ok := completedDates[FormatDate(date)]; ok {
			continue
		}
		report.Skipped = append(report.Skipped, SkippedWorkout{
			SlotID:      slot.ID,
			Date:        date,
			WorkoutType: slot.WorkoutType,
			DaysAgo:     daysBetween(date, today),
		})
	}
	report.AdherenceRate = roundTo(float64(report.CompletedCount)/float64(report.TotalScheduled), 2) //nolint:mnd // percent precision
	return report
}
