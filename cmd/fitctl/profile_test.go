package main

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitplan/internal/planner"
)

func Test_loadSettings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    settings
		wantErr bool
	}{
		{
			name:    "empty file keeps defaults",
			content: "",
			want:    defaultSettings(),
		},
		{
			name:    "partial override",
			content: "[profile]\nweight_kg = 92.5\nactivity_level = \"very active\"\n[sleep]\nmin_hours = 6.5\n",
			want: settings{
				Profile: planner.UserProfile{
					Age:           25,
					WeightKg:      92.5,
					HeightCm:      170,
					Gender:        planner.GenderMale,
					ActivityLevel: planner.ActivityVeryActive,
				},
				Goal:     planner.GoalMaintenance,
				Analyzer: planner.SleepAnalyzer{MinSleepHours: 6.5, MaxSleepHours: 9},
			},
		},
		{
			name:    "template parses",
			content: profileTemplate,
			want:    defaultSettings(),
		},
		{name: "unknown key", content: "[profile]\nshoe_size = 44\n", wantErr: true},
		{name: "unknown activity level", content: "[profile]\nactivity_level = \"extreme\"\n", wantErr: true},
		{name: "inverted sleep band", content: "[sleep]\nmin_hours = 9.0\nmax_hours = 7.0\n", wantErr: true},
		{name: "malformed", content: "[profile\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := loadSettings(writeProfile(t, tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadSettings: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("settings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_loadSettings_missingFile(t *testing.T) {
	t.Parallel()
	got, err := loadSettings(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if diff := cmp.Diff(defaultSettings(), got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}
