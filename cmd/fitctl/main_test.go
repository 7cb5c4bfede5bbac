package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

// execute runs fitctl with args and returns stdout split into whitespace separated fields per line.
func execute(t *testing.T, args ...string) ([][]string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(testhelpers.NewWriter(t))
	err := cmd.ExecuteContext(t.Context())

	var lines [][]string
	for line := range strings.Lines(out.String()) {
		if fields := strings.Fields(line); len(fields) > 0 {
			lines = append(lines, fields)
		}
	}
	return lines, err
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

const activeProfile = `
[profile]
age = 30
weight_kg = 80.0
height_cm = 180
gender = "Other"
activity_level = "active"
goal = "weight_loss"
`

func TestCommands(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "missing.toml")
	active := writeProfile(t, activeProfile)
	sedentary := writeProfile(t, "[profile]\nactivity_level = \"Sedentary\"\n")

	tests := []struct {
		name string
		args []string
		want [][]string
	}{
		{
			name: "calories with defaults",
			args: []string{"calories", "--profile", missing},
			want: [][]string{
				{"BMR", "1642.5", "kcal"},
				{"maintenance", "2546", "kcal"},
				{"maintenance", "2546", "kcal"},
			},
		},
		{
			name: "calories from profile",
			args: []string{"calories", "--profile", active},
			want: [][]string{
				{"BMR", "1614", "kcal"},
				{"maintenance", "2784", "kcal"},
				{"weight_loss", "2284", "kcal"},
			},
		},
		{
			name: "calories goal override",
			args: []string{"calories", "--profile", missing, "--goal", "weight gain"},
			want: [][]string{
				{"BMR", "1642.5", "kcal"},
				{"maintenance", "2546", "kcal"},
				{"weight_gain", "2946", "kcal"},
			},
		},
		{
			name: "workout without history",
			args: []string{"workout", "--profile", missing},
			want: [][]string{{"Running", "(35", "min)"}},
		},
		{
			name: "workout avoids repeating",
			args: []string{"workout", "--profile", missing, "--last", "Running"},
			want: [][]string{{"Cycling", "(40", "min)"}},
		},
		{
			name: "week for moderate",
			args: []string{"week", "--profile", missing, "--start", "2025-03-10"},
			want: [][]string{
				{"DATE", "WORKOUT", "MINUTES"},
				{"2025-03-10", "Running", "35"},
				{"2025-03-11", "Cycling", "40"},
				{"2025-03-12", "Swimming", "40"},
				{"2025-03-13", "Weightlifting", "45"},
			},
		},
		{
			name: "week for beginners skips days",
			args: []string{"week", "--profile", sedentary, "--start", "2025-03-10"},
			want: [][]string{
				{"DATE", "WORKOUT", "MINUTES"},
				{"2025-03-10", "Walking", "30"},
				{"2025-03-12", "Yoga", "45"},
				{"2025-03-14", "Cycling", "40"},
			},
		},
		{
			name: "good sleep",
			args: []string{"sleep", "--profile", missing, "8", "7.5", "8"},
			want: [][]string{
				{"quality", "excellent"},
				{"score", "1"},
				{"average", "7.8", "h"},
				{"last", "night", "8.0", "h"},
				{"advice", "Good", "sleep", "quality.", "You", "can", "proceed", "with", "planned", "workout", "intensity."},
			},
		},
		{
			name: "chronically short",
			args: []string{"sleep", "--profile", missing, "5", "5"},
			want: [][]string{
				{"quality", "poor"},
				{"score", "0.24"},
				{"average", "5.0", "h"},
				{"last", "night", "5.0", "h"},
				{"advice", "Consider", "reducing", "workout", "intensity", "today.", "Prioritize", "rest", "and", "recovery."},
			},
		},
		{
			name: "short last night",
			args: []string{"sleep", "--profile", missing, "8", "8", "5"},
			want: [][]string{
				{"quality", "poor"},
				{"score", "0.8"},
				{"average", "7.0", "h"},
				{"last", "night", "5.0", "h"},
				{"advice", "Good", "sleep", "quality.", "You", "can", "proceed", "with", "planned", "workout", "intensity."},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("execute %v: %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommands_errors(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "missing.toml")
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown goal", args: []string{"calories", "--profile", missing, "--goal", "bulk"}},
		{name: "sleep out of range", args: []string{"sleep", "--profile", missing, "25"}},
		{name: "sleep not a number", args: []string{"sleep", "--profile", missing, "lots"}},
		{name: "sleep without nights", args: []string{"sleep", "--profile", missing}},
		{name: "bad start date", args: []string{"week", "--profile", missing, "--start", "10.3.2025"}},
		{name: "bad profile", args: []string{"calories", "--profile", writeProfile(t, "[profile]\nage = \"old\"\n")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("expected %v to fail", tt.args)
			}
		})
	}
}

func TestProfileCommand_writesTemplate(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fitplan", "profile.toml")
	got, err := execute(t, "profile", "--profile", path)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if _, err = os.Stat(path); err != nil {
		t.Fatalf("expected template at %s: %v", path, err)
	}
	want := [][]string{
		{"age", "25"},
		{"weight", "70", "kg"},
		{"height", "170", "cm"},
		{"gender", "Male"},
		{"activity", "level", "Moderate"},
		{"goal", "maintenance"},
		{"sleep", "band", "7.0-9.0", "h"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedDemo(t *testing.T) {
	t.Parallel()
	got, err := execute(t, "seed-demo", "--db", ":memory:", "--name", "Demo")
	if err != nil {
		t.Fatalf("seed-demo: %v", err)
	}
	want := [][]string{{"seeded", "demo", "user", "1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}
