package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/myrjola/fitplan/internal/planner"
)

// profileFile is the TOML profile. Missing keys keep the defaults of [planner.DefaultProfile].
type profileFile struct {
	Profile struct {
		Age           *int     `toml:"age"`
		WeightKg      *float64 `toml:"weight_kg"`
		HeightCm      *int     `toml:"height_cm"`
		Gender        *string  `toml:"gender"`
		ActivityLevel *string  `toml:"activity_level"`
		Goal          *string  `toml:"goal"`
	} `toml:"profile"`
	Sleep struct {
		MinHours *float64 `toml:"min_hours"`
		MaxHours *float64 `toml:"max_hours"`
	} `toml:"sleep"`
}

// settings are the values the commands compute with.
type settings struct {
	Profile  planner.UserProfile
	Goal     planner.Goal
	Analyzer planner.SleepAnalyzer
}

func defaultSettings() settings {
	return settings{
		Profile:  planner.DefaultProfile(),
		Goal:     planner.GoalMaintenance,
		Analyzer: planner.DefaultSleepAnalyzer(),
	}
}

// defaultProfilePath is $XDG_CONFIG_HOME/fitplan/profile.toml.
func defaultProfilePath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "fitplan", "profile.toml")
}

// loadSettings reads the profile at path. A missing file yields the defaults.
func loadSettings(path string) (settings, error) {
	s := defaultSettings()
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return settings{}, fmt.Errorf("stat profile: %w", err)
	}

	var f profileFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return settings{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("unknown key %q in profile %s", undecoded[0].String(), path)
	}

	p := f.Profile
	if p.Age != nil {
		s.Profile.Age = *p.Age
	}
	if p.WeightKg != nil {
		s.Profile.WeightKg = *p.WeightKg
	}
	if p.HeightCm != nil {
		s.Profile.HeightCm = *p.HeightCm
	}
	if p.Gender != nil {
		s.Profile.Gender = planner.ParseGender(*p.Gender)
	}
	if p.ActivityLevel != nil {
		if s.Profile.ActivityLevel, err = planner.ParseActivityLevel(*p.ActivityLevel); err != nil {
			return settings{}, fmt.Errorf("profile %s: %w", path, err)
		}
	}
	if p.Goal != nil {
		if s.Goal, err = planner.ParseGoal(*p.Goal); err != nil {
			return settings{}, fmt.Errorf("profile %s: %w", path, err)
		}
	}
	if f.Sleep.MinHours != nil {
		s.Analyzer.MinSleepHours = *f.Sleep.MinHours
	}
	if f.Sleep.MaxHours != nil {
		s.Analyzer.MaxSleepHours = *f.Sleep.MaxHours
	}
	if s.Analyzer.MinSleepHours <= 0 || s.Analyzer.MaxSleepHours < s.Analyzer.MinSleepHours {
		return settings{}, fmt.Errorf("profile %s: invalid sleep band %.1f-%.1f",
			path, s.Analyzer.MinSleepHours, s.Analyzer.MaxSleepHours)
	}
	return s, nil
}

const profileTemplate = `# fitctl profile
[profile]
age = 25
weight_kg = 70.0
height_cm = 170
# Male or Other
gender = "Male"
# sedentary, light, moderate, active or very_active
activity_level = "moderate"
# maintenance, weight_loss or weight_gain
goal = "maintenance"

[sleep]
min_hours = 7.0
max_hours = 9.0
`
