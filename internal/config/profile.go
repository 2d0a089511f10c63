package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/robert-malhotra/burn-severity/internal/severity"
)

// Profile holds classification settings read from an optional YAML file:
//
//	title: Creek Fire
//	water:
//	  method: swm
//	  min: 1.1
//	  max: 5.6
//	  ndwi: 0.3
//
// Keys left out keep their defaults.
type Profile struct {
	Title string               `yaml:"title"`
	Water severity.WaterConfig `yaml:"water"`
}

// DefaultProfile returns the profile used when no file is configured.
func DefaultProfile() Profile {
	return Profile{
		Title: "Burn Severity Map",
		Water: severity.DefaultWaterConfig(),
	}
}

// LoadProfile reads a profile file. An empty path returns DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	path = strings.TrimSpace(path)
	if path == "" {
		return profile, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(content, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}

	profile.Water.Method = severity.WaterMethod(strings.ToLower(strings.TrimSpace(string(profile.Water.Method))))
	if err := profile.Water.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return profile, nil
}
