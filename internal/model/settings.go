package model

import "maps"

type Settings map[string]any

// DefaultSettings are returned for keys the user never saved.
func DefaultSettings() Settings {
	return Settings{
		"voice":           "alloy",
		"speechRate":      1.0,
		"briefingLength":  "standard",
		"locale":          "de-DE",
		"modules":         []string{"weather", "news"},
		"temperatureUnit": "celsius",
	}
}

// Merge overlays stored values onto the defaults.
func (s Settings) Merge(overrides Settings) Settings {
	merged := make(Settings, len(s)+len(overrides))
	maps.Copy(merged, s)
	maps.Copy(merged, overrides)
	return merged
}
