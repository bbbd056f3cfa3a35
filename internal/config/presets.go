package config

import "sort"

// Presets are bond settings for the two coarse-grained chain models.
var Presets = map[string]BondConfig{
	"soft": {K: DefaultBondK, R0: DefaultBondR0},
	"hard": {K: DefaultBondK, R0: 12.0},
}

// GetPreset returns the default configuration with the named bond preset
// applied, or nil when no such preset exists.
func GetPreset(name string) *Config {
	bond, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Bond = bond
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
