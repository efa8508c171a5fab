package validator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleOverride adjusts a single rule from a YAML overrides file.
// Nil fields leave the built-in value unchanged.
type RuleOverride struct {
	Weight  *float64 `yaml:"weight"`
	Enabled *bool    `yaml:"enabled"`
}

// overridesFile is the on-disk overrides document.
type overridesFile struct {
	Rules map[string]RuleOverride `yaml:"rules"`
}

// LoadOverrides applies rule overrides from a YAML file to a rule
// set. Unknown rule names are an error to catch typos early.
//
// Example file:
//
//	rules:
//	  venue-presence:
//	    enabled: false
//	  odds-range:
//	    weight: 2.0
func LoadOverrides(path string, rules []Rule) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule overrides: %w", err)
	}

	var doc overridesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rule overrides: %w", err)
	}

	byName := make(map[string]int, len(rules))
	out := make([]Rule, len(rules))
	copy(out, rules)
	for i, r := range out {
		byName[r.Name] = i
	}

	for name, ov := range doc.Rules {
		idx, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("rule overrides: unknown rule %q", name)
		}
		if ov.Weight != nil {
			if *ov.Weight < 0 {
				return nil, fmt.Errorf("rule overrides: %s: weight must not be negative", name)
			}
			out[idx].Weight = *ov.Weight
		}
		if ov.Enabled != nil {
			out[idx].Enabled = *ov.Enabled
		}
	}

	return out, nil
}
