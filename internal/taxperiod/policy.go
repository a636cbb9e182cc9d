package taxperiod

import (
	"errors"
	"fmt"
)

type PolicyType string

const (
	PolicyPreset PolicyType = "preset"
	PolicyCustom PolicyType = "custom"
)

type Preset string

const (
	Monthly   Preset = "monthly"
	Quarterly Preset = "quarterly"
	Yearly    Preset = "yearly"
)

func (p Preset) Valid() bool {
	switch p {
	case Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

var (
	ErrPolicyUnset       = errors.New("tax period type is not configured")
	ErrUnknownPolicyType = errors.New("unknown tax period type")
	ErrPresetMissing     = errors.New("preset tax period requires a preset value")
	ErrUnknownPreset     = errors.New("unknown tax period preset")
	ErrCustomDayMissing  = errors.New("custom tax period requires an anchor day")
	ErrInvalidCustomDay  = errors.New("custom anchor day must be between 1 and 31")
	ErrConflictingPolicy = errors.New("tax period has both a preset and a custom day")
)

// ConfigError reports an unusable tax period policy. It is always the
// caller's to fix and is never replaced with a guessed period.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tax period %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Policy is an organization's period configuration. CustomDay is zero when
// unset. Exactly one of Preset and CustomDay is populated, matching Type.
type Policy struct {
	Type      PolicyType
	Preset    Preset
	CustomDay int
}

func PresetPolicy(p Preset) Policy {
	return Policy{Type: PolicyPreset, Preset: p}
}

func CustomPolicy(day int) Policy {
	return Policy{Type: PolicyCustom, CustomDay: day}
}

func (p Policy) Validate() error {
	switch p.Type {
	case "":
		return &ConfigError{Field: "tax_period_type", Err: ErrPolicyUnset}
	case PolicyPreset:
		if p.Preset == "" {
			return &ConfigError{Field: "tax_period_preset", Err: ErrPresetMissing}
		}
		if p.CustomDay != 0 {
			return &ConfigError{Field: "tax_period_custom_day", Err: ErrConflictingPolicy}
		}
		if !p.Preset.Valid() {
			return &ConfigError{Field: "tax_period_preset", Err: ErrUnknownPreset}
		}
	case PolicyCustom:
		if p.CustomDay == 0 {
			return &ConfigError{Field: "tax_period_custom_day", Err: ErrCustomDayMissing}
		}
		if p.Preset != "" {
			return &ConfigError{Field: "tax_period_preset", Err: ErrConflictingPolicy}
		}
		if p.CustomDay < 1 || p.CustomDay > 31 {
			return &ConfigError{Field: "tax_period_custom_day", Err: ErrInvalidCustomDay}
		}
	default:
		return &ConfigError{Field: "tax_period_type", Err: ErrUnknownPolicyType}
	}
	return nil
}
