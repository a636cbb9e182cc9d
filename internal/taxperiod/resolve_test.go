package taxperiod

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(raw string) time.Time {
	t, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func assertPeriod(t *testing.T, got Period, start, end string) {
	t.Helper()
	assert.Equal(t, start, FormatDate(got.Start), "start")
	assert.Equal(t, end, FormatDate(got.End), "end")
}

func TestResolvePresetsContainReference(t *testing.T) {
	for _, preset := range []Preset{Monthly, Quarterly, Yearly} {
		for ref := day("2023-01-01"); ref.Before(day("2025-01-01")); ref = ref.AddDate(0, 0, 1) {
			period, err := Resolve(PresetPolicy(preset), ref)
			require.NoError(t, err)
			if !period.Contains(ref) {
				t.Fatalf("%s: %s outside [%s, %s]", preset, FormatDate(ref), FormatDate(period.Start), FormatDate(period.End))
			}
			if !period.NextStart().Equal(period.End.AddDate(0, 0, 1)) {
				t.Fatalf("%s: next start %s", preset, FormatDate(period.NextStart()))
			}
		}
	}
}

func TestResolveMonthly(t *testing.T) {
	period, err := Resolve(PresetPolicy(Monthly), day("2024-02-10"))
	require.NoError(t, err)
	assertPeriod(t, period, "2024-02-01", "2024-02-29")

	period, err = Resolve(PresetPolicy(Monthly), day("2025-12-31"))
	require.NoError(t, err)
	assertPeriod(t, period, "2025-12-01", "2025-12-31")
	assert.Equal(t, "2026-01-01", FormatDate(period.NextStart()))
}

func TestResolveQuarterlyThirdQuarter(t *testing.T) {
	for _, ref := range []string{"2025-07-01", "2025-08-15", "2025-09-30"} {
		period, err := Resolve(PresetPolicy(Quarterly), day(ref))
		require.NoError(t, err)
		assertPeriod(t, period, "2025-07-01", "2025-09-30")
	}

	period, err := Resolve(PresetPolicy(Quarterly), day("2025-11-03"))
	require.NoError(t, err)
	assertPeriod(t, period, "2025-10-01", "2025-12-31")
	assert.Equal(t, "2026-01-01", FormatDate(period.NextStart()))
}

func TestResolveYearly(t *testing.T) {
	period, err := Resolve(PresetPolicy(Yearly), day("2026-06-15"))
	require.NoError(t, err)
	assertPeriod(t, period, "2026-01-01", "2026-12-31")
}

func TestResolveCustomBeforeAnchor(t *testing.T) {
	period, err := Resolve(CustomPolicy(20), day("2026-02-15"))
	require.NoError(t, err)
	assertPeriod(t, period, "2026-01-20", "2026-02-19")
	assert.Equal(t, "2026-02-20", FormatDate(period.NextStart()))
}

func TestResolveCustomOnAnchorDayStartsPeriod(t *testing.T) {
	period, err := Resolve(CustomPolicy(20), day("2026-02-20"))
	require.NoError(t, err)
	assertPeriod(t, period, "2026-02-20", "2026-03-19")
}

func TestResolveCustomDayOneIsCalendarMonth(t *testing.T) {
	period, err := Resolve(CustomPolicy(1), day("2026-04-30"))
	require.NoError(t, err)
	assertPeriod(t, period, "2026-04-01", "2026-04-30")
}

func TestResolveCustomClampsToShortMonth(t *testing.T) {
	period, err := Resolve(CustomPolicy(31), day("2024-03-05"))
	require.NoError(t, err)
	assertPeriod(t, period, "2024-02-29", "2024-03-30")

	period, err = Resolve(CustomPolicy(31), day("2025-03-05"))
	require.NoError(t, err)
	assertPeriod(t, period, "2025-02-28", "2025-03-30")

	period, err = Resolve(CustomPolicy(31), day("2025-02-10"))
	require.NoError(t, err)
	assertPeriod(t, period, "2025-01-31", "2025-02-27")

	period, err = Resolve(CustomPolicy(31), day("2025-02-28"))
	require.NoError(t, err)
	assertPeriod(t, period, "2025-02-28", "2025-03-30")
}

func TestResolveCustomYearRollover(t *testing.T) {
	period, err := Resolve(CustomPolicy(15), day("2025-12-20"))
	require.NoError(t, err)
	assertPeriod(t, period, "2025-12-15", "2026-01-14")

	period, err = Resolve(CustomPolicy(15), day("2026-01-05"))
	require.NoError(t, err)
	assertPeriod(t, period, "2025-12-15", "2026-01-14")
}

func TestResolveCustomPeriodsAreContiguous(t *testing.T) {
	for anchorDay := 1; anchorDay <= 31; anchorDay++ {
		policy := CustomPolicy(anchorDay)
		for ref := day("2023-11-01"); ref.Before(day("2025-04-01")); ref = ref.AddDate(0, 0, 1) {
			period, err := Resolve(policy, ref)
			require.NoError(t, err)
			if !period.Contains(ref) {
				t.Fatalf("day %d: %s outside [%s, %s]", anchorDay, FormatDate(ref), FormatDate(period.Start), FormatDate(period.End))
			}
			next, err := Resolve(policy, period.NextStart())
			require.NoError(t, err)
			if !next.Start.Equal(period.NextStart()) {
				t.Fatalf("day %d: period after %s starts %s", anchorDay, FormatDate(period.End), FormatDate(next.Start))
			}
		}
	}
}

func TestResolveIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("Asia/Bishkek", 6*60*60)
	ref := time.Date(2025, time.March, 31, 23, 30, 0, 0, loc)
	period, err := Resolve(PresetPolicy(Monthly), ref)
	require.NoError(t, err)
	assertPeriod(t, period, "2025-03-01", "2025-03-31")
	assert.Equal(t, time.UTC, period.Start.Location())
}

func TestResolveRejectsBadPolicies(t *testing.T) {
	cases := []struct {
		name   string
		policy Policy
		want   error
	}{
		{"unset", Policy{}, ErrPolicyUnset},
		{"unknown type", Policy{Type: "weekly"}, ErrUnknownPolicyType},
		{"preset missing", Policy{Type: PolicyPreset}, ErrPresetMissing},
		{"unknown preset", PresetPolicy("biweekly"), ErrUnknownPreset},
		{"preset with day", Policy{Type: PolicyPreset, Preset: Monthly, CustomDay: 5}, ErrConflictingPolicy},
		{"custom day missing", Policy{Type: PolicyCustom}, ErrCustomDayMissing},
		{"custom with preset", Policy{Type: PolicyCustom, Preset: Monthly, CustomDay: 5}, ErrConflictingPolicy},
		{"day too large", CustomPolicy(32), ErrInvalidCustomDay},
		{"negative day", CustomPolicy(-1), ErrInvalidCustomDay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.policy, day("2025-01-01"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-02-15")
	require.NoError(t, err)
	assert.Equal(t, Date(2026, time.February, 15), got)

	for _, raw := range []string{"15.02.2026", "2026-2-15", "2026-02-30", ""} {
		_, err := ParseDate(raw)
		assert.ErrorIs(t, err, ErrInvalidDate, raw)
	}
}
