package taxperiod

import (
	"errors"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Period is a closed range of civil dates. Both bounds are UTC midnight.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) NextStart() time.Time {
	return p.End.AddDate(0, 0, 1)
}

func (p Period) Contains(t time.Time) bool {
	d := Civil(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Resolve returns the period of policy that contains ref.
func Resolve(policy Policy, ref time.Time) (Period, error) {
	if err := policy.Validate(); err != nil {
		return Period{}, err
	}
	ref = Civil(ref)
	y, m := ref.Year(), ref.Month()

	if policy.Type == PolicyCustom {
		return custom(ref, policy.CustomDay), nil
	}
	switch policy.Preset {
	case Monthly:
		return Period{Start: Date(y, m, 1), End: Date(y, m+1, 0)}, nil
	case Quarterly:
		first := (m-1)/3*3 + 1
		return Period{Start: Date(y, first, 1), End: Date(y, first+3, 0)}, nil
	default:
		return Period{Start: Date(y, time.January, 1), End: Date(y, time.December, 31)}, nil
	}
}

// custom periods run from one monthly anchor to the day before the next.
// The comparison uses the clamped anchor of ref's month, so a reference on
// Feb 28 with day 31 opens a period rather than falling between two.
func custom(ref time.Time, day int) Period {
	y, m := ref.Year(), ref.Month()
	current := anchor(y, m, day)
	if ref.Before(current) {
		return Period{Start: anchor(y, m-1, day), End: current.AddDate(0, 0, -1)}
	}
	return Period{Start: current, End: anchor(y, m+1, day).AddDate(0, 0, -1)}
}

// anchor is day of month m clamped to the month's length. m may be out of
// [1, 12]; it is normalized across year boundaries.
func anchor(y int, m time.Month, day int) time.Time {
	first := Date(y, m, 1)
	last := Date(first.Year(), first.Month()+1, 0).Day()
	if day > last {
		day = last
	}
	return Date(first.Year(), first.Month(), day)
}

func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Civil drops the time of day, keeping the calendar date as seen in t's
// location.
func Civil(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Civil(time.Now().In(loc))
}

func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: use YYYY-MM-DD", ErrInvalidDate, raw)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
