package scheduling

import (
	"time"

	"github.com/example/event-coordinator/internal/interval"
)

// Daily start constraints are evaluated against a wall clock, so a timezone
// is required to turn an absolute timestamp into a minute of day. Asia/Tokyo
// is the default when the caller does not supply one.
var jst = time.FixedZone("JST", 9*60*60)

// SatisfiesDailyStart reports whether the scheduled start, expressed as Unix
// milliseconds, falls inside one of the minute-of-day constraint ranges. An
// empty constraint list admits every start. A nil location defaults to JST.
func SatisfiesDailyStart(scheduledMillis int64, constraints []interval.Range, loc *time.Location) bool {
	if len(constraints) == 0 {
		return true
	}
	if loc == nil {
		loc = jst
	}

	local := time.UnixMilli(scheduledMillis).In(loc)
	minute := int64(local.Hour()*60 + local.Minute())
	for _, constraint := range constraints {
		if minute >= constraint.Start && minute < constraint.End {
			return true
		}
	}
	return false
}

// ExpandDailyStartWindows projects minute-of-day constraints onto each day the
// window touches, yielding the concrete ranges within which an event may
// start. Results are clipped to the window; days the window only partially
// covers contribute only the covered portion. A nil location defaults to JST.
func ExpandDailyStartWindows(window interval.Range, constraints []interval.Range, loc *time.Location) []interval.Range {
	if len(constraints) == 0 || window.End <= window.Start {
		return nil
	}
	if loc == nil {
		loc = jst
	}

	first := time.UnixMilli(window.Start).In(loc)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	last := time.UnixMilli(window.End).In(loc)

	var expanded []interval.Range
	for !day.After(last) {
		for _, constraint := range constraints {
			candidate := interval.Range{
				Start: day.Add(time.Duration(constraint.Start) * time.Minute).UnixMilli(),
				End:   day.Add(time.Duration(constraint.End) * time.Minute).UnixMilli(),
			}
			if candidate.Start < window.Start {
				candidate.Start = window.Start
			}
			if candidate.End > window.End {
				candidate.End = window.End
			}
			if candidate.End > candidate.Start {
				expanded = append(expanded, candidate)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return expanded
}
