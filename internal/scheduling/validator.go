package scheduling

import (
	"fmt"
	"time"

	"github.com/example/event-coordinator/internal/interval"
)

// Method distinguishes events with a fixed time from events negotiating one.
type Method string

const (
	// MethodFixed means the event already has one concrete time.
	MethodFixed Method = "fixed"
	// MethodFlexible means a window is being negotiated.
	MethodFlexible Method = "flexible"
)

// MinDurationMillis is the smallest admissible event duration (one minute).
const MinDurationMillis int64 = 60_000

// MinutesPerDay bounds minute-of-day daily start constraints.
const MinutesPerDay int64 = 1440

// ValidMethod reports whether the method value is known.
func ValidMethod(method Method) bool {
	return method == MethodFixed || method == MethodFlexible
}

// Candidate carries every scheduling-relevant field of an event for admission
// checking. Interval fields are Unix milliseconds except DailyStartConstraints,
// which are minutes of day.
type Candidate struct {
	Method               Method
	DurationMillis       int64
	TimeWindow           *interval.Range
	ScheduledTime        *int64
	RequireScheduledTime bool
	// WindowChanged marks that this mutation sets or moves the time window.
	// The future-start rule applies only then; an untouched window on an old
	// event is never retroactively rejected.
	WindowChanged         bool
	BlackoutPeriods       []interval.Range
	PreferredTimes        []interval.Range
	DailyStartConstraints []interval.Range
}

// Options tunes validator policy.
type Options struct {
	// EnforceBlackoutExclusion upgrades blackout periods from advisory input
	// to a hard admission rule for the scheduled time.
	EnforceBlackoutExclusion bool
}

// Validator decides scheduling admissibility. It is a pure decision component;
// the injected clock exists so "must be in the future" rules are testable.
type Validator struct {
	now  func() time.Time
	opts Options
}

// NewValidator constructs a Validator. A nil clock falls back to time.Now.
func NewValidator(now func() time.Time, opts Options) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now, opts: opts}
}

// FieldViolation names a violated rule on a specific field.
type FieldViolation struct {
	Field   string
	Message string
}

// Check evaluates every admission rule and returns all violations, not just
// the first.
func (v *Validator) Check(candidate Candidate) []FieldViolation {
	violations := make([]FieldViolation, 0)

	add := func(field, message string) {
		violations = append(violations, FieldViolation{Field: field, Message: message})
	}

	if !ValidMethod(candidate.Method) {
		add("scheduling_method", "scheduling method must be fixed or flexible")
	}

	if candidate.DurationMillis < MinDurationMillis {
		add("duration", "duration must be at least one minute")
	}

	switch candidate.Method {
	case MethodFixed:
		// Window and advisory constraints do not apply to fixed events; the
		// aggregate clears them before validation.
		if candidate.TimeWindow != nil {
			add("time_window", "fixed events do not take a time window")
		}
		if candidate.RequireScheduledTime {
			if candidate.ScheduledTime == nil {
				add("scheduled_time", "scheduled time is required")
			} else if *candidate.ScheduledTime <= 0 {
				add("scheduled_time", "scheduled time must be positive")
			}
		}
	case MethodFlexible:
		v.checkFlexibleWindow(candidate, add)
	}

	checkRangeList(candidate.BlackoutPeriods, "blackout_periods", add)
	checkRangeList(candidate.PreferredTimes, "preferred_times", add)
	checkDailyConstraints(candidate.DailyStartConstraints, add)

	if v.opts.EnforceBlackoutExclusion && candidate.ScheduledTime != nil && candidate.DurationMillis > 0 {
		slot := interval.Range{Start: *candidate.ScheduledTime, End: *candidate.ScheduledTime + candidate.DurationMillis}
		for _, blackout := range candidate.BlackoutPeriods {
			if slot.Overlaps(blackout) {
				add("scheduled_time", "scheduled time falls inside a blackout period")
				break
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return violations
}

func (v *Validator) checkFlexibleWindow(candidate Candidate, add func(field, message string)) {
	if candidate.TimeWindow == nil {
		add("time_window", "flexible events require a time window")
		if candidate.RequireScheduledTime && candidate.ScheduledTime == nil {
			add("scheduled_time", "scheduled time is required")
		}
		return
	}

	window := *candidate.TimeWindow
	if !window.IsValid() {
		add("time_window", "window end must be after window start")
	}
	// Re-validated on every mutation that touches the window, not only at creation.
	if candidate.WindowChanged && window.Start <= v.now().UnixMilli() {
		add("time_window", "window start must be in the future")
	}

	if candidate.RequireScheduledTime && candidate.ScheduledTime == nil {
		add("scheduled_time", "scheduled time is required")
	}

	if candidate.ScheduledTime != nil && window.IsValid() {
		scheduled := *candidate.ScheduledTime
		if scheduled < window.Start || scheduled+candidate.DurationMillis > window.End {
			add("scheduled_time", "scheduled time must fit inside the time window")
		}
	}
}

func checkRangeList(ranges []interval.Range, field string, add func(field, message string)) {
	for i, r := range ranges {
		if !r.IsValid() {
			add(field, fmt.Sprintf("entry %d: start must be before end", i))
		}
		if r.Start <= 0 {
			add(field, fmt.Sprintf("entry %d: start must be positive", i))
		}
	}
}

func checkDailyConstraints(ranges []interval.Range, add func(field, message string)) {
	for i, r := range ranges {
		if !r.IsValid() {
			add("daily_start_constraints", fmt.Sprintf("entry %d: start must be before end", i))
			continue
		}
		if r.Start < 0 || r.End > MinutesPerDay {
			add("daily_start_constraints", fmt.Sprintf("entry %d: minutes of day must lie in [0, 1440]", i))
		}
	}
}

// AdvisoryBlackoutHits returns the blackout periods the scheduled slot
// overlaps. Callers surface these as warnings when blackout exclusion is not
// enforced.
func AdvisoryBlackoutHits(candidate Candidate) []interval.Range {
	if candidate.ScheduledTime == nil || candidate.DurationMillis <= 0 {
		return nil
	}
	slot := interval.Range{Start: *candidate.ScheduledTime, End: *candidate.ScheduledTime + candidate.DurationMillis}

	hits := make([]interval.Range, 0)
	for _, blackout := range candidate.BlackoutPeriods {
		if slot.Overlaps(blackout) {
			hits = append(hits, blackout)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	return hits
}
