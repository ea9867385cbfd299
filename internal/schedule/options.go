package schedule

import (
	"fmt"
	"strings"
)

// FirstTaskPolicy decides how the first task of an objective treats a
// non-working anchor date.
type FirstTaskPolicy string

const (
	// FirstTaskWeekendOnly moves the start off weekends but lets it land on a
	// holiday. Later tasks always skip both.
	FirstTaskWeekendOnly FirstTaskPolicy = "weekend-only"
	// FirstTaskWorkingDay moves the start off weekends and holidays.
	FirstTaskWorkingDay FirstTaskPolicy = "working-day"
)

// HandoffPolicy decides where an objective starts relative to the finish of
// the objective before it.
type HandoffPolicy string

const (
	// HandoffNextWorkingDay starts on the working day after the previous
	// objective's last finish.
	HandoffNextWorkingDay HandoffPolicy = "next-working-day"
	// HandoffSameDay reuses the previous finish date as the anchor, moved off a
	// weekend by the first task policy.
	HandoffSameDay HandoffPolicy = "same-day"
)

// EditPolicy decides how far a single-task edit propagates.
type EditPolicy string

const (
	// EditCascade re-propagates every task after the edited one, across
	// objectives, for both duration and start edits.
	EditCascade EditPolicy = "cascade"
	// EditLegacy cascades duration edits only to later tasks of the same
	// objective, and start edits only to the edited task's own finish.
	EditLegacy EditPolicy = "legacy"
)

type Options struct {
	FirstTask FirstTaskPolicy `json:"firstTask" yaml:"first_task"`
	Handoff   HandoffPolicy   `json:"handoff" yaml:"handoff"`
	Edit      EditPolicy      `json:"edit" yaml:"edit"`
}

func DefaultOptions() Options {
	return Options{
		FirstTask: FirstTaskWeekendOnly,
		Handoff:   HandoffNextWorkingDay,
		Edit:      EditCascade,
	}
}

// Validate rejects unknown policy names.
func (o Options) Validate() error {
	switch o.FirstTask {
	case FirstTaskWeekendOnly, FirstTaskWorkingDay:
	default:
		return fmt.Errorf("unknown first task policy %q", o.FirstTask)
	}
	switch o.Handoff {
	case HandoffNextWorkingDay, HandoffSameDay:
	default:
		return fmt.Errorf("unknown handoff policy %q", o.Handoff)
	}
	switch o.Edit {
	case EditCascade, EditLegacy:
	default:
		return fmt.Errorf("unknown edit policy %q", o.Edit)
	}
	return nil
}

// ParseOptions builds options from configuration strings; empty values keep
// the defaults.
func ParseOptions(firstTask, handoff, edit string) (Options, error) {
	opts := DefaultOptions()
	if v := strings.TrimSpace(firstTask); v != "" {
		opts.FirstTask = FirstTaskPolicy(strings.ToLower(v))
	}
	if v := strings.TrimSpace(handoff); v != "" {
		opts.Handoff = HandoffPolicy(strings.ToLower(v))
	}
	if v := strings.TrimSpace(edit); v != "" {
		opts.Edit = EditPolicy(strings.ToLower(v))
	}
	return opts, opts.Validate()
}

type Option func(*Options)

func WithFirstTask(p FirstTaskPolicy) Option {
	return func(o *Options) { o.FirstTask = p }
}

func WithHandoff(p HandoffPolicy) Option {
	return func(o *Options) { o.Handoff = p }
}

func WithEdit(p EditPolicy) Option {
	return func(o *Options) { o.Edit = p }
}

// WithOptions replaces every policy at once.
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = opts }
}
