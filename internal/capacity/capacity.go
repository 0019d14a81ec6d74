// Package capacity implements the always-on class capacity watcher: enrollment
// counts are classified against each class's limit and threshold, and boundary
// crossings produce engine-generated alerts.
package capacity

import (
	"fmt"
	"math"
)

// Level is the classified occupancy band of a class.
type Level int

const (
	// LevelOK means occupancy is below the warning threshold.
	LevelOK Level = iota
	// LevelNear means occupancy reached the warning threshold but seats remain.
	LevelNear
	// LevelFull means every seat is taken.
	LevelFull
	// LevelOver means enrollments exceed the limit.
	LevelOver
)

// State is the full classification of a class's occupancy.
type State struct {
	Level       Level
	Current     int
	MaxCapacity *int // nil means unlimited
	Percent     float64
	SeatsLeft   int // 0 when full or over; meaningless for unlimited classes
}

// Unlimited reports whether the class has no capacity limit.
func (s State) Unlimited() bool {
	return s.MaxCapacity == nil
}

// Classify bands a class's current enrollment count against its capacity
// limit. Classes without a limit are always LevelOK and never alert.
// warningThresholdPercent guards the near band; exactly full and over full
// are independent of it.
func Classify(current int, maxCapacity *int, warningThresholdPercent int) State {
	state := State{Current: current, MaxCapacity: maxCapacity}
	if maxCapacity == nil {
		return state
	}

	limit := *maxCapacity
	if limit <= 0 {
		return state
	}

	state.Percent = math.Round(float64(current)/float64(limit)*10000) / 100
	state.SeatsLeft = limit - current
	if state.SeatsLeft < 0 {
		state.SeatsLeft = 0
	}

	switch {
	case current > limit:
		state.Level = LevelOver
	case current == limit:
		state.Level = LevelFull
	// Integer comparison avoids float rounding at the threshold boundary.
	case current*100 >= warningThresholdPercent*limit:
		state.Level = LevelNear
	}
	return state
}

// String returns the level name used in logs and API payloads.
func (l Level) String() string {
	switch l {
	case LevelNear:
		return "near_capacity"
	case LevelFull:
		return "full"
	case LevelOver:
		return "over_capacity"
	default:
		return "ok"
	}
}

// Describe renders the human message for an alerting state.
func (s State) Describe(className string) string {
	if s.MaxCapacity == nil {
		return fmt.Sprintf("%s has no capacity limit", className)
	}
	switch s.Level {
	case LevelOver:
		return fmt.Sprintf("%s is over capacity (%d/%d)", className, s.Current, *s.MaxCapacity)
	case LevelFull:
		return fmt.Sprintf("%s is full (%d/%d)", className, s.Current, *s.MaxCapacity)
	case LevelNear:
		return fmt.Sprintf("%s is at %.0f%% capacity (%d/%d, %d seats left)",
			className, s.Percent, s.Current, *s.MaxCapacity, s.SeatsLeft)
	default:
		return fmt.Sprintf("%s has %d of %d seats taken", className, s.Current, *s.MaxCapacity)
	}
}
