// Package window computes the date windows used to build pre-fire and
// post-fire composites and widens them until the imagery is clear enough.
package window

import (
	"fmt"
	"strings"
	"time"
)

// DefaultExtensionDays is the initial window width and the widening step.
const DefaultExtensionDays = 7

// Direction says which side of the fire event a window covers.
type Direction int

const (
	// Pre windows end at the event and widen backwards.
	Pre Direction = iota
	// Post windows start at the event and widen forwards.
	Post
)

func (d Direction) String() string {
	switch d {
	case Pre:
		return "pre"
	case Post:
		return "post"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection parses "pre" or "post".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pre":
		return Pre, nil
	case "post":
		return Post, nil
	default:
		return 0, fmt.Errorf("unknown window direction %q", s)
	}
}

// DateWindow is a closed range of days. Start is always before End.
type DateWindow struct {
	Start         time.Time
	End           time.Time
	ExtensionDays int
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// New returns the initial window of extensionDays on the dir side of event.
func New(event time.Time, dir Direction, extensionDays int) (DateWindow, error) {
	if event.IsZero() {
		return DateWindow{}, fmt.Errorf("%w: event date is required", ErrInvalidWindow)
	}
	if extensionDays < DefaultExtensionDays {
		return DateWindow{}, fmt.Errorf("%w: extension must be at least %d days, got %d", ErrInvalidWindow, DefaultExtensionDays, extensionDays)
	}
	return anchor(Day(event), dir, extensionDays)
}

func anchor(event time.Time, dir Direction, days int) (DateWindow, error) {
	span := time.Duration(days) * 24 * time.Hour
	switch dir {
	case Pre:
		return DateWindow{Start: event.Add(-span), End: event, ExtensionDays: days}, nil
	case Post:
		return DateWindow{Start: event, End: event.Add(span), ExtensionDays: days}, nil
	default:
		return DateWindow{}, fmt.Errorf("%w: %s", ErrInvalidWindow, dir)
	}
}

// Recalibrate returns the next, wider window. The boundary at the event
// stays fixed and the far boundary moves out by step days.
func (w DateWindow) Recalibrate(dir Direction, step int) (DateWindow, error) {
	if step <= 0 {
		return DateWindow{}, fmt.Errorf("%w: step must be positive, got %d", ErrInvalidWindow, step)
	}
	switch dir {
	case Pre:
		return anchor(w.End, dir, w.ExtensionDays+step)
	case Post:
		return anchor(w.Start, dir, w.ExtensionDays+step)
	default:
		return DateWindow{}, fmt.Errorf("%w: %s", ErrInvalidWindow, dir)
	}
}

// Days returns the window width in days.
func (w DateWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// Contains reports whether other lies inside w.
func (w DateWindow) Contains(other DateWindow) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

func (w DateWindow) String() string {
	return w.Start.Format(time.DateOnly) + "/" + w.End.Format(time.DateOnly)
}
