// Package schedule maps wall-clock time to the meal service currently
// offered. This is pure domain logic - no I/O, no side effects.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cafeteria/internal/claims/models"
	"cafeteria/internal/platform/config"
)

// Window is one half-open time range [Start, End) mapped to a service.
// Start and End are minutes since midnight.
type Window struct {
	Service models.Service
	Start   int
	End     int
}

// Schedule holds the ordered, non-overlapping service windows for a day.
type Schedule struct {
	windows []Window
}

// New builds a Schedule from configuration. Windows must parse as HH:MM,
// start before they end, and not overlap.
func New(cfg config.Windows) (*Schedule, error) {
	defs := []struct {
		service    models.Service
		start, end string
	}{
		{models.ServiceSnack, cfg.SnackStart, cfg.SnackEnd},
		{models.ServiceLunch, cfg.LunchStart, cfg.LunchEnd},
	}

	windows := make([]Window, 0, len(defs))
	for _, def := range defs {
		start, err := parseClock(def.start)
		if err != nil {
			return nil, fmt.Errorf("parse %s window start: %w", def.service, err)
		}
		end, err := parseClock(def.end)
		if err != nil {
			return nil, fmt.Errorf("parse %s window end: %w", def.service, err)
		}
		if start >= end {
			return nil, fmt.Errorf("%s window start %s is not before end %s", def.service, def.start, def.end)
		}
		windows = append(windows, Window{Service: def.service, Start: start, End: end})
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	for i := 1; i < len(windows); i++ {
		if windows[i].Start < windows[i-1].End {
			return nil, fmt.Errorf("%s window overlaps %s window", windows[i].Service, windows[i-1].Service)
		}
	}

	return &Schedule{windows: windows}, nil
}

// Active returns the service offered at t, or ServiceNone when t falls
// outside every window. Windows are half-open: a request at exactly the start
// minute is in the window, at exactly the end minute it is not.
func (s *Schedule) Active(t time.Time) models.Service {
	minute := t.Hour()*60 + t.Minute()
	for _, w := range s.windows {
		if minute >= w.Start && minute < w.End {
			return w.Service
		}
	}
	return models.ServiceNone
}

// Windows returns the configured windows for diagnostic endpoints.
func (s *Schedule) Windows() []Window {
	out := make([]Window, len(s.windows))
	copy(out, s.windows)
	return out
}

// Clock renders minutes since midnight back to HH:MM.
func (w Window) Clock() (start, end string) {
	return formatClock(w.Start), formatClock(w.End)
}

func parseClock(raw string) (int, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour*60 + minute, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
