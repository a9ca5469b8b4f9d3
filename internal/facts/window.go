package facts

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitlink/internal/source"
	"github.com/julianstephens/habitlink/internal/utils"
)

// Window is an inclusive range of calendar days in Loc.
type Window struct {
	Start time.Time
	End   time.Time
	Loc   *time.Location
}

// Today is the single-day window containing now.
func Today(now time.Time, loc *time.Location) Window {
	d := utils.StartOfDay(now, loc)
	return Window{Start: d, End: d, Loc: loc}
}

// LastNDays is the n-day window ending today. n below 1 is treated as 1.
func LastNDays(now time.Time, n int, loc *time.Location) Window {
	if n < 1 {
		n = 1
	}
	end := utils.StartOfDay(now, loc)
	return Window{Start: utils.AddDays(end, -(n - 1)), End: end, Loc: loc}
}

// NewWindow snaps start and end to their calendar days in loc.
func NewWindow(start, end time.Time, loc *time.Location) (Window, error) {
	s := utils.StartOfDay(start, loc)
	e := utils.StartOfDay(end, loc)
	if e.Before(s) {
		return Window{}, fmt.Errorf("window end %s is before start %s", e.Format("2006-01-02"), s.Format("2006-01-02"))
	}
	return Window{Start: s, End: e, Loc: loc}, nil
}

// Days lists every day in the window, oldest first.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = utils.AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// Len is the number of days in the window.
func (w Window) Len() int {
	return len(w.Days())
}

// Contains reports whether t falls in [Start, End+1day).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(utils.AddDays(w.End, 1))
}

// Predicate is the source filter for completions inside the window.
func (w Window) Predicate() source.Predicate {
	return source.Predicate{
		CompletedFrom: w.Start,
		CompletedTo:   utils.AddDays(w.End, 1),
		CompletedOnly: true,
	}
}

// From returns the part of the window starting at day, or false if day is past the end.
func (w Window) From(day time.Time) (Window, bool) {
	d := utils.StartOfDay(day, w.Loc)
	if d.After(w.End) {
		return Window{}, false
	}
	if d.Before(w.Start) {
		d = w.Start
	}
	return Window{Start: d, End: w.End, Loc: w.Loc}, true
}
