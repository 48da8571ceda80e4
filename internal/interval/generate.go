// Package interval generates, caches and serves the calendar-aligned
// intervals (grid lines, header cells, weekend markers) behind the timeline
// viewport. Timestamps are integer milliseconds since the Unix epoch;
// calendar-aware boundary math is done in a configurable timezone with a
// configurable first day of the week.
package interval

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/teambition/rrule-go"

	"timegrid/internal/timeunit"
)

// Generator errors. Both indicate a misconfigured unit/amount request and
// are surfaced immediately rather than retried.
var (
	// ErrUnsupportedUnit is returned for amount > 1 on days and weeks:
	// months have variable day counts, so multi-day periods cannot be
	// anchored to a parent calendar period.
	ErrUnsupportedUnit = errors.New("interval: unsupported unit/amount combination")

	// ErrIndivisibleUnit is returned when amount does not evenly divide the
	// parent period's cardinality (e.g. 5-month periods: 12 % 5 != 0).
	ErrIndivisibleUnit = errors.New("interval: amount does not divide parent period")
)

// Interval is one calendar-aligned cell. Start and End are epoch
// milliseconds with Start < End; Start is the identity key everywhere.
type Interval struct {
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	Label     string `json:"label,omitempty"`
	IsWeekend bool   `json:"isWeekend,omitempty"`
}

// Options parameterizes calendar alignment.
type Options struct {
	// Location used for boundary computation. Nil means UTC.
	Location *time.Location

	// WeekStartsOn is the first day of the week for week alignment.
	// The zero value is time.Sunday; use Monday for ISO weeks.
	WeekStartsOn time.Weekday
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Formatter turns interval boundaries into header labels using Go time
// layouts. The zero Formatter produces empty labels.
type Formatter struct {
	Layout    string // applied to the interval start
	LayoutEnd string // if set, appended for the interval end
}

// Label renders the label for an interval starting at start and ending at
// end, both in the formatter's caller-chosen location.
func (f Formatter) Label(start, end time.Time) string {
	if f.Layout == "" {
		return ""
	}
	s := start.Format(f.Layout)
	if f.LayoutEnd != "" {
		s += " – " + end.Format(f.LayoutEnd)
	}
	return s
}

// key returns a stable cache-key component for the formatter.
func (f Formatter) key() string {
	return f.Layout + "\x00" + f.LayoutEnd
}

// Generate produces the ordered, contiguous sequence of calendar-aligned
// intervals of amount×unit covering at least [from, to]. The first
// interval's start is at or before from, the last interval's end at or
// after to, and intervals[i].End == intervals[i+1].Start throughout.
func Generate(unit timeunit.Unit, amount int, from, to int64, opts Options) ([]Interval, error) {
	if !timeunit.Valid(unit) {
		return nil, fmt.Errorf("%w: unknown unit %q", ErrUnsupportedUnit, unit)
	}
	if amount < 1 {
		return nil, fmt.Errorf("%w: amount %d", ErrUnsupportedUnit, amount)
	}
	if to < from {
		return nil, fmt.Errorf("interval: range end %d before start %d", to, from)
	}

	if timeunit.SubDay(unit) {
		return generateSubDay(unit, amount, from, to, opts)
	}
	return generateCalendar(unit, amount, from, to, opts)
}

// generateSubDay produces the sub-day grid. Minute and hour cells sit on
// the wall-clock marks at step multiples past local midnight, walked day by
// day: a mark erased by a DST spring-forward is dropped and a fall-back
// repeat folds into one longer cell, so any two calls agree on the
// boundaries they share and edge extension never stitches mismatched grids.
// Second and millisecond steps divide a minute, which every zone transition
// is a multiple of, so they step directly from the epoch.
func generateSubDay(unit timeunit.Unit, amount int, from, to int64, opts Options) ([]Interval, error) {
	card, _ := timeunit.Cardinality(unit)
	if amount > 1 && card%amount != 0 {
		return nil, fmt.Errorf("%w: %d×%s in %d", ErrIndivisibleUnit, amount, unit, card)
	}

	step := timeunit.StepMs(unit, amount)
	if step < timeunit.MinuteMs {
		first := floorDiv(from, step) * step
		out := make([]Interval, 0, (to-first)/step+1)
		for b := first; b < to || b == first; b += step {
			out = append(out, Interval{Start: b, End: b + step})
		}
		return out, nil
	}

	loc := opts.location()
	day := dayStart(time.UnixMilli(from).In(loc))
	bounds := make([]int64, 0, (to-from)/step+4)
	for {
		next := day.AddDate(0, 0, 1)
		for off := int64(0); off < timeunit.DayMs; off += step {
			b := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, int(off/1000), 0, loc)
			if !b.Before(next) {
				break
			}
			bm := b.UnixMilli()
			if n := len(bounds); n > 0 && bm <= bounds[n-1] {
				continue
			}
			bounds = append(bounds, bm)
		}
		day = next
		if n := len(bounds); n > 0 && bounds[n-1] > to {
			break
		}
	}

	lo := sort.Search(len(bounds), func(i int) bool { return bounds[i] > from }) - 1
	hi := sort.Search(len(bounds), func(i int) bool { return bounds[i] >= to })
	if hi == lo {
		hi++ // a range collapsed onto a mark keeps the cell starting there
	}

	out := make([]Interval, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, Interval{Start: bounds[i], End: bounds[i+1]})
	}
	return out, nil
}

// generateCalendar handles day-and-coarser units. The aligned first
// boundary is computed per unit family, then rrule iterates the following
// boundaries with real calendar arithmetic (month lengths, DST, week start).
func generateCalendar(unit timeunit.Unit, amount int, from, to int64, opts Options) ([]Interval, error) {
	loc := opts.location()
	fromT := time.UnixMilli(from).In(loc)

	var (
		start time.Time
		ropt  rrule.ROption
	)

	switch unit {
	case timeunit.Day:
		if amount != 1 {
			// Multi-day periods are ambiguous: months have variable day
			// counts, so there is no parent period to anchor them to.
			return nil, fmt.Errorf("%w: %d×day", ErrUnsupportedUnit, amount)
		}
		start = dayStart(fromT)
		ropt = rrule.ROption{Freq: rrule.DAILY, Interval: 1}

	case timeunit.Week:
		if amount != 1 {
			return nil, fmt.Errorf("%w: %d×week", ErrUnsupportedUnit, amount)
		}
		start = weekStart(fromT, opts.WeekStartsOn)
		ropt = rrule.ROption{Freq: rrule.WEEKLY, Interval: 1, Wkst: rruleWeekday(opts.WeekStartsOn)}

	case timeunit.Month, timeunit.Quarter:
		months := amount
		if unit == timeunit.Quarter {
			months = 3 * amount
		}
		if 12%months != 0 {
			return nil, fmt.Errorf("%w: %d months in a year", ErrIndivisibleUnit, months)
		}
		m0 := int(fromT.Month()) - 1
		m0 -= m0 % months
		start = time.Date(fromT.Year(), time.Month(m0+1), 1, 0, 0, 0, 0, loc)
		ropt = rrule.ROption{Freq: rrule.MONTHLY, Interval: months}

	case timeunit.Year, timeunit.Decade, timeunit.Century:
		span, _ := timeunit.YearSpan(unit)
		years := span * amount
		y := fromT.Year() - floorMod(fromT.Year(), years)
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		ropt = rrule.ROption{Freq: rrule.YEARLY, Interval: years}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}

	ropt.Dtstart = start
	r, err := rrule.NewRRule(ropt)
	if err != nil {
		return nil, fmt.Errorf("interval: building recurrence for %d×%s: %w", amount, unit, err)
	}

	toT := time.UnixMilli(to).In(loc)
	bounds := make([]time.Time, 0, 16)
	next := r.Iterator()
	for {
		b, ok := next()
		if !ok {
			break
		}
		b = b.In(loc)
		bounds = append(bounds, b)
		// The first boundary at or past the range end closes the last
		// interval; a degenerate range still yields the cell it lands in.
		if !b.Before(toT) && len(bounds) >= 2 {
			break
		}
	}
	if len(bounds) < 2 {
		return nil, fmt.Errorf("interval: recurrence for %d×%s yielded no boundaries", amount, unit)
	}

	out := make([]Interval, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		iv := Interval{Start: bounds[i].UnixMilli(), End: bounds[i+1].UnixMilli()}
		if unit == timeunit.Day {
			iv.IsWeekend = isWeekend(bounds[i].Weekday())
		}
		out = append(out, iv)
	}
	return out, nil
}

// isWeekend reports the canonical weekend definition used across the whole
// engine: Saturday and Sunday.
func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func weekStart(t time.Time, startsOn time.Weekday) time.Time {
	d := dayStart(t)
	back := (int(d.Weekday()) - int(startsOn) + 7) % 7
	return d.AddDate(0, 0, -back)
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

func rruleWeekday(d time.Weekday) rrule.Weekday {
	return rruleWeekdays[d]
}

// floorDiv is integer division rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// floorMod is the non-negative remainder of a/b for positive b.
func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Generator memoizes the most recent Generate call so repeated requests
// with identical arguments inside one render pass are free. It is safe for
// concurrent use.
type Generator struct {
	mu       sync.Mutex
	haveLast bool
	lastArgs genArgs
	lastRes  []Interval
}

type genArgs struct {
	unit       timeunit.Unit
	amount     int
	from, to   int64
	locName    string
	weekStarts time.Weekday
}

// Generate is Generate with single-entry memoization.
func (g *Generator) Generate(unit timeunit.Unit, amount int, from, to int64, opts Options) ([]Interval, error) {
	args := genArgs{
		unit:       unit,
		amount:     amount,
		from:       from,
		to:         to,
		locName:    opts.location().String(),
		weekStarts: opts.WeekStartsOn,
	}

	g.mu.Lock()
	if g.haveLast && g.lastArgs == args {
		res := g.lastRes
		g.mu.Unlock()
		return res, nil
	}
	g.mu.Unlock()

	res, err := Generate(unit, amount, from, to, opts)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.haveLast = true
	g.lastArgs = args
	g.lastRes = res
	g.mu.Unlock()
	return res, nil
}
