// Package timeunit defines the calendar units understood by the interval
// engine and their nominal durations.
//
// Nominal durations are deliberately approximate for month and coarser units
// (a month counts as 30 days, a year as 365). They are only used for
// pixel-width and zoom-threshold heuristics; exact date arithmetic is done
// by the interval generator with real calendar math.
package timeunit

// Unit is a calendar unit name.
type Unit string

const (
	Millisecond Unit = "millisecond"
	Second      Unit = "second"
	Minute      Unit = "minute"
	Hour        Unit = "hour"
	Day         Unit = "day"
	Week        Unit = "week"
	Month       Unit = "month"
	Quarter     Unit = "quarter"
	Year        Unit = "year"
	Decade      Unit = "decade"
	Century     Unit = "century"
)

// Nominal unit durations in milliseconds.
const (
	MillisecondMs int64 = 1
	SecondMs            = 1000 * MillisecondMs
	MinuteMs            = 60 * SecondMs
	HourMs              = 60 * MinuteMs
	DayMs               = 24 * HourMs
	WeekMs              = 7 * DayMs
	MonthMs             = 30 * DayMs
	QuarterMs           = 3 * MonthMs
	YearMs              = 365 * DayMs
	DecadeMs            = 10 * YearMs
	CenturyMs           = 100 * YearMs
)

var durations = map[Unit]int64{
	Millisecond: MillisecondMs,
	Second:      SecondMs,
	Minute:      MinuteMs,
	Hour:        HourMs,
	Day:         DayMs,
	Week:        WeekMs,
	Month:       MonthMs,
	Quarter:     QuarterMs,
	Year:        YearMs,
	Decade:      DecadeMs,
	Century:     CenturyMs,
}

// Duration returns the nominal duration of u in milliseconds, or 0 for an
// unknown unit.
func Duration(u Unit) int64 {
	return durations[u]
}

// Valid reports whether u is a known calendar unit.
func Valid(u Unit) bool {
	_, ok := durations[u]
	return ok
}

// Cardinality returns how many u fit into its parent calendar period, for
// units where composite amounts (amount > 1) must evenly tile the parent:
//
//	millisecond → second (1000)
//	second      → minute (60)
//	minute      → hour   (60)
//	hour        → day    (24)
//	month       → year   (12)
//	quarter     → year   (4)
//
// The year family (year, decade, century) aligns by modular year arithmetic
// instead and has no parent constraint; day and week do not support
// composite amounts at all. For all of those the second result is false.
func Cardinality(u Unit) (int, bool) {
	switch u {
	case Millisecond:
		return 1000, true
	case Second, Minute:
		return 60, true
	case Hour:
		return 24, true
	case Month:
		return 12, true
	case Quarter:
		return 4, true
	default:
		return 0, false
	}
}

// YearSpan returns the number of calendar years covered by one u, for units
// in the year family. The second result is false for everything else.
func YearSpan(u Unit) (int, bool) {
	switch u {
	case Year:
		return 1, true
	case Decade:
		return 10, true
	case Century:
		return 100, true
	default:
		return 0, false
	}
}

// SubDay reports whether u is finer than a day. Sub-day boundaries are
// computed by wall-clock stepping within the local day rather than by
// calendar recurrence.
func SubDay(u Unit) bool {
	switch u {
	case Millisecond, Second, Minute, Hour:
		return true
	default:
		return false
	}
}

// PixelWidth returns the approximate on-screen width of one amount×u period
// at the given zoom, in pixels. timePerPixel is milliseconds per pixel.
func PixelWidth(u Unit, amount int, timePerPixel float64) float64 {
	if timePerPixel <= 0 {
		return 0
	}
	return float64(int64(amount)*Duration(u)) / timePerPixel
}

// StepMs returns the fixed step in milliseconds for a sub-day unit. It is
// only meaningful when SubDay(u) is true.
func StepMs(u Unit, amount int) int64 {
	return int64(amount) * Duration(u)
}
