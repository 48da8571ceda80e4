package render

import (
	"timegrid/internal/interval"
	"timegrid/internal/timeunit"
)

// Scale names the interval granularities a given zoom level displays: a
// fine unit for grid lines and a coarse unit for the labeled header row.
type Scale struct {
	GridUnit   timeunit.Unit
	GridAmount int

	HeaderUnit   timeunit.Unit
	HeaderAmount int
	HeaderFormat interval.Formatter
}

// minCellPx is the narrowest acceptable grid cell. Finer units drop out of
// view once their nominal width shrinks below it.
const minCellPx = 40.0

type rung struct {
	unit   timeunit.Unit
	amount int
}

// Fine-to-coarse zoom ladder; the first rung wide enough at the current
// zoom wins.
var rungs = []rung{
	{timeunit.Minute, 1},
	{timeunit.Minute, 5},
	{timeunit.Minute, 15},
	{timeunit.Hour, 1},
	{timeunit.Hour, 6},
	{timeunit.Day, 1},
	{timeunit.Week, 1},
	{timeunit.Month, 1},
	{timeunit.Quarter, 1},
	{timeunit.Year, 1},
	{timeunit.Decade, 1},
	{timeunit.Century, 1},
}

// headers maps a grid unit to its labeled header row.
var headers = map[timeunit.Unit]struct {
	unit   timeunit.Unit
	amount int
	layout string
}{
	timeunit.Minute:  {timeunit.Hour, 1, "Mon Jan 2 15:04"},
	timeunit.Hour:    {timeunit.Day, 1, "Mon Jan 2"},
	timeunit.Day:     {timeunit.Month, 1, "January 2006"},
	timeunit.Week:    {timeunit.Month, 1, "January 2006"},
	timeunit.Month:   {timeunit.Year, 1, "2006"},
	timeunit.Quarter: {timeunit.Year, 1, "2006"},
	timeunit.Year:    {timeunit.Decade, 1, "2006"},
	timeunit.Decade:  {timeunit.Century, 1, "2006"},
	timeunit.Century: {timeunit.Century, 1, "2006"},
}

// ChooseScale picks grid and header granularities for a zoom level, using
// the nominal unit widths (exact calendar lengths do not matter for a
// visibility heuristic).
func ChooseScale(timePerPixel float64) Scale {
	pick := rungs[len(rungs)-1]
	for _, r := range rungs {
		if timeunit.PixelWidth(r.unit, r.amount, timePerPixel) >= minCellPx {
			pick = r
			break
		}
	}
	h := headers[pick.unit]
	return Scale{
		GridUnit:     pick.unit,
		GridAmount:   pick.amount,
		HeaderUnit:   h.unit,
		HeaderAmount: h.amount,
		HeaderFormat: interval.Formatter{Layout: h.layout},
	}
}
