package render

import (
	"testing"

	"timegrid/internal/timeunit"
)

func TestChooseScale(t *testing.T) {
	cases := []struct {
		name     string
		tpp      float64
		gridUnit timeunit.Unit
		headUnit timeunit.Unit
	}{
		{"seconds per pixel", 1000, timeunit.Minute, timeunit.Hour},
		{"one day across 200px", float64(timeunit.DayMs) / 200, timeunit.Hour, timeunit.Day},
		{"one day across 50px", float64(timeunit.DayMs) / 50, timeunit.Day, timeunit.Month},
		{"one month across 60px", float64(timeunit.MonthMs) / 60, timeunit.Month, timeunit.Year},
		{"one year across 50px", float64(timeunit.YearMs) / 50, timeunit.Year, timeunit.Decade},
		{"deepest zoom-out", 1e10, timeunit.Century, timeunit.Century},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := ChooseScale(tc.tpp)
			if sc.GridUnit != tc.gridUnit {
				t.Errorf("grid unit %s, want %s", sc.GridUnit, tc.gridUnit)
			}
			if sc.HeaderUnit != tc.headUnit {
				t.Errorf("header unit %s, want %s", sc.HeaderUnit, tc.headUnit)
			}
			if sc.HeaderFormat.Layout == "" {
				t.Error("header has no label layout")
			}
		})
	}
}

func TestChooseScaleMonotonic(t *testing.T) {
	// Zooming out must never pick a finer grid unit.
	order := map[timeunit.Unit]int{
		timeunit.Minute: 0, timeunit.Hour: 1, timeunit.Day: 2, timeunit.Week: 3,
		timeunit.Month: 4, timeunit.Quarter: 5, timeunit.Year: 6, timeunit.Decade: 7, timeunit.Century: 8,
	}
	prev := -1
	for tpp := 100.0; tpp < 1e11; tpp *= 3 {
		sc := ChooseScale(tpp)
		rank := order[sc.GridUnit]
		if rank < prev {
			t.Fatalf("grid unit got finer while zooming out: %s at tpp=%g", sc.GridUnit, tpp)
		}
		prev = rank
	}
}
