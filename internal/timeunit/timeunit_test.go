package timeunit

import "testing"

func TestValid(t *testing.T) {
	for _, u := range []Unit{Millisecond, Second, Minute, Hour, Day, Week, Month, Quarter, Year, Decade, Century} {
		if !Valid(u) {
			t.Errorf("Valid(%s) = false", u)
		}
	}
	if Valid(Unit("fortnight")) {
		t.Error("Valid(fortnight) = true")
	}
}

func TestCardinality(t *testing.T) {
	cases := map[Unit]int{Millisecond: 1000, Second: 60, Minute: 60, Hour: 24, Month: 12, Quarter: 4}
	for u, want := range cases {
		got, ok := Cardinality(u)
		if !ok || got != want {
			t.Errorf("Cardinality(%s) = (%d, %v), want (%d, true)", u, got, ok, want)
		}
	}
	for _, u := range []Unit{Day, Week, Year, Decade, Century} {
		if _, ok := Cardinality(u); ok {
			t.Errorf("Cardinality(%s) should not apply", u)
		}
	}
}

func TestYearSpan(t *testing.T) {
	if n, ok := YearSpan(Decade); !ok || n != 10 {
		t.Errorf("YearSpan(decade) = (%d, %v)", n, ok)
	}
	if _, ok := YearSpan(Month); ok {
		t.Error("YearSpan(month) should not apply")
	}
}

func TestPixelWidth(t *testing.T) {
	if got := PixelWidth(Hour, 1, 60000); got != 60 {
		t.Errorf("one hour at 1min/px = %f px, want 60", got)
	}
	if got := PixelWidth(Day, 1, 0); got != 0 {
		t.Errorf("zero timePerPixel should yield 0, got %f", got)
	}
}

func TestStepMs(t *testing.T) {
	if got := StepMs(Minute, 15); got != 15*MinuteMs {
		t.Errorf("StepMs(minute, 15) = %d", got)
	}
}
