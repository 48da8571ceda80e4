package interval

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"timegrid/internal/timeunit"
)

func TestCacheQueryBeforeUpdate(t *testing.T) {
	c := NewCache(Options{}, 0)
	_, err := c.Query(timeunit.Hour, 1, 0, timeunit.HourMs, Formatter{})
	if !errors.Is(err, ErrNotYetComputed) {
		t.Fatalf("got %v, want ErrNotYetComputed", err)
	}
}

func TestCacheUpdateIdempotent(t *testing.T) {
	c := NewCache(Options{}, 0)
	from := ms(2024, time.January, 1, 10, 0)
	to := ms(2024, time.January, 1, 20, 0)

	if err := c.Update(timeunit.Hour, 1, from, to, Formatter{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	n := c.Len(timeunit.Hour, 1, Formatter{})
	if err := c.Update(timeunit.Hour, 1, from, to, Formatter{}); err != nil {
		t.Fatalf("repeat Update: %v", err)
	}
	if got := c.Len(timeunit.Hour, 1, Formatter{}); got != n {
		t.Errorf("repeat Update changed entry length: %d -> %d", n, got)
	}
}

func TestCacheEdgeExtension(t *testing.T) {
	extended := NewCache(Options{}, 0)
	narrow := func(h int) int64 { return ms(2024, time.January, 1, h, 0) }

	if err := extended.Update(timeunit.Hour, 1, narrow(10), narrow(14), Formatter{}); err != nil {
		t.Fatalf("initial Update: %v", err)
	}
	if err := extended.Update(timeunit.Hour, 1, narrow(5), narrow(20), Formatter{}); err != nil {
		t.Fatalf("extending Update: %v", err)
	}

	fresh := NewCache(Options{}, 0)
	want, err := fresh.Fetch(timeunit.Hour, 1, narrow(5), narrow(20), Formatter{})
	if err != nil {
		t.Fatalf("fresh Fetch: %v", err)
	}
	got, err := extended.Query(timeunit.Hour, 1, narrow(5), narrow(20), Formatter{})
	if err != nil {
		t.Fatalf("Query after extension: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extended entry differs from single-shot generation:\n got %v\nwant %v", got, want)
	}
	checkCoverage(t, got, narrow(5), narrow(20))
}

func TestCacheRegeneratesOnLargeJump(t *testing.T) {
	c := NewCache(Options{}, 0)
	oldFrom := ms(2024, time.January, 1, 0, 0)
	oldTo := ms(2024, time.January, 1, 10, 0)
	if err := c.Update(timeunit.Hour, 1, oldFrom, oldTo, Formatter{}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// A jump of ~2000 hours, well past the extension threshold.
	newFrom := ms(2024, time.March, 25, 0, 0)
	newTo := ms(2024, time.March, 25, 10, 0)
	if err := c.Update(timeunit.Hour, 1, newFrom, newTo, Formatter{}); err != nil {
		t.Fatalf("jump Update: %v", err)
	}

	if _, err := c.Query(timeunit.Hour, 1, oldFrom, oldTo, Formatter{}); !errors.Is(err, ErrNotYetComputed) {
		t.Errorf("old range still served after regeneration: %v", err)
	}
	if _, err := c.Query(timeunit.Hour, 1, newFrom, newTo, Formatter{}); err != nil {
		t.Errorf("new range not served: %v", err)
	}
	if got := c.Len(timeunit.Hour, 1, Formatter{}); got > 2000 {
		t.Errorf("entry holds %d intervals after jump, expected a fresh small entry", got)
	}
}

func TestCacheLimitPreservesLiveWindow(t *testing.T) {
	c := NewCache(Options{}, 10)
	from := ms(2024, time.January, 1, 0, 0)
	to := from + 100*timeunit.HourMs
	if err := c.Update(timeunit.Hour, 1, from, to, Formatter{}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	winFrom := from + 40*timeunit.HourMs
	winTo := from + 45*timeunit.HourMs
	ivs, err := c.Fetch(timeunit.Hour, 1, winFrom, winTo, Formatter{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	checkCoverage(t, ivs, winFrom, winTo)
	if got := c.Len(timeunit.Hour, 1, Formatter{}); got > 10 {
		t.Errorf("entry holds %d intervals after Limit, cap is 10", got)
	}
}

func TestCacheLabels(t *testing.T) {
	c := NewCache(Options{}, 0)
	f := Formatter{Layout: "15:04"}
	from := ms(2024, time.January, 1, 9, 0)
	to := ms(2024, time.January, 1, 12, 0)

	ivs, err := c.Fetch(timeunit.Hour, 1, from, to, f)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := ivs[0].Label; got != "09:00" {
		t.Errorf("first label = %q, want %q", got, "09:00")
	}

	// The unlabeled entry is keyed separately and stays unlabeled.
	plain, err := c.Fetch(timeunit.Hour, 1, from, to, Formatter{})
	if err != nil {
		t.Fatalf("plain Fetch: %v", err)
	}
	if plain[0].Label != "" {
		t.Errorf("unformatted entry carries label %q", plain[0].Label)
	}
}

func TestCacheDegenerateRange(t *testing.T) {
	c := NewCache(Options{}, 0)
	at := ms(2024, time.January, 1, 0, 0) // on a boundary

	if err := c.Update(timeunit.Hour, 1, at-timeunit.HourMs, at+timeunit.HourMs, Formatter{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ivs, err := c.Query(timeunit.Hour, 1, at, at, Formatter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ivs) != 1 || ivs[0].Start != at {
		t.Errorf("degenerate query on a boundary yielded %v, want the cell starting there", ivs)
	}
}

func TestCacheExtensionAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	c := NewCache(Options{Location: loc}, 0)
	at := func(month time.Month, day, hour int) int64 {
		return time.Date(2024, month, day, hour, 0, 0, 0, loc).UnixMilli()
	}

	from := at(time.March, 30, 0)
	if err := c.Update(timeunit.Hour, 6, from, at(time.March, 30, 18), Formatter{}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Extend past the March 31 spring-forward; the appended cells must sit
	// on the same grid as the cached ones.
	to := at(time.April, 2, 0)
	if err := c.Update(timeunit.Hour, 6, from, to, Formatter{}); err != nil {
		t.Fatalf("extending Update: %v", err)
	}
	ivs, err := c.Query(timeunit.Hour, 6, from, to, Formatter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for i := 0; i+1 < len(ivs); i++ {
		if ivs[i].End != ivs[i+1].Start {
			t.Errorf("grid breaks after interval %d: end %d, next start %d", i, ivs[i].End, ivs[i+1].Start)
		}
	}
	if got, want := ivs[len(ivs)-1].End, to; got != want {
		t.Errorf("extended entry ends at %d, want %d", got, want)
	}
}
