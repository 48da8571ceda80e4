package interval

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"timegrid/internal/timeunit"
)

// ErrNotYetComputed is returned by Query when the requested range has not
// been populated. It indicates a sequencing bug in the caller (Update must
// run first), not a transient condition.
var ErrNotYetComputed = errors.New("interval: range not yet computed")

const (
	// DefaultCap is the per-entry interval cap before truncation kicks in.
	DefaultCap = 10000

	// extendThreshold is the maximum drift, measured in nominal periods,
	// for which an Update extends the cached span at the edges instead of
	// regenerating it from scratch.
	extendThreshold = 1000
)

// Cache is a per-(unit, amount, format) store of previously generated
// intervals. Each entry is an ordered, duplicate-free slice keyed by
// interval start, grown by edge extension as the viewport moves and
// truncated around the live window when it exceeds the cap.
//
// The cache is written only by its own Update/Limit routines and may be
// read by any number of consumers (grid, header, weekend markers).
type Cache struct {
	mu      sync.RWMutex
	opts    Options
	cap     int
	gen     Generator
	entries map[string][]Interval
}

// NewCache creates a cache generating intervals with opts. maxLen <= 0
// selects DefaultCap.
func NewCache(opts Options, maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCap
	}
	return &Cache{
		opts:    opts,
		cap:     maxLen,
		entries: make(map[string][]Interval),
	}
}

func entryKey(unit timeunit.Unit, amount int, f Formatter) string {
	return fmt.Sprintf("%d×%s|%s", amount, unit, f.key())
}

// Update ensures the entry for (unit, amount, f) covers [from, to]. When
// the requested range is close to the cached span, only the uncovered
// edge(s) are generated; a jump of more than extendThreshold periods
// regenerates the entry outright.
func (c *Cache) Update(unit timeunit.Unit, amount int, from, to int64, f Formatter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey(unit, amount, f)
	ivs := c.entries[key]

	if len(ivs) == 0 {
		fresh, err := c.generate(unit, amount, from, to, f)
		if err != nil {
			return err
		}
		c.entries[key] = fresh
		return nil
	}

	min := ivs[0].Start
	max := ivs[len(ivs)-1].End
	if from >= min && to <= max {
		return nil
	}

	period := int64(amount) * timeunit.Duration(unit)
	if drift(min-from, period) > extendThreshold || drift(to-max, period) > extendThreshold {
		fresh, err := c.generate(unit, amount, from, to, f)
		if err != nil {
			return err
		}
		c.entries[key] = fresh
		return nil
	}

	if from < min {
		low, err := c.generate(unit, amount, from, min, f)
		if err != nil {
			return err
		}
		n := sort.Search(len(low), func(i int) bool { return low[i].Start >= min })
		ivs = append(low[:n:n], ivs...)
	}
	if to > max {
		high, err := c.generate(unit, amount, max, to, f)
		if err != nil {
			return err
		}
		n := sort.Search(len(high), func(i int) bool { return high[i].Start >= max })
		ivs = append(ivs, high[n:]...)
	}
	c.entries[key] = ivs
	return nil
}

func drift(delta, period int64) int64 {
	if delta <= 0 || period <= 0 {
		return 0
	}
	return delta / period
}

// generate runs the memoized generator and applies labels. Callers hold the
// write lock.
func (c *Cache) generate(unit timeunit.Unit, amount int, from, to int64, f Formatter) ([]Interval, error) {
	ivs, err := c.gen.Generate(unit, amount, from, to, c.opts)
	if err != nil {
		return nil, err
	}
	if f.Layout == "" {
		return ivs, nil
	}
	loc := c.opts.location()
	labeled := make([]Interval, len(ivs))
	for i, iv := range ivs {
		iv.Label = f.Label(time.UnixMilli(iv.Start).In(loc), time.UnixMilli(iv.End).In(loc))
		labeled[i] = iv
	}
	return labeled, nil
}

// Query returns the cached intervals intersecting [from, to], in order.
// The full range must have been populated by a prior Update.
func (c *Cache) Query(unit timeunit.Unit, amount int, from, to int64, f Formatter) ([]Interval, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ivs, ok := c.entries[entryKey(unit, amount, f)]
	if !ok || len(ivs) == 0 || ivs[0].Start > from || ivs[len(ivs)-1].End < to {
		return nil, fmt.Errorf("%w: %d×%s [%d, %d]", ErrNotYetComputed, amount, unit, from, to)
	}

	lo := sort.Search(len(ivs), func(i int) bool { return ivs[i].End > from })
	hi := sort.Search(len(ivs), func(i int) bool { return ivs[i].Start >= to })
	if hi < len(ivs) && ivs[hi].Start == to && to == from {
		hi++ // degenerate range on a boundary still yields the cell at that instant
	}
	out := make([]Interval, hi-lo)
	copy(out, ivs[lo:hi])
	return out, nil
}

// Limit truncates the entry for (unit, amount, f) to the cache cap,
// deleting intervals farthest from the live window [from, to] first.
// Deletion is split across the two ends proportionally to each side's
// headroom, with both sides clamped to what is actually outside the window
// so the visible range is never discarded.
func (c *Cache) Limit(unit timeunit.Unit, amount int, from, to int64, f Formatter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey(unit, amount, f)
	ivs := c.entries[key]
	excess := len(ivs) - c.cap
	if excess <= 0 {
		return
	}

	// Headroom: whole intervals strictly outside [from, to] on each side.
	left := sort.Search(len(ivs), func(i int) bool { return ivs[i].End > from })
	right := len(ivs) - sort.Search(len(ivs), func(i int) bool { return ivs[i].Start >= to })

	delLeft := 0
	if left+right > 0 {
		delLeft = excess * left / (left + right)
	}
	if delLeft > left {
		delLeft = left
	}
	delRight := excess - delLeft
	if delRight > right {
		delRight = right
		delLeft = min(excess-delRight, left)
	}
	if delLeft < 0 {
		delLeft = 0
	}

	trimmed := ivs[delLeft : len(ivs)-delRight]
	c.entries[key] = append([]Interval(nil), trimmed...)
}

// Fetch is the common Update → Limit → Query sequence used by the engine.
func (c *Cache) Fetch(unit timeunit.Unit, amount int, from, to int64, f Formatter) ([]Interval, error) {
	if err := c.Update(unit, amount, from, to, f); err != nil {
		return nil, err
	}
	c.Limit(unit, amount, from, to, f)
	return c.Query(unit, amount, from, to, f)
}

// Len reports the current entry length, for tests and instrumentation.
func (c *Cache) Len(unit timeunit.Unit, amount int, f Formatter) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[entryKey(unit, amount, f)])
}
