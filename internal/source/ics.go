// Package source loads timeline events from subscribed ICS calendars.
// It is an input adapter only: events land in the in-memory store, and
// nothing is written back.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	applog "timegrid/internal/log"
	"timegrid/internal/store"
)

// maxOccurrences caps recurrence expansion per VEVENT.
const maxOccurrences = 1000

// Source identifies one ICS subscription.
type Source struct {
	ID    string
	URL   string
	Group string
}

// Fetcher retrieves ICS payloads over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a bounded-timeout HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch downloads the ICS body for src.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("source %s: building request: %w", src.ID, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source %s: fetch: %w", src.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s: fetch: unexpected status %d", src.ID, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("source %s: reading body: %w", src.ID, err)
	}
	return body, nil
}

// Load fetches and parses src, returning the events that intersect
// [from, to].
func (f *Fetcher) Load(ctx context.Context, src Source, from, to time.Time) ([]store.Event, error) {
	body, err := f.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return Parse(src, body, from, to)
}

// Parse converts an ICS payload into store events within [from, to],
// expanding RRULE recurrences. Malformed VEVENTs are logged and skipped so
// one bad entry does not sink the whole feed.
func Parse(src Source, body []byte, from, to time.Time) ([]store.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("source: empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("source %s: parsing ICS: %w", src.ID, err)
	}

	var out []store.Event
	for _, ve := range cal.Events() {
		evs, perr := expandVEvent(src, ve, from, to)
		if perr != nil {
			applog.Warn("skipping unparsable VEVENT", "source", src.ID, "reason", perr)
			continue
		}
		out = append(out, evs...)
	}
	applog.Info("ICS source loaded", "source", src.ID, "events", len(out))
	return out, nil
}

func expandVEvent(src Source, ve *ical.VEvent, from, to time.Time) ([]store.Event, error) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return nil, errors.New("missing UID")
	}
	uid := uidProp.Value

	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil || !end.After(start) {
		end = start.Add(time.Hour)
	}
	dur := end.Sub(start)

	rawRRule := ""
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rawRRule = p.Value
	}

	if rawRRule == "" {
		if end.Before(from) || start.After(to) {
			return nil, nil
		}
		return []store.Event{makeEvent(src, uid, start, end)}, nil
	}

	r, err := rrule.StrToRRule(rawRRule)
	if err != nil {
		return nil, fmt.Errorf("RRULE %q: %w", rawRRule, err)
	}
	r.DTStart(start)

	occ := r.Between(from.Add(-dur), to, true)
	if len(occ) > maxOccurrences {
		applog.Warn("recurrence expansion truncated", "source", src.ID, "uid", uid, "cap", maxOccurrences)
		occ = occ[:maxOccurrences]
	}

	out := make([]store.Event, 0, len(occ))
	for _, s := range occ {
		out = append(out, makeEvent(src, uid, s, s.Add(dur)))
	}
	return out, nil
}

func makeEvent(src Source, uid string, start, end time.Time) store.Event {
	return store.Event{
		ID:      eventID(src.ID, uid, start),
		Start:   start.UnixMilli(),
		End:     end.UnixMilli(),
		GroupID: src.Group,
	}
}

// eventID derives a stable per-occurrence ID.
func eventID(sourceID, uid string, start time.Time) string {
	var b strings.Builder
	b.WriteString(sourceID)
	b.WriteString("/")
	b.WriteString(uid)
	b.WriteString("/")
	b.WriteString(start.UTC().Format(time.RFC3339))
	return b.String()
}
