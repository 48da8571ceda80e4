// Package render assembles the presentational SVG skin around the engine:
// grid lines, header cells, weekend shading and lane-positioned event
// bars. It contains no layout intelligence of its own: every coordinate
// is derived from the viewport's anchored transform and the store's lane
// assignments.
package render

import (
	"fmt"
	"html"
	"strings"

	"timegrid/internal/interval"
	"timegrid/internal/lane"
	"timegrid/internal/store"
	"timegrid/internal/viewport"
)

// Layout holds the vertical metrics of the widget.
type Layout struct {
	HeaderHeight float64
	RowHeight    float64
	GroupGap     float64
	BarInset     float64
}

// DefaultLayout matches the proportions of the reference widget.
func DefaultLayout() Layout {
	return Layout{HeaderHeight: 48, RowHeight: 28, GroupGap: 4, BarInset: 3}
}

// Theme is the color palette.
type Theme struct {
	Background string
	GridLine   string
	HeaderText string
	Weekend    string
	Bar        string
	BarText    string
	GroupLine  string
}

// DefaultTheme returns the standard palette.
func DefaultTheme() Theme {
	return Theme{
		Background: "#ffffff",
		GridLine:   "#e0e0e0",
		HeaderText: "#333333",
		Weekend:    "#f3f4f6",
		Bar:        "#4285f4",
		BarText:    "#ffffff",
		GroupLine:  "#cccccc",
	}
}

// GridData carries the interval sets a frame needs.
type GridData struct {
	Header  []interval.Interval // labeled coarse cells for the header row
	Grid    []interval.Interval // fine cells for vertical grid lines
	Weekend []interval.Interval // day cells carrying IsWeekend
}

// Bands computes the vertical band of each group under the current layout
// and lane usage: the geometry used both for rendering and for drag group
// retargeting.
func Bands(groups []store.Group, laneCount func(groupID string) int, l Layout) []store.Band {
	top := l.HeaderHeight
	bands := make([]store.Band, 0, len(groups))
	for _, g := range groups {
		rows := laneCount(g.ID)
		if g.Compact {
			rows = 1
		}
		h := float64(rows)*l.RowHeight + l.GroupGap
		bands = append(bands, store.Band{GroupID: g.ID, Top: top, Height: h})
		top += h
	}
	return bands
}

// ContentHeight is the total stacked height of header plus all bands.
func ContentHeight(bands []store.Band, l Layout) float64 {
	h := l.HeaderHeight
	for _, b := range bands {
		h += b.Height
	}
	return h
}

// SVG renders one full frame.
//
// All horizontal positions are expressed in the anchored reference frame,
// (t - TimeZero) / TimePerPixelAnchor, inside a container whose transform
// maps that frame onto live screen pixels. Between realignments only the
// container transform changes, which keeps per-frame updates cheap and
// numerically stable.
func SVG(vs viewport.State, data GridData, groups []store.Group, events []store.Event,
	laneOf func(eventID, groupID string) int, bands []store.Band, l Layout, th Theme) string {

	scale := vs.TimePerPixelAnchor / vs.TimePerPixel
	shift := (vs.TimeZero - vs.TimeStart) / vs.TimePerPixel

	bandOf := make(map[string]store.Band, len(bands))
	for _, b := range bands {
		bandOf[b.GroupID] = b
	}

	// Compact groups squeeze into one row: overlapping events split the row
	// vertically instead of claiming extra lanes.
	compact := make(map[string]map[string]lane.Slot)
	for _, g := range groups {
		if !g.Compact {
			continue
		}
		var spans []lane.Span
		for _, ev := range events {
			if ev.GroupID == g.ID {
				spans = append(spans, lane.Span{ID: ev.ID, Start: ev.Start, End: ev.End})
			}
		}
		compact[g.ID] = lane.Distribute(spans)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f" xmlns="http://www.w3.org/2000/svg">`,
		vs.CanvasWidth, vs.CanvasHeight, vs.CanvasWidth, vs.CanvasHeight)
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`, th.Background)

	// Scrollable content in the anchored frame.
	fmt.Fprintf(&b, `<g transform="translate(%.3f 0) scale(%.6f 1)">`, shift, scale)

	for _, iv := range data.Weekend {
		if !iv.IsWeekend {
			continue
		}
		x := vs.AnchoredPixelAt(float64(iv.Start))
		w := vs.AnchoredPixelAt(float64(iv.End)) - x
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.1f" width="%.2f" height="%.1f" fill="%s"/>`,
			x, l.HeaderHeight, w, vs.CanvasHeight-l.HeaderHeight, th.Weekend)
	}

	for _, iv := range data.Grid {
		x := vs.AnchoredPixelAt(float64(iv.Start))
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.1f" x2="%.2f" y2="%.1f" stroke="%s" stroke-width="1" vector-effect="non-scaling-stroke"/>`,
			x, l.HeaderHeight, x, vs.CanvasHeight, th.GridLine)
	}

	for _, ev := range events {
		band, ok := bandOf[ev.GroupID]
		if !ok {
			continue
		}
		x := vs.AnchoredPixelAt(float64(ev.Start))
		w := vs.AnchoredPixelAt(float64(ev.End)) - x
		var y, h float64
		if slots, ok := compact[ev.GroupID]; ok {
			s := slots[ev.ID]
			if s.Of < 1 {
				s.Of = 1
			}
			slice := l.RowHeight / float64(s.Of)
			y = band.Top - vs.ScrollOffset + float64(s.Index)*slice + 1
			h = slice - 2
		} else {
			y = band.Top - vs.ScrollOffset + float64(laneOf(ev.ID, ev.GroupID))*l.RowHeight + l.BarInset
			h = l.RowHeight - 2*l.BarInset
		}
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.1f" width="%.2f" height="%.1f" rx="3" fill="%s"%s/>`,
			x, y, w, h, th.Bar, selectedAttr(ev))
	}

	b.WriteString(`</g>`)

	// Group separators and header sit above the scaled content.
	for _, band := range bands {
		y := band.Top - vs.ScrollOffset + band.Height
		fmt.Fprintf(&b, `<line x1="0" y1="%.1f" x2="%.0f" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			y, vs.CanvasWidth, y, th.GroupLine)
	}

	fmt.Fprintf(&b, `<rect x="0" y="0" width="%.0f" height="%.1f" fill="%s"/>`,
		vs.CanvasWidth, l.HeaderHeight, th.Background)
	for _, iv := range data.Header {
		x := vs.PixelAt(float64(iv.Start))
		if iv.Label == "" {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.1f" font-size="12" fill="%s">%s</text>`,
			x+4, l.HeaderHeight-16, th.HeaderText, html.EscapeString(iv.Label))
	}
	fmt.Fprintf(&b, `<line x1="0" y1="%.1f" x2="%.0f" y2="%.1f" stroke="%s" stroke-width="1"/>`,
		l.HeaderHeight, vs.CanvasWidth, l.HeaderHeight, th.GridLine)

	b.WriteString(`</svg>`)
	return b.String()
}

func selectedAttr(ev store.Event) string {
	if ev.Selected {
		return ` stroke="#1a56c4" stroke-width="2"`
	}
	return ""
}

// Page wraps the SVG in a minimal HTML document. The data-ready attribute
// is the capture contract: the snapshot tool waits for it before taking
// the screenshot.
func Page(svg string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>timegrid</title>")
	b.WriteString("<style>body{margin:0;background:#fff}</style></head>\n")
	b.WriteString("<body><div id=\"timeline\" data-ready=\"true\">")
	b.WriteString(svg)
	b.WriteString("</div></body>\n</html>\n")
	return b.String()
}
