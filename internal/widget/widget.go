// Package widget assembles one mounted timeline instance: a viewport, an
// interval engine, an event store and the layout metrics, wired together
// and torn down as a unit. Consumers receive the instance explicitly;
// there is no module-level singleton.
package widget

import (
	"context"
	"time"

	"timegrid/internal/config"
	"timegrid/internal/interval"
	"timegrid/internal/render"
	"timegrid/internal/store"
	"timegrid/internal/timeunit"
	"timegrid/internal/viewport"
)

// Widget is one mounted timeline.
type Widget struct {
	Viewport *viewport.Viewport
	Engine   *interval.Engine
	Store    *store.Store
	Layout   render.Layout
	Theme    render.Theme

	opts interval.Options
}

// Mount creates a widget instance per the configuration, showing
// cfg.HorizonDays centered on now.
func Mount(cfg *config.Config, now time.Time) *Widget {
	opts := interval.Options{
		Location:     cfg.Location(),
		WeekStartsOn: cfg.WeekStartsOn(),
	}

	span := float64(cfg.HorizonDays) * float64(timeunit.DayMs)
	width := float64(cfg.CanvasWidth)
	tpp := span / width
	start := float64(now.UnixMilli()) - span/2

	return &Widget{
		Viewport: viewport.New(start, tpp, width, float64(cfg.CanvasHeight)),
		Engine:   interval.NewEngine(opts, cfg.CacheCap),
		Store:    store.New(),
		Layout:   render.DefaultLayout(),
		Theme:    render.DefaultTheme(),
		opts:     opts,
	}
}

// Unmount releases the widget's owned resources.
func (w *Widget) Unmount() {
	w.Engine.Close()
}

// overscan is how much beyond the visible range each frame requests, in
// screen widths, so small pans are served from cache.
const overscan = 0.5

// Frame renders the current state to a complete SVG document.
func (w *Widget) Frame(ctx context.Context) (string, error) {
	vs := w.Viewport.State()
	sc := render.ChooseScale(vs.TimePerPixel)

	margin := overscan * vs.CanvasWidth * vs.TimePerPixel
	from := int64(vs.TimeStart - margin)
	to := int64(vs.TimeEnd() + margin)

	grid, err := w.Engine.Get(ctx, interval.Request{
		Unit: sc.GridUnit, Amount: sc.GridAmount, From: from, To: to,
	})
	if err != nil {
		return "", err
	}
	header, err := w.Engine.Get(ctx, interval.Request{
		Unit: sc.HeaderUnit, Amount: sc.HeaderAmount, From: from, To: to, Format: sc.HeaderFormat,
	})
	if err != nil {
		return "", err
	}

	var weekend []interval.Interval
	if timeunit.PixelWidth(timeunit.Day, 1, vs.TimePerPixel) >= 3 {
		weekend, err = w.Engine.Get(ctx, interval.Request{
			Unit: timeunit.Day, Amount: 1, From: from, To: to,
		})
		if err != nil {
			return "", err
		}
	}

	groups := w.Store.Groups()
	bands := render.Bands(groups, w.Store.LaneCount, w.Layout)
	w.Viewport.SetContentHeight(render.ContentHeight(bands, w.Layout))
	vs = w.Viewport.State()

	data := render.GridData{Header: header, Grid: grid, Weekend: weekend}
	return render.SVG(vs, data, groups, w.Store.View(), w.Store.Lane, bands, w.Layout, w.Theme), nil
}

// Intervals is the external interval query: ordered labeled cells of
// amount×unit covering [from, to].
func (w *Widget) Intervals(ctx context.Context, unit timeunit.Unit, amount int, from, to int64, f interval.Formatter) ([]interval.Interval, error) {
	return w.Engine.Get(ctx, interval.Request{
		Unit: unit, Amount: amount, From: from, To: to, Format: f,
	})
}

// Lane is the external event-position query.
func (w *Widget) Lane(eventID, groupID string) int {
	return w.Store.Lane(eventID, groupID)
}

// Bands returns the current group geometry, as used for drag retargeting.
func (w *Widget) Bands() []store.Band {
	return render.Bands(w.Store.Groups(), w.Store.LaneCount, w.Layout)
}
