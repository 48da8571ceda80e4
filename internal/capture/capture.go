// Package capture takes PNG snapshots of the served timeline page with a
// headless Chromium, driven through chromedp. It is how "the widget
// renders in a browser" is verified end to end without a human.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultTimeout = 30 * time.Second

// Options describes one snapshot.
type Options struct {
	// URL of the timeline page, e.g. "http://127.0.0.1:8080/timeline".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the browser viewport in pixels; zero values
	// take the page's own canvas size as rendered at 1280×720.
	Width  int
	Height int

	// Timeout bounds the entire capture. Zero selects a 30s default.
	Timeout time.Duration
}

// Snapshot navigates a headless Chromium to opts.URL, waits for the page
// to publish data-ready="true" on the timeline container, and writes a
// PNG screenshot.
func Snapshot(parent context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, opts.Timeout)
	defer cancelTimeout()

	var png []byte
	err := chromedp.Run(ctx, chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	})
	if err != nil {
		return fmt.Errorf("capture: chromedp run: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: writing %s: %w", opts.OutputPath, err)
	}
	return nil
}
