// Command timegrid serves an interactive SVG timeline of the configured
// calendar sources and can snapshot it through a headless browser.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"timegrid/internal/capture"
	"timegrid/internal/config"
	applog "timegrid/internal/log"
	"timegrid/internal/source"
	"timegrid/internal/store"
	"timegrid/internal/web"
	"timegrid/internal/widget"
)

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	snapshot   string
	once       bool
}

func main() {
	flags := parseFlags()
	if flags.logLevel != "" {
		applog.SetLevel(flags.logLevel)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		applog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel == "" {
		applog.SetLevel(conf.LogLevel)
	}

	applog.Info("timegrid starting",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"horizon_days", conf.HorizonDays,
		"sources", len(conf.ICS),
		"refresh", conf.RefreshCron,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		applog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	w := widget.Mount(conf, time.Now())
	defer w.Unmount()

	fetcher := source.NewFetcher()
	refresh := func() { refreshSources(ctx, conf, fetcher, w) }
	refresh()

	if flags.once && flags.snapshot == "" {
		return
	}

	var sched *cron.Cron
	if len(conf.ICS) > 0 {
		sched = cron.New()
		if _, err := sched.AddFunc(conf.RefreshCron, refresh); err != nil {
			applog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{Addr: conf.Listen, Handler: web.NewServer(conf, w).Handler()}
	errCh := make(chan error, 1)
	go func() {
		applog.Info("HTTP server listening", "addr", conf.Listen)
		errCh <- srv.ListenAndServe()
	}()

	if flags.snapshot != "" {
		// Give the listener a moment before pointing the browser at it.
		time.Sleep(300 * time.Millisecond)
		err := capture.Snapshot(ctx, capture.Options{
			URL:        "http://" + conf.Listen + "/timeline",
			OutputPath: flags.snapshot,
			Width:      conf.CanvasWidth,
			Height:     conf.CanvasHeight,
		})
		if err != nil {
			applog.Error("snapshot failed", err, "output", flags.snapshot)
			_ = srv.Close()
			os.Exit(1)
		}
		applog.Info("snapshot written", "output", flags.snapshot)
		_ = srv.Close()
		return
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}
	applog.Info("timegrid exiting")
}

// refreshSources reloads every configured ICS feed into the store over a
// window somewhat wider than the configured horizon.
func refreshSources(ctx context.Context, conf *config.Config, fetcher *source.Fetcher, w *widget.Widget) {
	if len(conf.ICS) == 0 {
		return
	}
	pad := time.Duration(conf.HorizonDays) * 24 * time.Hour
	now := time.Now().In(conf.Location())
	from, to := now.Add(-pad), now.Add(2*pad)

	for i, ics := range conf.ICS {
		src := source.Source{ID: ics.ID, URL: ics.URL, Group: ics.Group}
		events, err := fetcher.Load(ctx, src, from, to)
		if err != nil {
			applog.Error("source refresh failed", err, "source", src.ID)
			continue
		}
		w.Store.PutGroup(store.Group{ID: src.Group, Label: src.Group, Order: i})
		for _, ev := range events {
			if err := w.Store.PutEvent(ev); err != nil {
				applog.Warn("rejected event from source", "source", src.ID, "event", ev.ID, "reason", err)
			}
		}
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig
	flag.StringVar(&cfg.configPath, "config", "", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Write a PNG snapshot of the timeline to this path and exit")
	flag.BoolVar(&cfg.once, "once", false, "Load sources once and exit without serving")
	flag.Parse()
	return cfg
}
