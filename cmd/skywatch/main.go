package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skywatch/skywatch/internal/config"
	"github.com/skywatch/skywatch/internal/gate"
	"github.com/skywatch/skywatch/internal/history"
	"github.com/skywatch/skywatch/internal/notify"
	"github.com/skywatch/skywatch/internal/wx"
)

func main() {
	configFlag := flag.String("config", "", "Path to the config file (default ~/.config/skywatch/config.toml)")
	alertsFlag := flag.String("alerts", "", "Path to the alerts JSON file written by the weather fetcher")
	onceFlag := flag.Bool("once", false, "Process a single refresh cycle, print decisions, and exit")
	statsFlag := flag.Bool("stats", false, "Print alert engine statistics and exit")
	flag.Parse()

	var loadResult *config.LoadResult
	var err error
	if *configFlag != "" {
		loadResult, err = config.LoadFrom(*configFlag)
	} else {
		loadResult, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "skywatch: config error: %v\n", err)
		os.Exit(1)
	}
	cfg := loadResult.Config

	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "skywatch: config warning: %s\n", w)
	}

	manager := gate.NewManager(config.ExpandTilde(cfg.Storage.StatePath), cfg.Alerts.Settings())

	if *statsFlag {
		printStats(manager.Statistics())
		return
	}

	alertsPath := cfg.Refresh.AlertsPath
	if *alertsFlag != "" {
		alertsPath = *alertsFlag
	}
	if alertsPath == "" {
		fmt.Fprintln(os.Stderr, "skywatch: no alerts file configured (set [refresh] alerts_path or pass -alerts)")
		os.Exit(1)
	}
	source := wx.NewFileSource(config.ExpandTilde(alertsPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *onceFlag {
		runOnce(ctx, source, manager)
		return
	}

	notifier := notify.NewPlatformNotifier(cfg.Alerts.NotificationsEnabled)

	histStore := history.OpenOrNil(config.ExpandTilde(cfg.Storage.HistoryDBPath))
	var opts []notify.SystemOption
	if histStore != nil {
		opts = append(opts, notify.WithRecorder(histStore))
		defer func() { _ = histStore.Close() }()
	}

	system := notify.NewSystem(manager, notifier, opts...)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(cfg.Refresh.IntervalMinutes) * time.Minute
	retention := time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour

	runCycle(ctx, source, system, histStore, retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			runCycle(ctx, source, system, histStore, retention)
		}
	}
}

// runCycle executes one refresh: fetch the current batch, run it through
// the gating engine, dispatch qualifying alerts, and trim the history log.
// Fetch failures skip the cycle; the next tick retries.
func runCycle(ctx context.Context, source wx.Source, system *notify.System, histStore *history.Store, retention time.Duration) {
	batch, err := source.Fetch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skywatch: fetch failed, skipping cycle: %v\n", err)
		return
	}

	sent := system.Process(batch)
	if sent > 0 {
		fmt.Printf("skywatch: delivered %d notification(s)\n", sent)
	}

	if histStore != nil {
		if _, err := histStore.Purge(time.Now().Add(-retention)); err != nil {
			fmt.Fprintf(os.Stderr, "skywatch: history purge failed: %v\n", err)
		}
	}
}

// runOnce processes a single batch and prints every decision without
// dispatching, for replaying captured alert feeds against the engine.
func runOnce(ctx context.Context, source wx.Source, manager *gate.Manager) {
	batch, err := source.Fetch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skywatch: fetch failed: %v\n", err)
		os.Exit(1)
	}

	decisions := manager.Process(batch)
	for _, d := range decisions {
		title, message, _ := notify.Compose(d.Alert, d.Reason)
		fmt.Printf("%-16s %s\n", d.Reason, title)
		fmt.Printf("%-16s %s\n", "", message)
	}
	fmt.Printf("%d of %d alerts qualified\n", len(decisions), len(batch))
}

func printStats(stats gate.Statistics) {
	fmt.Printf("tracked alerts:          %d\n", stats.TrackedAlerts)
	fmt.Printf("notifications this hour: %d\n", stats.NotificationsThisHour)
	fmt.Printf("recent notifications:    %d\n", stats.RecentNotifications)
	fmt.Printf("rate limit tokens:       %.1f / %.1f\n", stats.TokensAvailable, stats.TokenCapacity)
	fmt.Printf("min severity priority:   %d\n", stats.MinSeverityPriority)
	fmt.Printf("notifications enabled:   %t\n", stats.NotificationsEnabled)
	fmt.Printf("hourly cap:              %d\n", stats.MaxNotificationsPerHour)
}
