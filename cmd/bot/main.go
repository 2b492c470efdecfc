package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"kursbot/internal/app"
)

func main() {
	configPath := flag.String("config", "./config.json", "path to config file (json or yaml)")
	flag.Parse()

	a, err := app.New(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kursbot: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// systemd integration is a no-op outside a unit with NotifyAccess.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go func() {
			t := time.NewTicker(interval / 2)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		}()
	}

	err = a.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kursbot: %v\n", err)
		os.Exit(1)
	}
}
