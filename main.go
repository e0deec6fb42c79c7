package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sync/errgroup"

	"lyricon/bridge"
	"lyricon/central"
	"lyricon/providers"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if *configPath == "" {
		userConfigDir, err := os.UserConfigDir()
		if err != nil {
			log.Fatal("failed to get user config directory:", err)
		}
		*configPath = filepath.Join(userConfigDir, "lyricon", "config.yaml")
	}
	config, err := ParseConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	slog.SetLogLoggerLevel(config.LogLevel)

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		slog.Warn("no session bus, mpris and dbus publishers disabled", "error", err)
	}

	entries := make([]*PublisherEntry, 0, len(config.Publishers))
	for _, p := range config.Publishers {
		publisher, err := CreatePublisher(p, conn)
		if err != nil {
			slog.Error("failed to create publisher", "error", err, "publisher", p.ID)
			continue
		}
		entries = append(entries, NewPublisherEntry(publisher, p.Offset))
	}

	dispatcher := central.NewDispatcher()
	providerManager := central.NewProviderManager(dispatcher)
	subscriberManager := central.NewSubscriberManager(dispatcher)

	controller := NewController(&ControllerOptions{
		publishers:   entries,
		showTitle:    config.ShowTitle,
		filters:      config.Filters,
		tickInterval: config.TickInterval,
		active:       dispatcher,
	})
	dispatcher.AddListener(controller)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if config.Listen != "" {
		server := bridge.NewServer(providerManager, subscriberManager)
		g.Go(func() error {
			return server.ListenAndServe(ctx, config.Listen)
		})
	}
	if config.MPRIS.Enabled && conn != nil {
		mpris := providers.NewMPRIS(conn, providerManager, &providers.MPRISOptions{
			PollInterval: config.MPRIS.PollInterval,
			URLBlacklist: config.URLBlacklist,
		})
		g.Go(func() error {
			return mpris.Serve(ctx)
		})
	}

	err = g.Wait()
	slog.Info("shutting down")
	dispatcher.RemoveListener(controller)
	controller.Exit()
	if conn != nil {
		conn.Close()
	}
	if err != nil {
		log.Fatal(err)
	}
}
