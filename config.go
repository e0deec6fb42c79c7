package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"go.yaml.in/yaml/v4"

	"lyricon/publishers"
)

const (
	defaultListen       = "127.0.0.1:7750"
	defaultTickInterval = 100
	defaultPollInterval = 1000
)

type rawPublisher struct {
	ID      string    `yaml:"id"`
	Offset  int64     `yaml:"offset"`
	Options yaml.Node `yaml:"options"`
}

type rawMPRIS struct {
	Enabled      *bool `yaml:"enabled"`
	PollInterval int   `yaml:"poll_interval"`
}

type rawConfig struct {
	LogLevel     string          `yaml:"log_level"`
	Listen       *string         `yaml:"listen"`
	ShowTitle    bool            `yaml:"show_title"`
	TickInterval int             `yaml:"tick_interval"`
	Filters      []string        `yaml:"filters"`
	URLBlacklist []string        `yaml:"url_blacklist"`
	MPRIS        rawMPRIS        `yaml:"mpris"`
	Publishers   []*rawPublisher `yaml:"publishers"`
}

// CreatePublisher builds a publisher from its config entry. conn is the
// session bus, or nil when there is none.
func CreatePublisher(p *rawPublisher, conn *dbus.Conn) (publishers.Publisher, error) {
	switch p.ID {
	case publishers.FilePublisherID:
		opt := &publishers.FilePublisherOptions{}
		if err := p.Options.Decode(opt); err != nil {
			return nil, err
		}
		return publishers.NewFilePublisher(opt)
	case publishers.HTTPPublisherID:
		opt := &publishers.HTTPPublisherOptions{}
		if err := p.Options.Decode(opt); err != nil {
			return nil, err
		}
		return publishers.NewHTTPPublisher(opt)
	case publishers.WebSocketPublisherID:
		opt := &publishers.WebSocketPublisherOptions{}
		if err := p.Options.Decode(opt); err != nil {
			return nil, err
		}
		return publishers.NewWebSocketPublisher(opt), nil
	case publishers.DBusPublisherID:
		opt := &publishers.DBusPublisherOptions{}
		if err := p.Options.Decode(opt); err != nil {
			return nil, err
		}
		return publishers.NewDBusPublisher(conn, opt)
	}
	return nil, fmt.Errorf("unknown publisher %q", p.ID)
}

type MPRISConfig struct {
	Enabled      bool
	PollInterval time.Duration
}

type Config struct {
	LogLevel     slog.Level
	Listen       string
	ShowTitle    bool
	TickInterval time.Duration
	Filters      []string
	URLBlacklist []string
	MPRIS        MPRISConfig
	Publishers   []*rawPublisher
}

// ParseConfig reads the config at path. A missing file yields the defaults.
func ParseConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("no config file, using defaults", "path", path)
		buf = nil
	} else if err != nil {
		return nil, err
	}
	return parseConfig(buf)
}

func parseConfig(buf []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, err
	}

	var logLevel slog.Level
	switch raw.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info", "":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", raw.LogLevel)
	}

	if raw.TickInterval < 0 || raw.MPRIS.PollInterval < 0 {
		return nil, errors.New("intervals must not be negative")
	}
	tick := raw.TickInterval
	if tick == 0 {
		tick = defaultTickInterval
	}
	poll := raw.MPRIS.PollInterval
	if poll == 0 {
		poll = defaultPollInterval
	}

	listen := defaultListen
	if raw.Listen != nil {
		listen = *raw.Listen
	}

	for _, p := range raw.Publishers {
		if p == nil || p.ID == "" {
			return nil, errors.New("publisher without id")
		}
	}

	config := &Config{
		LogLevel:     logLevel,
		Listen:       listen,
		ShowTitle:    raw.ShowTitle,
		TickInterval: time.Duration(tick) * time.Millisecond,
		Filters:      raw.Filters,
		URLBlacklist: raw.URLBlacklist,
		MPRIS: MPRISConfig{
			Enabled:      raw.MPRIS.Enabled == nil || *raw.MPRIS.Enabled,
			PollInterval: time.Duration(poll) * time.Millisecond,
		},
		Publishers: raw.Publishers,
	}
	return config, nil
}
