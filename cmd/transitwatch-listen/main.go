// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Command transitwatch-listen subscribes to hub topics and prints every
// event it receives as one JSON line on stdout. It reconnects with backoff
// and replays its subscriptions after each reconnect.
//
//	transitwatch-listen --url ws://localhost:8080/ws --channel route:45A --channel alerts
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/reconnect"
)

var version = "dev"

type cliArgs struct {
	URL         string   `validate:"required,url"`
	Token       string   `validate:"omitempty,min=10"`
	Channels    []string `validate:"required,min=1,dive,required"`
	MaxAttempts int      `validate:"gte=-1"`
	LogLevel    string   `validate:"required,oneof=debug info warn error"`
}

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		logging.Fatal().Err(err).Msg("transitwatch-listen stopped")
	}
}

func newApp(out io.Writer) *cli.App {
	var args cliArgs
	return &cli.App{
		Name:    "transitwatch-listen",
		Version: version,
		Usage:   "stream realtime transit events from a Transitwatch hub",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "hub WebSocket URL",
				EnvVars: []string{"TRANSITWATCH_WS_URL"},
				Value:   "ws://localhost:8080/ws",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "JWT sent in an auth frame after each connect",
				EnvVars: []string{"TRANSITWATCH_TOKEN"},
			},
			&cli.StringSliceFlag{
				Name:    "channel",
				Aliases: []string{"c"},
				Usage:   "topic to subscribe to; repeat or comma-separate",
				Value:   cli.NewStringSlice(string(events.TopicTracking)),
			},
			&cli.IntFlag{
				Name:  "max-attempts",
				Usage: "reconnect attempts before giving up; -1 retries forever",
				Value: reconnect.DefaultMaxAttempts,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "logging level: [debug info warn error]",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "warn",
			},
		},
		Before: func(c *cli.Context) error {
			args = cliArgs{
				URL:         c.String("url"),
				Token:       c.String("token"),
				Channels:    splitChannels(c.StringSlice("channel")),
				MaxAttempts: c.Int("max-attempts"),
				LogLevel:    c.String("log-level"),
			}
			if err := validator.New().Struct(&args); err != nil {
				return fmt.Errorf("invalid arguments: %w", err)
			}
			for _, ch := range args.Channels {
				if _, err := events.ParseTopic(ch); err != nil {
					return fmt.Errorf("invalid channel %q: %w", ch, err)
				}
			}
			logging.Init(logging.Config{Level: args.LogLevel, Format: "console"})
			return nil
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return listen(ctx, args, reconnect.Options{URL: args.URL, MaxAttempts: args.MaxAttempts}, out)
		},
	}
}

// listen runs the client until ctx ends or the retry budget is spent.
func listen(ctx context.Context, args cliArgs, opts reconnect.Options, out io.Writer) error {
	client := reconnect.New(opts)
	defer client.Close()

	client.On(reconnect.EventMessage, func(ev reconnect.Event) {
		if err := printFrame(out, ev.Frame); err != nil {
			logging.Warn().Err(err).Msg("Failed to write event")
		}
	})
	client.On(reconnect.EventConnected, func(reconnect.Event) {
		logging.Info().Str("url", args.URL).Msg("Connected")
	})
	client.On(reconnect.EventReconnecting, func(ev reconnect.Event) {
		logging.Warn().Int("attempt", ev.Attempt).Dur("delay", ev.Delay).Msg("Reconnecting")
	})
	client.On(reconnect.EventError, func(ev reconnect.Event) {
		logging.Debug().Err(ev.Err).Msg("Transport error")
	})

	if args.Token != "" {
		if err := client.Authenticate(args.Token); err != nil {
			return err
		}
	}
	for _, ch := range args.Channels {
		if err := client.Subscribe(ch); err != nil {
			return err
		}
	}

	err := client.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

type line struct {
	ReceivedAt time.Time       `json:"receivedAt"`
	Type       string          `json:"type"`
	Channel    string          `json:"channel,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func printFrame(w io.Writer, f *reconnect.Frame) error {
	if f == nil {
		return nil
	}
	raw, err := json.Marshal(line{
		ReceivedAt: time.Now().UTC(),
		Type:       f.Type,
		Channel:    f.Channel,
		Message:    f.Message,
		Data:       f.Data,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", raw)
	return err
}

// splitChannels flattens comma-separated values and drops duplicates.
func splitChannels(in []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range in {
		for _, ch := range strings.Split(v, ",") {
			ch = strings.TrimSpace(ch)
			if ch == "" {
				continue
			}
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			out = append(out, ch)
		}
	}
	return out
}
