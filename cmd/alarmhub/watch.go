package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"alarmhub/internal/board"
	"alarmhub/internal/logging"
	"alarmhub/internal/reconciler"
)

type viewerFlags struct {
	url     string
	token   string
	logFile string
}

func (f *viewerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "ws://localhost:8080/ws", "hub websocket URL")
	cmd.Flags().StringVar(&f.token, "token", os.Getenv("ALARMHUB_TOKEN"), "bearer token when the hub requires login")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "write logs here instead of discarding them")
}

func (f *viewerFlags) logger() (*slog.Logger, func(), error) {
	if f.logFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	file, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := logging.New(file, "debug", "text")
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return logger, func() { file.Close() }, nil
}

func newWatchCmd() *cobra.Command {
	var (
		vf       viewerFlags
		interval time.Duration
		assignee string
		retry    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the live incident board in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog, err := vf.logger()
			if err != nil {
				return err
			}
			defer closeLog()

			rec := reconciler.New(logger, reconciler.Options{ReadingInterval: interval, Token: vf.token})
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go keepConnected(ctx, rec, vf.url, retry, logger)

			return board.Run(rec, assignee)
		},
	}
	vf.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", reconciler.DefaultReadingInterval, "minimum time between applied updates")
	cmd.Flags().StringVar(&assignee, "assignee", "user-1", "owner for incidents moved into an owned column")
	cmd.Flags().DurationVar(&retry, "retry", 3*time.Second, "delay before reconnecting after the hub goes away")
	return cmd
}

// keepConnected reruns the reconciler until ctx ends. Each reconnect starts
// from a fresh init snapshot.
func keepConnected(ctx context.Context, rec *reconciler.Reconciler, url string, retry time.Duration, logger *slog.Logger) {
	for {
		err := rec.Run(ctx, url)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("hub connection lost", "err", err, "retry_in", retry)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
