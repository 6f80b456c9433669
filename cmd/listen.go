package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var (
	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Receive logged packets off the runtime's network poller.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := ReadConf(confPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return listen(ctx, conf)
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Receive logged packets with blocking reads.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := ReadConf(confPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, conf)
		},
	}
)

func listen(ctx context.Context, conf *Config) error {
	d, err := kickstart(ctx, conf)
	if err != nil {
		return err
	}

	sock, err := d.queue.Socket()
	if err != nil {
		d.cleanup(true)
		return err
	}
	defer func() {
		d.cleanup(false)
		if err := sock.Close(); err != nil {
			slog.Error("error closing the socket", "err", err)
		}
	}()

	for {
		err := sock.Listen(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			slog.Info("exiting")
			return nil
		case errors.Is(err, unix.ENOBUFS):
			// The kernel dropped records: keep going.
			slog.Warn("socket buffer overrun, records were lost", "err", err)
		default:
			return err
		}
	}
}

// run drives the queue with blocking reads on a dedicated goroutine. Those
// can't be interrupted, so on exit the queue is left for the kernel to
// release along with the process.
func run(ctx context.Context, conf *Config) error {
	d, err := kickstart(ctx, conf)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		for {
			err := d.queue.Run(nil)
			if errors.Is(err, unix.ENOBUFS) {
				slog.Warn("socket buffer overrun, records were lost", "err", err)
				continue
			}
			errChan <- err
			return
		}
	}()

	select {
	case err := <-errChan:
		d.cleanup(true)
		return err
	case <-ctx.Done():
		slog.Info("exiting")
		d.cleanup(false)
		return nil
	}
}
