package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/scitags/go-nflog/backends/prometheus"
	"github.com/scitags/go-nflog/nflog"
	"github.com/scitags/go-nflog/plugins/api"
	"github.com/scitags/go-nflog/rules"
	"github.com/scitags/go-nflog/types"
	"github.com/spf13/pflag"
)

// daemon bundles everything set up around an NFLOG queue.
type daemon struct {
	queue    *nflog.Queue
	rule     *rules.Installed
	services []types.Service
	done     chan struct{}
}

func kickstart(ctx context.Context, conf *Config) (*daemon, error) {
	overrideGroup(rootCmd.PersistentFlags(), conf)

	slog.Debug("loaded configuration", "conf", conf)

	q, err := conf.Queue.Build(newPrinter(*conf.Output, os.Stdout))
	if err != nil {
		return nil, fmt.Errorf("error building the queue: %w", err)
	}

	d := &daemon{queue: q, done: make(chan struct{})}

	if conf.Rule != nil {
		rc := *conf.Rule
		rc.Group = q.Group()
		d.rule, err = rules.Install(ctx, rc)
		if err != nil {
			d.cleanup(true)
			return nil, err
		}
	}

	if conf.Backends != nil && conf.Backends.Prometheus != nil {
		b, err := prometheus.NewPrometheusBackend(conf.Backends.Prometheus, q)
		if err != nil {
			d.cleanup(true)
			return nil, fmt.Errorf("error creating the prometheus backend: %w", err)
		}
		d.services = append(d.services, b)
	}

	if conf.Plugins != nil && conf.Plugins.Api != nil {
		p, err := api.NewApiPlugin(conf.Plugins.Api, q)
		if err != nil {
			d.cleanup(true)
			return nil, fmt.Errorf("error creating the api plugin: %w", err)
		}
		d.services = append(d.services, p)
	}

	for _, s := range d.services {
		slog.Debug("starting service", "service", s)
		go s.Run(d.done)
	}

	slog.Info("listening for logged packets", "group", q.Group(), "families", q.Config().AddressFamilies)

	return d, nil
}

// cleanup tears everything down. The queue is only closed when closeQueue
// is set: it can't be closed while another goroutine is blocked reading it.
func (d *daemon) cleanup(closeQueue bool) {
	close(d.done)

	for _, s := range d.services {
		if err := s.Cleanup(); err != nil {
			slog.Error("error cleaning up service", "service", s, "err", err)
		}
	}

	if d.rule != nil {
		if err := d.rule.Remove(context.Background()); err != nil {
			slog.Error("error removing the rules", "err", err)
		}
	}

	if closeQueue {
		if err := d.queue.Close(); err != nil && !errors.Is(err, nflog.ErrClosed) {
			slog.Error("error closing the queue", "err", err)
		}
	}
}

// overrideGroup applies --group on top of the configuration, but only when
// it was actually given.
func overrideGroup(flags *pflag.FlagSet, conf *Config) {
	if flags.Changed("group") {
		conf.Queue.Group = groupFlag
	}
}
