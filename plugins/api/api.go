// Package api exposes the state of the NFLOG queues over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

var logger = slog.New(slog.DiscardHandler)

type ApiPlugin struct {
	Config

	server  *echo.Echo
	sources map[uint16]Source
}

func NewApiPlugin(c *Config, sources ...Source) (*ApiPlugin, error) {
	if c.Log {
		logger = slog.Default().With("t", "api")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initialising the api plugin")

	p := ApiPlugin{
		Config:  *c,
		server:  echo.New(),
		sources: make(map[uint16]Source, len(sources)),
	}

	for _, s := range sources {
		if _, ok := p.sources[s.Group()]; ok {
			return nil, fmt.Errorf("group %d provided twice", s.Group())
		}
		p.sources[s.Group()] = s
	}

	// Configure the middleware for extending the context of the
	// different handlers.
	p.server.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&extendedContext{c, p.server.Routes(), p.sources})
		}
	})

	// Configure the methods for each path
	p.server.GET("/", handleRoot)
	p.server.GET("/queues", handleQueues)
	p.server.GET("/queues/:group", handleQueue)
	p.server.GET("/queues/:group/stats", handleQueueStats)
	p.server.GET("/process", handleProcess)

	// Prevent the banner from showing up in the log
	p.server.HideBanner = true
	p.server.HidePort = true

	return &p, nil
}

func (p *ApiPlugin) String() string {
	return "api"
}

// Run serves the API until done is closed.
func (p *ApiPlugin) Run(done <-chan struct{}) {
	logger.Debug("running the api plugin")

	go func() {
		if err := p.server.Start(fmt.Sprintf("%s:%d", p.BindAddress, p.BindPort)); err != http.ErrServerClosed {
			logger.Error("couldn't start the API server", "err", err)
		}
	}()

	// Simply wait until we're done
	<-done
	logger.Debug("cleanly exiting the api plugin")
}

func (p *ApiPlugin) Cleanup() error {
	logger.Debug("cleaning up the api plugin")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down the API server: %w", err)
	}
	return nil
}
