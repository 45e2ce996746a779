package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/swaprouter/internal/bus"
	"github.com/alanyoungcy/swaprouter/internal/config"
	"github.com/alanyoungcy/swaprouter/internal/domain"
	"github.com/alanyoungcy/swaprouter/internal/engine"
	"github.com/alanyoungcy/swaprouter/internal/execution"
	"github.com/alanyoungcy/swaprouter/internal/queue"
	"github.com/alanyoungcy/swaprouter/internal/routing"
	"github.com/alanyoungcy/swaprouter/internal/server"
	"github.com/alanyoungcy/swaprouter/internal/server/handler"
	"github.com/alanyoungcy/swaprouter/internal/server/ws"
	"github.com/alanyoungcy/swaprouter/internal/service"
	"github.com/alanyoungcy/swaprouter/internal/venue"
)

// ServeMode starts the API server and the order-processing engine and blocks
// until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	// Core processing plumbing.
	jobQueue := queue.New()
	eventBus := bus.New(a.logger)

	// Venues are listed in preference order: a price tie keeps the earlier
	// venue.
	raydium := venueFromConfig(domain.VenueRaydium, a.cfg.Venues.BasePrice, a.cfg.Venues.Raydium)
	meteora := venueFromConfig(domain.VenueMeteora, a.cfg.Venues.BasePrice, a.cfg.Venues.Meteora)
	router := routing.NewEngine([]venue.Venue{raydium, meteora}, a.logger)

	samplers := map[string]execution.PriceSampler{
		domain.VenueRaydium: raydium,
		domain.VenueMeteora: meteora,
	}
	var attester execution.Attester
	if deps.Signer != nil {
		attester = deps.Signer
	}
	simulator := execution.NewSimulator(execution.Config{
		FailureRate: a.cfg.Execution.FailureRate,
		MinLatency:  time.Duration(a.cfg.Execution.MinLatencyMs) * time.Millisecond,
		MaxLatency:  time.Duration(a.cfg.Execution.MaxLatencyMs) * time.Millisecond,
	}, samplers, attester, a.logger)

	runner := engine.NewRunner(router, simulator, eventBus, deps.OrderStore, deps.DecisionStore, a.logger)
	dispatcher := engine.NewDispatcher(jobQueue, runner, engine.Config{
		Workers:     a.cfg.Engine.Workers,
		RateLimit:   a.cfg.Engine.RateLimit,
		RateWindow:  time.Duration(a.cfg.Engine.RateWindowSeconds) * time.Second,
		MaxAttempts: a.cfg.Engine.MaxAttempts,
		BackoffBase: time.Duration(a.cfg.Engine.BackoffBaseMs) * time.Millisecond,
	}, a.logger)

	var attesterAddr string
	if deps.Signer != nil {
		attesterAddr = deps.Signer.Address()
	}
	orderSvc := service.NewOrderService(jobQueue, deps.OrderStore, deps.DecisionStore, attesterAddr, a.logger)

	// HTTP + WebSocket API.
	venueInfos := []handler.VenueInfo{
		{Name: raydium.Name(), FeeRate: raydium.FeeRate()},
		{Name: meteora.Name(), FeeRate: meteora.FeeRate()},
	}
	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(jobQueue, venueInfos, a.logger),
		Orders:    handler.NewOrderHandler(orderSvc, a.logger),
		Decisions: handler.NewDecisionHandler(orderSvc, a.logger),
	}
	stream := ws.NewStream(eventBus, a.logger)
	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
	}, handlers, stream, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	g.Go(func() error {
		return srv.Start()
	})

	// Shutdown sequencing: stop accepting HTTP first, then close the queue
	// so the dispatcher drains in-flight work and exits.
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}

		jobQueue.Close()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ArchiveMode runs a one-shot archival sweep: terminal orders and their
// decision-log entries older than the cutoff are uploaded to object storage
// as JSONL, then the process exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.CutoffDays)

	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Time("cutoff", cutoff),
	)

	orders, err := deps.Archiver.ArchiveOrders(ctx, cutoff)
	if err != nil {
		return err
	}

	decisions, err := deps.Archiver.ArchiveDecisions(ctx, cutoff)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "archive sweep complete",
		slog.Int64("orders", orders),
		slog.Int64("decisions", decisions),
	)
	return nil
}

// venueFromConfig builds a simulated venue from the configured bounds.
func venueFromConfig(name string, basePrice float64, cfg config.VenueConfig) *venue.Simulated {
	return venue.New(venue.Config{
		Name:       name,
		BasePrice:  basePrice,
		Low:        cfg.Low,
		High:       cfg.High,
		FeeRate:    cfg.FeeRate,
		MinLatency: time.Duration(cfg.MinLatencyMs) * time.Millisecond,
		MaxLatency: time.Duration(cfg.MaxLatencyMs) * time.Millisecond,
	})
}
