// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !js

// Command tickrpc-demo runs a native frame loop that polls the latest
// blockhash through a tick-driven RPC client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/tickrpc"
	"code.hybscloud.com/tickrpc/chain"
	"code.hybscloud.com/tickrpc/internal/config"
	"code.hybscloud.com/tickrpc/internal/frameloop"
	"code.hybscloud.com/tickrpc/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tickrpc-demo:", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "path to config file")
	schemaOut := flag.String("schema", "", "write the config JSON schema to this path and exit")
	every := flag.Duration("every", 2*time.Second, "blockhash polling interval")
	flag.Parse()

	if *schemaOut != "" {
		return config.WriteSchema(*schemaOut)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := tickrpc.New(cfg.Options(logger))
	if err != nil {
		return err
	}
	logger.Info("client started",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("content_type", client.Codec().ContentType()),
		zap.Int("tick_rate", cfg.TickRate))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &poller{client: client, logger: logger, every: *every}
	loop := frameloop.New(frameloop.Config{TickRate: cfg.TickRate, CatchupMaxTicks: 2}, p.step, frameloop.Hooks{
		AfterStep: func(f frameloop.Frame) {
			if f.ClampedDelta {
				logger.Warn("frame stalled", zap.Uint64("tick", f.Tick), zap.Duration("duration", f.Duration))
			}
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return reportInFlight(gctx, client, logger) })

	err = g.Wait()
	n := client.Pending()
	if cerr := client.Close(); cerr != nil {
		logger.Warn("close client", zap.Error(cerr))
	}
	logger.Info("client closed", zap.Int("pending", n))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reportInFlight logs the registry size every few seconds.
func reportInFlight(ctx context.Context, client *tickrpc.Client, logger *zap.Logger) error {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			logger.Debug("registry", zap.Int("pending", client.Pending()), zap.Int("in_flight", client.InFlight()))
		}
	}
}

// poller submits one getLatestBlockhash per interval and reports results
// from inside the frame step.
type poller struct {
	client *tickrpc.Client
	logger *zap.Logger
	every  time.Duration

	ticket  tickrpc.Ticket
	pending bool
	nextAt  time.Time
}

func (p *poller) step(_ context.Context, f frameloop.Frame) {
	p.client.Tick()

	if p.pending {
		e, err := p.client.Poll(p.ticket)
		if err != nil || !e.State.Terminal() {
			return
		}
		p.pending = false
		bh, err := chain.TakeLatestBlockhash(p.client, p.ticket)
		if err != nil {
			p.logger.Warn("blockhash failed",
				zap.Stringer("ticket", p.ticket),
				zap.Int("attempts", e.Attempts),
				zap.Error(err))
			return
		}
		p.logger.Info("blockhash",
			zap.Stringer("ticket", p.ticket),
			zap.Uint64("frame", f.Tick),
			zap.String("blockhash", bh.Blockhash),
			zap.Uint64("last_valid_block_height", bh.LastValidBlockHeight))
		return
	}

	if f.Now.Before(p.nextAt) {
		return
	}
	p.nextAt = f.Now.Add(p.every)
	p.ticket = p.client.Submit(chain.GetLatestBlockhash(chain.Confirmed))
	p.pending = true
}
