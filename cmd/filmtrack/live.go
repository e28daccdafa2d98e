package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"film-frame-tracker/internal/config"
	"film-frame-tracker/internal/engine"
	"film-frame-tracker/internal/hostws"
	"film-frame-tracker/internal/opencv"
)

// runLive ticks the engine against a camera or video until interrupted or
// the video ends.
func runLive(cfg *config.Config, device string, serve bool, fps float64, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := opencv.OpenVideoSource(device)
	if err != nil {
		return err
	}

	flow, closeFlow := newFlow()
	defer closeFlow()

	eng, err := engine.New(engine.Options{
		Config:   cfg,
		Source:   src,
		Detector: newDetector(cfg, logger),
		Flow:     flow,
		Logger:   logger,
	})
	if err != nil {
		src.Close()
		return err
	}
	defer eng.Close()

	publish := func(s engine.Snapshot) {
		if p, ok := s.Locked(); ok {
			logger.Debug("tick", "seq", s.Seq, "id", p.ID, "provenance", p.Provenance, "region", p.Region(), "regions", len(s.Regions))
		}
	}

	serveErr := make(chan error, 1)
	if serve {
		srv := hostws.New(eng, logger)
		go func() { serveErr <- srv.ListenAndServe(ctx, cfg.ListenAddr) }()
		next := publish
		publish = func(s engine.Snapshot) {
			next(s)
			srv.Publish(s)
		}
	}

	if fps <= 0 {
		fps = 30
	}
	interval := time.Duration(float64(time.Second) / fps)
	logger.Info("live mode", "device", device, "interval", interval, "serve", serve)

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx, interval, publish) }()

	select {
	case err := <-runErr:
		stop()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case err := <-serveErr:
		stop()
		<-runErr
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
