package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soocke/weapon-watch/app"
	"github.com/soocke/weapon-watch/app/window"
	"github.com/soocke/weapon-watch/config"
	"github.com/soocke/weapon-watch/debug"
	"github.com/soocke/weapon-watch/ops"
	"github.com/soocke/weapon-watch/tracing"
)

func main() {
	cfgPath := flag.String("config", "weapon-watch.json", "path to the JSON config file")
	headless := flag.Bool("headless", false, "run one detection session without a window")
	debugFlag := flag.Bool("debug", false, "debug logging and periodic runtime stats")
	sourceKind := flag.String("source", "", "video source override: camera, file or screen")
	videoPath := flag.String("video", "", "video file to analyze (implies -source file)")
	flag.Parse()

	cfg, cfgErr := config.Load(*cfgPath)
	if *debugFlag {
		cfg.Debug = true
	}
	if *sourceKind != "" {
		cfg.Source = *sourceKind
	}
	if *videoPath != "" {
		cfg.Source = config.SourceFile
		cfg.VideoPath = *videoPath
	}
	_ = cfg.Validate()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)
	slog.SetDefault(logger)
	if cfgErr != nil {
		logger.Warn("config load failed, using defaults", "path", *cfgPath, "error", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("tracing disabled", "error", err)
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(sctx)
		}()
	}

	c := app.BuildContainer(cfg, *cfgPath, logger)

	if cfg.OpsAddr != "" {
		srv, err := ops.Start(cfg.OpsAddr, c.SessionStats, logger)
		if err != nil {
			logger.Error("ops server disabled", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(sctx)
			}()
		}
	}
	if cfg.Debug {
		debug.StartStatsLogger(ctx, time.Duration(cfg.DebugInterval)*time.Second, logger, c.SessionStats)
	}

	if *headless {
		if err := app.NewHeadless(c).Run(ctx); err != nil {
			logger.Error("headless run failed", "error", err)
			stop()
			os.Exit(1)
		}
		return
	}
	window.Run(c, "Weapon Watch", 900, 760)
}
