package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alxayo/go-mediaserver/internal/codec/rtmpio"
	"github.com/alxayo/go-mediaserver/internal/config"
	"github.com/alxayo/go-mediaserver/internal/control"
	taskhooks "github.com/alxayo/go-mediaserver/internal/hooks"
	"github.com/alxayo/go-mediaserver/internal/logger"
	"github.com/alxayo/go-mediaserver/internal/metrics"
	"github.com/alxayo/go-mediaserver/internal/mixing"
	"github.com/alxayo/go-mediaserver/internal/pipeline"
	srv "github.com/alxayo/go-mediaserver/internal/rtmp/server"
	"github.com/alxayo/go-mediaserver/internal/taskmanager"
)

var version = "dev"

func main() {
	fs, v := config.FlagSet("mediasrv")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		// flag package already printed usage/error
		os.Exit(2)
	}
	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(v.ConfigPath(), fs, v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger.Init()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.LogLevel)
	}
	log := logger.Logger().With("component", "cli")

	ingest := srv.New(srv.Config{
		ListenAddr:      cfg.ListenAddr,
		ChunkSize:       uint32(cfg.ChunkSize),
		WindowAckSize:   2_500_000,
		RecordAll:       cfg.RecordAll,
		RecordDir:       cfg.RecordDir,
		LogLevel:        cfg.LogLevel,
		HookStdioFormat: cfg.HookStdioFormat,
		HookTimeout:     cfg.HookTimeout,
		HookConcurrency: cfg.HookConcurrency,
	})
	if err := ingest.Start(); err != nil {
		log.Error("failed to start rtmp ingest server", "error", err)
		os.Exit(1)
	}
	log.Info("rtmp ingest server started", "addr", ingest.Addr().String(), "version", version)

	rtmpio.SetRegistry(ingest.Registry())
	rtmpio.SetLogger(log)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	metricsSink := metrics.NewSink()
	sink := taskmanager.MultiSink{metricsSink, taskhooks.NewSink(ingest.HookManager())}
	mgr := taskmanager.New(taskmanager.Config{
		MaxTasks:    cfg.MaxTasks,
		MaxQueue:    cfg.MaxQueue,
		DedupQueued: true,
	}, sink)
	metricsSink.SetManager(mgr)

	pipelineCfg := pipeline.Config{CheckInterval: cfg.CheckInterval, Timeout: cfg.Timeout}
	mixCfg := mixing.Config{CheckInterval: cfg.CheckInterval, Timeout: cfg.Timeout}

	ctl := control.New(mgr, pipelineCfg, mixCfg, log)
	e := echo.New()
	e.HideBanner = true
	ctl.Register(e, reg)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("control surface stopped", "error", err)
		}
	}()
	log.Info("control surface started", "port", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("control surface shutdown error", "error", err)
	}
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		log.Error("task manager shutdown error", "error", err)
	}

	done := make(chan struct{})
	go func() {
		if err := ingest.Stop(); err != nil {
			log.Error("rtmp ingest server stop error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}
