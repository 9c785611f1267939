package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/ismaiel54/fix-order-lifecycle/internal/chaos"
	"github.com/ismaiel54/fix-order-lifecycle/internal/config"
	"github.com/ismaiel54/fix-order-lifecycle/internal/dropcopy"
	"github.com/ismaiel54/fix-order-lifecycle/internal/eventqueue"
	"github.com/ismaiel54/fix-order-lifecycle/internal/logging"
	"github.com/ismaiel54/fix-order-lifecycle/internal/observability"
	"github.com/ismaiel54/fix-order-lifecycle/internal/order"
	"github.com/ismaiel54/fix-order-lifecycle/internal/runloop"
	"github.com/ismaiel54/fix-order-lifecycle/internal/server"
	"github.com/ismaiel54/fix-order-lifecycle/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <settings-file>\n", os.Args[0])
		os.Exit(1)
	}
	os.Exit(run(os.Args[1]))
}

func run(settingsPath string) int {
	cfg, err := config.LoadConfig("fixserver")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	cfg.SettingsPath = settingsPath

	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("starting fixserver",
		zap.String("settings", cfg.SettingsPath),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("http_port", cfg.HTTPPort),
		zap.Duration("wait_interval", cfg.WaitInterval),
		zap.Bool("dropcopy_enabled", cfg.DropCopyEnabled),
	)

	settings, err := loadSettings(cfg.SettingsPath)
	if err != nil {
		logger.Error("failed to load quickfix settings", zap.Error(err))
		return 1
	}

	healthChecker := observability.NewHealthChecker(logger)
	metrics := observability.NewMetrics()
	healthChecker.Handle("/metrics", metrics.Handler())

	dropCopy, err := dropcopy.NewService(dropcopy.ServiceConfig{
		Enabled:  cfg.DropCopyEnabled,
		DataDir:  cfg.DataDir,
		Brokers:  cfg.Brokers(),
		ClientID: cfg.ServiceName,
	}, logger.Named("dropcopy"))
	if err != nil {
		logger.Error("failed to start drop copy", zap.Error(err))
		return 1
	}
	defer dropCopy.Close()

	var sender session.Sender = session.EngineSender{}
	if chaosCfg := chaos.LoadConfig(); chaosCfg.Enabled {
		logger.Warn("chaos enabled on outbound messages", zap.String("target_comp_id", chaosCfg.TargetCompID))
		sender = chaos.NewSender(sender, chaos.New(chaosCfg, logger.Named("chaos")))
	}

	queue := session.NewQueue(
		eventqueue.WithLogger(logger.Named("queue")),
		eventqueue.WithObserver(metrics),
	)
	handler := server.NewHandler(logger.Named("server"), sender, dropCopy.Recorder(), order.NewIDGenerator())
	adapter := session.NewAdapter(logger.Named("session"), queue, handler.Register(queue),
		session.WithValidator(handler),
		session.WithReadiness(healthChecker),
		session.WithAllowedSenderCompIDs(cfg.AllowedSenderCompIDs),
	)

	acceptor, err := quickfix.NewAcceptor(adapter, quickfix.NewMemoryStoreFactory(), settings, logging.NewFIXLogFactory(logger))
	if err != nil {
		logger.Error("failed to create acceptor", zap.Error(err))
		return 1
	}

	grpcServer := grpc.NewServer()
	healthChecker.RegisterGRPC(grpcServer)

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		logger.Error("failed to listen on gRPC port", zap.Error(err))
		return 1
	}

	grpcErrCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			grpcErrCh <- err
		}
	}()

	httpErrCh := make(chan error, 1)
	go func() {
		if err := healthChecker.StartHTTPServer(cfg.HTTPAddr()); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dropCopyErrCh := make(chan error, 1)
	go func() {
		if err := dropCopy.Run(ctx, healthChecker); err != nil {
			dropCopyErrCh <- err
		}
	}()

	loopErrCh := make(chan error, 1)
	go func() {
		loopErrCh <- runloop.New(acceptor, queue, logger.Named("loop"), runloop.WithInterval(cfg.WaitInterval)).Run(ctx)
	}()

	exitCode := 0
	loopDone := false
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-grpcErrCh:
		logger.Error("gRPC server error", zap.Error(err))
		exitCode = 1
	case err := <-httpErrCh:
		logger.Error("HTTP server error", zap.Error(err))
		exitCode = 1
	case err := <-dropCopyErrCh:
		logger.Error("drop copy error", zap.Error(err))
		exitCode = 1
	case err := <-loopErrCh:
		loopDone = true
		if err != nil {
			logger.Error("event loop error", zap.Error(err))
			exitCode = 1
		}
	}

	logger.Info("shutting down gracefully...")
	stop()
	if !loopDone {
		if err := <-loopErrCh; err != nil {
			logger.Error("event loop error", zap.Error(err))
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := healthChecker.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down health checker", zap.Error(err))
	}
	grpcServer.GracefulStop()

	logger.Info("fixserver stopped")
	return exitCode
}

func loadSettings(path string) (*quickfix.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	settings, err := quickfix.ParseSettings(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return settings, nil
}
