package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Leegeev/mbus/pkg/api"
	"github.com/Leegeev/mbus/pkg/config"
	"github.com/Leegeev/mbus/pkg/logger"
	"github.com/Leegeev/mbus/pkg/mbus"
)

func main() {
	if err := config.InitConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("Error occured while initializing configs", logger.Error(err))
			os.Exit(1)
		}
		// без файла работаем на значениях по умолчанию и переменных окружения
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", logger.Error(err))
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	// контекст отменяется по сигналу
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info("All done, exiting")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// 1) шина
	bus := mbus.New(mbus.WithLogger(log))
	if err := bus.InitWithConfig(cfg.Bus); err != nil {
		return fmt.Errorf("init bus: %w", err)
	}

	// 2) сервер
	lis, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		_ = bus.Exit()
		return fmt.Errorf("cannot listen on %s: %w", cfg.Server.ListenAddr, err)
	}
	grpcServer := grpc.NewServer()
	api.RegisterBusServer(grpcServer, NewServer(bus, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server started", slog.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("failed to serve gRPC server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received")

		// 3) шина первой: Exit будит все потоки подписки, и они завершаются сами
		if err := bus.Exit(); err != nil {
			log.Warn("bus shutdown incomplete", logger.Error(err))
		} else {
			log.Info("bus shutdown complete")
		}

		// 4) gRPC graceful stop с таймаутом
		timeout := time.Duration(cfg.Server.ShutdownTimeoutS) * time.Second
		gracefulStop(grpcServer, timeout, log)
		log.Info("gRPC server stopped")
		return nil
	})
	return g.Wait()
}

// gracefulStop ждёт завершения RPC не дольше timeout, затем рвёт соединения.
func gracefulStop(s *grpc.Server, timeout time.Duration, log *slog.Logger) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn("graceful stop timed out, forcing", logger.Duration(timeout))
		s.Stop()
		<-done
	}
}
