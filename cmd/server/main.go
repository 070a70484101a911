package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"retail-bank-core/internal/api/grpc/interceptor"
	"retail-bank-core/internal/app"
	"retail-bank-core/internal/config"
	"retail-bank-core/internal/logger"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Retail Bank Core...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Storage configuration", "driver", cfg.Database.Driver, "redis_enabled", cfg.Redis.Enabled)

	// No bank RPC service is registered yet; the services are still built so that bad
	// secrets and an unreachable store or cache stop the process before it reports SERVING.
	ctx := context.Background()
	bank, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer bank.Close()

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	loggingInterceptor := interceptor.NewLoggingInterceptor()
	s := grpc.NewServer(
		grpc.UnaryInterceptor(loggingInterceptor.Unary()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Register reflection service for grpcurl
	reflection.Register(s)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gRPC server...")
		healthServer.Shutdown()
		s.GracefulStop()
	}()

	logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
	if err := s.Serve(lis); err != nil {
		logger.Error("Failed to serve gRPC", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
	logger.Info("gRPC server stopped")
}
