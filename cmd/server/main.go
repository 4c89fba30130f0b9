package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/foodcourt/gateway"
	"github.com/example/foodcourt/pkg/approval"
	"github.com/example/foodcourt/pkg/cart"
	"github.com/example/foodcourt/pkg/config"
	"github.com/example/foodcourt/pkg/discovery"
	"github.com/example/foodcourt/pkg/feed"
	"github.com/example/foodcourt/pkg/order"
	"github.com/example/foodcourt/pkg/repository"
	"github.com/example/foodcourt/pkg/session"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting foodcourt server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	// Stores
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := mongoRepo.Ping(ctx); err != nil {
		cancel()
		logger.Fatal("MongoDB unreachable", zap.Error(err))
	}
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		cancel()
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}
	cancel()

	redisRepo := repository.NewRedisRepository(&cfg.Redis)

	// Service discovery is optional; a dead etcd only costs registration.
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		sd = nil
	}
	// The registration context must outlive Register: the lease keep-alive
	// renews on it for the whole server lifetime.
	sdCtx, sdCancel := context.WithCancel(context.Background())
	defer sdCancel()
	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if sd != nil {
		if err := sd.Register(sdCtx, instance); err != nil {
			logger.Warn("Service registration failed", zap.Error(err))
		}
	}

	// Domain services
	cartRepo := repository.NewCartRepository(mongoRepo)
	orderRepo := repository.NewOrderRepository(mongoRepo)
	appRepo := repository.NewApplicationRepository(mongoRepo)
	outletRepo := repository.NewOutletRepository(mongoRepo)
	sessionRepo := repository.NewSessionRepository(mongoRepo)

	carts := cart.NewAggregator(cartRepo, redisRepo, cfg.Cart.DebounceWindow, logger)
	pipeline := order.NewPipeline(orderRepo, logger)
	machine := order.NewStateMachine(orderRepo, logger)
	feeds := feed.NewManager(feed.NewRepositorySource(orderRepo), logger)
	workflow := approval.NewWorkflow(appRepo, logger)
	validator := session.NewValidator(sessionRepo, redisRepo, cfg.Session.TTL, logger)

	gw := gateway.NewGateway(cfg, logger, carts, pipeline, machine, feeds, workflow, validator, outletRepo)
	gw.SetupRoutes()

	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			gwErr <- err
		}
	}()

	logger.Info("Server started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-gwErr:
		logger.Fatal("Gateway error", zap.Error(err))
	}

	carts.Stop()
	if sd != nil {
		sdCancel()
		deregCtx, deregCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sd.Deregister(deregCtx, instance); err != nil {
			logger.Warn("Service deregistration failed", zap.Error(err))
		}
		deregCancel()
		sd.Close()
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := mongoRepo.Close(closeCtx); err != nil {
		logger.Warn("MongoDB close failed", zap.Error(err))
	}
	if err := redisRepo.Close(); err != nil {
		logger.Warn("Redis close failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
