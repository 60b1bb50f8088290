package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ramukaka/market/internal/config"
	h "github.com/ramukaka/market/internal/http"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/orders"
	"github.com/ramukaka/market/internal/payment"
	"github.com/ramukaka/market/internal/profile"
	"github.com/ramukaka/market/internal/publisher"
	"github.com/ramukaka/market/internal/repository"
	"github.com/ramukaka/market/internal/session"
	"github.com/ramukaka/market/internal/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Component:   "market",
		Environment: cfg.Environment,
	}, os.Stdout)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("market stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()
	var wg sync.WaitGroup

	kv, closeKV, err := openKV(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeKV()

	mongoCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout+10*time.Second)
	mongoDB, err := repository.ConnectMongoDB(mongoCtx, repository.MongoOptions{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		Timeout:     cfg.Mongo.Timeout,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	cancel()
	if err != nil {
		return err
	}
	defer mongoDB.Client().Disconnect(context.Background())
	log.Info("connected to mongodb", "database", cfg.Mongo.Database)

	users := repository.NewMongoUserRepository(mongoDB)

	var orderRepo repository.OrderRepository
	var outbox repository.OutboxRepository
	switch cfg.OrdersBackend {
	case "postgres":
		creds := &repository.Credentials{
			Host:              cfg.Postgres.Host,
			Port:              cfg.Postgres.Port,
			User:              cfg.Postgres.User,
			Password:          cfg.Postgres.Password,
			DBName:            cfg.Postgres.DBName,
			SSLMode:           cfg.Postgres.SSLMode,
			MigrationsDirPath: cfg.Postgres.MigrationsPath,
		}
		pg, err := repository.NewPostgresRepository(creds)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.RunMigrations(creds); err != nil {
			return err
		}
		log.Info("postgres migrations completed")
		orderRepo, outbox = pg, pg
	default:
		mongoOrders := repository.NewMongoOrderRepository(mongoDB)
		idxCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
		err := mongoOrders.CreateIndexes(idxCtx)
		cancel()
		if err != nil {
			return err
		}
		orderRepo = mongoOrders
	}

	tokens := tokenSource(cfg.Payment)
	var verifier payment.SignatureVerifier
	if cfg.Payment.ProxyURL == "" && cfg.Payment.KeySecret != "" {
		verifier = tokens.(*payment.ProviderClient)
	}

	resolver := profile.NewResolver(kv, users, cfg.Session.ProfileTimeout, log)
	gateway := orders.NewGateway(orderRepo, cfg.Session.OrderTimeout, log)
	branch := payment.NewBranchHandler(tokens, verifier, payment.HandlerConfig{
		Currency:     cfg.Payment.Currency,
		MerchantName: cfg.Payment.MerchantName,
		ThemeColor:   cfg.Payment.ThemeColor,
		Timeout:      cfg.Payment.Timeout,
	}, log)

	registry := session.NewRegistry(session.Deps{
		KV:       kv,
		Profiles: resolver,
		Orders:   gateway,
		Payments: branch,
		Log:      log,
	}, session.Config{TTL: cfg.Session.TTL, CleanupInterval: cfg.Session.CleanupInterval})
	defer registry.Close()

	pollerCtx, pollerCancel := context.WithCancel(ctx)
	defer pollerCancel()
	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		poller := publisher.NewOutboxPoller(outbox, log, cfg.Kafka.Brokers...)
		defer poller.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollerCtx)
		}()
		log.Info("outbox poller started", "topic", publisher.TopicOrdersPlaced)
	}

	handlers := h.Handlers{
		Cart:     h.NewCartHandler(cfg.HTTP.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(log),
		Orders:   h.NewOrdersHandler(gateway, resolver, cfg.HTTP.RequestTimeout, log),
	}
	if cfg.Payment.ProxyURL == "" {
		handlers.Payment = h.NewPaymentProxyHandler(tokens, cfg.Payment.Timeout, log)
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: h.NewRouter(h.RouterConfig{
			RequestTimeout:     cfg.HTTP.RequestTimeout,
			MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
		}, registry, handlers, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("market starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	pollerCancel()
	wg.Wait()
	log.Info("server exited")
	return nil
}

func openKV(ctx context.Context, cfg config.Storage, log *slog.Logger) (storage.Store, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, nil, err
		}
		log.Info("sqlite store ready", "path", cfg.SQLitePath)
		return s, func() { s.Close() }, nil
	case "memory":
		return storage.NewMemoryStore(), func() {}, nil
	default:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
		return storage.NewRedisStore(client, cfg.RedisTTL), func() { client.Close() }, nil
	}
}

func tokenSource(cfg config.Payment) payment.TokenSource {
	if cfg.ProxyURL != "" {
		return payment.NewProxyClient(cfg.ProxyURL, cfg.Timeout)
	}
	return payment.NewProviderClient(payment.ProviderConfig{
		BaseURL:   cfg.BaseURL,
		KeyID:     cfg.KeyID,
		KeySecret: cfg.KeySecret,
		Timeout:   cfg.Timeout,
	})
}
