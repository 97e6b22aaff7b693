package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/events"
	httpapi "storefront/internal/http"
	"storefront/internal/idempotency"
	"storefront/internal/repository"
	"storefront/internal/service"

	_ "storefront/docs"
)

// @title Storefront API
// @version 1.0
// @description In-memory storefront: catalog, carts, orders and reviews.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := config.NewLogger(cfg, os.Stdout)
	gin.SetMode(cfg.GinMode)
	decimal.MarshalJSONWithoutQuotes = true

	store := repository.NewMemoryStore()
	tx := repository.NewMemoryTx(store)
	productsRepo := repository.NewMemoryProducts(store)
	ordersRepo := repository.NewMemoryOrders(store)
	cartsRepo := repository.NewMemoryCarts(store)
	usersRepo := repository.NewMemoryUsers(store)

	// order events
	var publisher events.Publisher = events.Nop{}
	var kafkaPub *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 1024, log)
		kafkaPub.Start()
		publisher = kafkaPub
		log.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// idempotency keys
	var idem idempotency.Store = idempotency.NewMemoryStore(idempotency.TTL)
	if cfg.RedisAddr != "" {
		rdb := idempotency.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		idem = idempotency.NewRedisStore(rdb, idempotency.TTL)
		log.Info("redis idempotency store enabled", "addr", cfg.RedisAddr)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.ServiceName, cfg.JWTTTL)

	srv := httpapi.NewServer(httpapi.Deps{
		Products:   service.NewProductService(productsRepo, tx),
		Categories: service.NewCategoryService(repository.NewMemoryCategories(store), tx),
		Carts:      service.NewCartService(cartsRepo, productsRepo, tx),
		Orders: service.NewOrderService(productsRepo, ordersRepo, cartsRepo, tx,
			service.WithPublisher(publisher, cfg.ServiceName),
			service.WithStrictTransitions(cfg.StrictTransitions),
			service.WithOrderLogger(log),
		),
		Reviews:        service.NewReviewService(repository.NewMemoryReviews(store), productsRepo, ordersRepo, tx),
		Users:          service.NewUserService(usersRepo, tx, auth.NewBcryptHasher(cfg.BcryptCost)),
		Tokens:         tokens,
		Verifier:       auth.NewTokenVerifier(tokens, usersRepo),
		Idempotency:    idem,
		Logger:         log,
		ServiceName:    cfg.ServiceName,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	if kafkaPub != nil {
		kafkaPub.Close()
		kafkaPub.WaitClosed()
	}
}
