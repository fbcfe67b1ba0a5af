package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"signalboard/internal/cache"
	"signalboard/internal/config"
	"signalboard/internal/db"
	"signalboard/internal/discord"
	"signalboard/internal/handler"
	"signalboard/internal/job"
	"signalboard/internal/provider"
	"signalboard/internal/repository"
	"signalboard/internal/service"
	"signalboard/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "signalboard/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	connectPostgresFunc    = db.Connect
	connectRedisFunc       = cache.NewRedis
	initTracerFunc         = tracing.InitTracer
	newSignalRepoFunc      = repository.NewSignalRepository
	newBinanceFunc         = provider.NewBinance
	newBotClientFunc       = discord.NewClient
	newCoordinatorFunc     = discord.NewCoordinator
	newMarketServiceFunc   = service.NewMarketService
	newSymbolServiceFunc   = service.NewSymbolService
	newSignalServiceFunc   = service.NewSignalService
	newRefresherFunc       = job.NewSymbolRefresher
	startRefresherFunc     = func(r *job.SymbolRefresher, ctx context.Context) { go r.Start(ctx) }
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Signalboard API
// @version         1.0
// @description     Trading-signal dashboard backend: signal lifecycle, market data, thread sync.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	pool, err := connectPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	redisClient, err := connectRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: redis unavailable, caching disabled: %v", err)
	}

	signalRepo := newSignalRepoFunc(pool, tracer)
	if err := signalRepo.RunMigrations(ctx); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	binance := newBinanceFunc(tracer, cfg.UpstreamTimeout, nil)
	marketCache := cache.NewMarketCache(redisClient)
	ttls := service.CacheTTLs{
		Candles: cfg.CandleCacheTTL,
		Price:   cfg.PriceCacheTTL,
		Symbols: cfg.SymbolCacheTTL,
	}
	marketService := newMarketServiceFunc(tracer, binance, marketCache, ttls)
	symbolService := newSymbolServiceFunc(tracer, binance, marketCache, ttls)

	botClient := newBotClientFunc(cfg.BotAPIURL, cfg.UpstreamTimeout)
	coordinator := newCoordinatorFunc(tracer, botClient)
	signalService := newSignalServiceFunc(tracer, signalRepo, coordinator)

	refresher := newRefresherFunc(tracer, symbolService, time.Duration(cfg.SymbolRefreshSecs)*time.Second)
	startRefresherFunc(refresher, ctx)

	sessions := handler.NewSessionCodec(cfg.SessionSecret, 24*time.Hour)
	h := newHandlerFunc(tracer, signalService, marketService, symbolService, botClient, coordinator, sessions)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("signalboard"))
	r.Use(cors.Default())

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
