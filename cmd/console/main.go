package main

import (
	"context"
	"log"
	"os"
	"strings"

	"signalboard/internal/cache"
	"signalboard/internal/config"
	"signalboard/internal/db"
	"signalboard/internal/provider"
	"signalboard/internal/repository"
	"signalboard/internal/service"
	"signalboard/internal/tui"
	"signalboard/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

var (
	loadEnvFunc         = godotenv.Load
	loadConfigFunc      = config.Load
	connectPostgresFunc = db.Connect
	connectRedisFunc    = cache.NewRedis
	initTracerFunc      = tracing.InitTracer
	runProgramFunc      = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
)

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

	signalRepo := repository.NewSignalRepository(pool, tracer)
	binance := provider.NewBinance(tracer, cfg.UpstreamTimeout, nil)
	marketCache := cache.NewMarketCache(redisClient)
	ttls := service.CacheTTLs{
		Candles: cfg.CandleCacheTTL,
		Price:   cfg.PriceCacheTTL,
		Symbols: cfg.SymbolCacheTTL,
	}
	symbolService := service.NewSymbolService(tracer, binance, marketCache, ttls)
	statsService := service.NewSignalService(tracer, signalRepo, nil)

	userID := strings.TrimSpace(os.Getenv("CONSOLE_USER_ID"))
	if userID == "" {
		log.Println("Warning: CONSOLE_USER_ID not set, signal browser will be empty")
	}

	app := tui.NewAppModel(tui.Services{
		Signals: signalRepo,
		Stats:   statsService,
		Symbols: symbolService,
		UserID:  userID,
	})

	if err := runProgramFunc(app); err != nil {
		log.Fatalf("console exited with error: %v", err)
	}
}
