package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/veripay/riskengine/internal/audit"
	"github.com/veripay/riskengine/internal/blocklist"
	"github.com/veripay/riskengine/internal/config"
	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/internal/profile"
	"github.com/veripay/riskengine/internal/redis"
	"github.com/veripay/riskengine/internal/riskengine"
	"github.com/veripay/riskengine/internal/server"
	"github.com/veripay/riskengine/internal/training"
	"github.com/veripay/riskengine/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := config.Load()

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Persistence. Without a DSN the engine runs fully in memory, which is
	// what local development and the test suite use.
	var hist history.Store
	var sink audit.Sink
	var verifier audit.Verifier
	if cfg.DatabaseDSN != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			zapLogger.Fatal("failed to connect to database", zap.Error(err))
		}
		gormHist, err := history.NewGormStore(db, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed to init history store", zap.Error(err))
		}
		gormSink, err := audit.NewGormSink(db, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed to init audit sink", zap.Error(err))
		}
		hist, sink, verifier = gormHist, gormSink, gormSink
	} else {
		zapLogger.Warn("DATABASE_DSN not set, using in-memory stores")
		memHist := history.NewMemoryStore()
		memSink := audit.NewMemorySink()
		hist, sink, verifier = memHist, memSink, memSink
	}

	// Blocklist: shared via redis when configured, in-process otherwise.
	var bl blocklist.Blocklist
	if cfg.RedisAddr != "" {
		client, err := redis.Dial(redis.DefaultConfig(cfg.RedisAddr), zapLogger)
		if err != nil {
			zapLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		bl = blocklist.NewRedis(client)
	} else {
		bl = blocklist.NewMemory()
	}

	profiles := profile.NewStore(hist, zapLogger)

	trainerCfg := training.DefaultConfig()
	trainerCfg.WindowDays = cfg.TrainingWindowDays
	trainerCfg.MinSamples = cfg.TrainingMinSamples
	trainerCfg.LearningRate = cfg.TrainingLearningRate
	trainerCfg.Epochs = cfg.TrainingEpochs
	trainer := training.NewTrainer(hist, sink, trainerCfg, zapLogger)

	engine := riskengine.New(profiles, bl, hist, sink, zapLogger,
		riskengine.WithLatencyBudget(cfg.LatencyBudget),
		riskengine.WithModelInfo(trainer),
	)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(zapLogger, engine, bl, trainer, verifier).Router(),
	}

	go func() {
		zapLogger.Info("risk engine listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
