package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-tracker-poc/internal/shared/cache"
	"github.com/radieske/bet-tracker-poc/internal/shared/config"
	"github.com/radieske/bet-tracker-poc/internal/shared/db"
	"github.com/radieske/bet-tracker-poc/internal/shared/logger"
	"github.com/radieske/bet-tracker-poc/internal/shared/metrics"
	tcache "github.com/radieske/bet-tracker-poc/internal/tracker/cache"
	thttp "github.com/radieske/bet-tracker-poc/internal/tracker/http"
	"github.com/radieske/bet-tracker-poc/internal/tracker/producer"
	"github.com/radieske/bet-tracker-poc/internal/tracker/repo"
	"github.com/radieske/bet-tracker-poc/internal/tracker/service"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	if err := repository.Migrate(context.Background()); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()
	summaries := tcache.New(rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	// Kafka producers (bet_placed e bet_settled)
	pub := producer.New(cfg.KafkaBrokers, cfg.TopicBetPlaced, cfg.TopicBetSettled)
	defer pub.Close()

	manager := service.NewManager(repository, pub, summaries, log, cfg.EnforceEqualSides)

	api := thttp.NewServer(repository, manager, summaries, log, cfg.BackupDir)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Routes(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("tracker-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
