package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-tracker-poc/internal/shared/config"
	"github.com/radieske/bet-tracker-poc/internal/shared/db"
	"github.com/radieske/bet-tracker-poc/internal/shared/kafka"
	"github.com/radieske/bet-tracker-poc/internal/shared/logger"
	"github.com/radieske/bet-tracker-poc/internal/shared/metrics"
	"github.com/radieske/bet-tracker-poc/internal/tracker/repo"
	ev "github.com/radieske/bet-tracker-poc/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres pra gravar a trilha de auditoria das liquidações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	if err := repository.Migrate(context.Background()); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Kafka consumer: eventos bet_settled emitidos pelo tracker-service
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetSettled, "settlement-audit")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicBetSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettledDLQ)
		defer dlqWriter.Close()
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("settlement-audit-worker started", zap.String("consume", cfg.TopicBetSettled))

	ctx := context.Background()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var settled ev.BetSettled
		if jerr := json.Unmarshal(msg.Value, &settled); jerr != nil {
			log.Error("unmarshal bet_settled", zap.Error(jerr))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(msg.Key), msg.Value)
			}
			continue
		}

		if err := processOne(ctx, repository, &settled, msg.Value); err != nil {
			log.Error("audit settlement", zap.Int64("betId", settled.BetID), zap.Error(err))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, fmt.Sprintf("%d", settled.BetID), msg.Value)
			}
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
			continue
		}

		log.Info("settlement audited",
			zap.Int64("betId", settled.BetID),
			zap.String("result_type", settled.ResultType),
		)
	}
}

// processOne grava o registro de auditoria com retry antes de desistir.
func processOne(ctx context.Context, repository *repo.Postgres, settled *ev.BetSettled, payload []byte) error {
	const retries = 3
	var err error
	for i := 0; i < retries; i++ {
		err = repository.InsertSettlementAudit(ctx, settled.BetID, settled.ResultType,
			settled.ProfitCents, settled.LossCents, payload)
		if err == nil {
			return nil
		}
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
	}
	return err
}
