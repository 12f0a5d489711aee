package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/config"
	"github.com/imadegautama/simple-library/internal/handler"
	"github.com/imadegautama/simple-library/internal/repository"
	"github.com/imadegautama/simple-library/internal/server"
	"github.com/imadegautama/simple-library/internal/service"
	"github.com/imadegautama/simple-library/internal/storage"
	"github.com/imadegautama/simple-library/migrations"
	"github.com/imadegautama/simple-library/pkg/kafka"
	"github.com/imadegautama/simple-library/pkg/logger"
	"github.com/imadegautama/simple-library/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	covers, err := storage.NewCoverStore(cfg.Covers.Dir)
	if err != nil {
		log.Fatal("cover store", zap.Error(err))
	}

	loanSvc := service.NewLoanService(repo, log)
	bookSvc := service.NewBookService(repo, covers, log)
	memberSvc := service.NewMemberService(repo, log)
	statsSvc := service.NewStatsService(repo, log)

	consumeCtx, stopConsume := context.WithCancel(context.Background())
	defer stopConsume()

	var (
		enqueuer handler.Enqueuer
		producer sarama.SyncProducer
	)
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		enqueuer = handler.NewEnqueuer(producer)

		cg, err := kafka.NewConsumer(cfg.Kafka, kafka.LoanConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		consumer := handler.NewConsumer(statsSvc.RecordLoanEvent, log)
		go func() {
			if err := kafka.Consume(consumeCtx, cg, consumer, kafka.LoanTopic); err != nil {
				log.Error("kafka consume", zap.Error(err))
			}
		}()
		go func() {
			<-consumer.Ready()
			log.Info("kafka consumer up", zap.String("topic", kafka.LoanTopic))
		}()
	}

	h := handler.New(log, loanSvc, bookSvc, memberSvc, statsSvc, enqueuer)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	stopConsume()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("producer close", zap.Error(err))
		}
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
