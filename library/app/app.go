package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-lending/library/config"
	"github.com/Astemirdum/library-lending/library/internal/handler"
	"github.com/Astemirdum/library-lending/library/internal/repository"
	"github.com/Astemirdum/library-lending/library/internal/server"
	"github.com/Astemirdum/library-lending/library/internal/service"
	"github.com/Astemirdum/library-lending/library/migrations"
	"github.com/Astemirdum/library-lending/pkg/circuit_breaker"
	"github.com/Astemirdum/library-lending/pkg/kafka"
	"github.com/Astemirdum/library-lending/pkg/logger"
	"github.com/Astemirdum/library-lending/pkg/postgres"
)

func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "library")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return fmt.Errorf("db init %v", err)
	}
	defer db.Close()

	svc, closePublisher, err := newService(cfg, db, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)
	if cfg.SweepInterval > 0 {
		log.Info("periodic sweep enabled", zap.Duration("interval", cfg.SweepInterval))
		g.Go(func() error {
			svc.RunSweeper(gCtx, cfg.SweepInterval)
			return nil
		})
	}

	h := handler.New(svc, log)
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

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	cancel()
	if err = g.Wait(); err != nil {
		log.Error("background", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
	return nil
}

// Migrate applies the embedded migrations and exits.
func Migrate(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "migrate")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("db init %v", err)
	}
	defer db.Close()

	if err = postgres.Migrate(db, migrations.MigrationFiles); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

// SweepOnce runs a single overdue sweep against the configured database.
func SweepOnce(ctx context.Context, cfg *config.Config) (service.SweepResult, error) {
	log := logger.NewLogger(cfg.Log, "sweep")
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, nil)
	if err != nil {
		return service.SweepResult{}, fmt.Errorf("db init %v", err)
	}
	defer db.Close()

	svc, closePublisher, err := newService(cfg, db, log)
	if err != nil {
		return service.SweepResult{}, err
	}
	defer closePublisher()

	return svc.Sweep(ctx)
}

func newService(cfg *config.Config, db *pgxpool.Pool, log *zap.Logger) (*service.Service, func(), error) {
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return nil, nil, fmt.Errorf("repo %v", err)
	}

	publisher := kafka.NewNoopPublisher()
	closePublisher := func() {}
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka.NewProducer %v", err)
		}
		publisher = kafka.NewPublisher(producer, cfg.Kafka.Topic, circuit_breaker.New(cfg.CircuitBreaker), log)
		closePublisher = func() {
			if err := producer.Close(); err != nil {
				log.Error("producer.Close", zap.Error(err))
			}
		}
	} else {
		log.Info("kafka brokers not configured, lending events disabled")
	}

	svc := service.NewService(repo, log,
		service.WithPolicy(cfg.Policy),
		service.WithPublisher(publisher),
	)
	return svc, closePublisher, nil
}
