// Command attendance-bot runs the staff attendance dialogue service.
//
//	@title						Staff Attendance Bot API
//	@version					1.0
//	@description				Ingest of chat actions for the staff attendance bot.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the ingest JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ant-retail/attendance-bot/internal/api"
	"github.com/ant-retail/attendance-bot/internal/api/handler"
	"github.com/ant-retail/attendance-bot/internal/core/domain"
	"github.com/ant-retail/attendance-bot/internal/core/ports"
	"github.com/ant-retail/attendance-bot/internal/core/service"
	mongoinfra "github.com/ant-retail/attendance-bot/internal/infrastructure/db/mongo"
	redisinfra "github.com/ant-retail/attendance-bot/internal/infrastructure/db/redis"
	"github.com/ant-retail/attendance-bot/internal/infrastructure/memory"
	"github.com/ant-retail/attendance-bot/internal/infrastructure/queue"
	"github.com/ant-retail/attendance-bot/internal/pkg/config"
	"github.com/ant-retail/attendance-bot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "attendance-bot",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("attendance bot stopped with error")
	}
	log.Info().Msg("attendance bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	rdb, err := redisinfra.Connect(ctx, redisinfra.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	readiness := map[string]handler.Pinger{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	// --- Record storage ---
	var records ports.RecordRepository
	switch cfg.StorageBackend {
	case "mongo":
		client, db, err := mongoinfra.Connect(ctx, mongoinfra.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		repo := mongoinfra.NewRecordRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		records = repo
		readiness["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	default:
		log.Warn().Msg("using in-memory record storage, records are lost on restart")
		records = memory.NewRecordTable()
	}

	// --- Broadcast ---
	var notifier ports.Notifier
	if cfg.Messaging.GroupChatID == "" {
		log.Warn().Msg("GROUP_CHAT_ID not set, attendance broadcasts are disabled")
		notifier = service.NewNopNotifier(logger.Component("notifier"))
	} else {
		notifier = redisinfra.NewBroadcastPublisher(rdb, cfg.Messaging.BroadcastChannel, cfg.Messaging.GroupChatID)
	}

	// --- Core ---
	validate := handler.NewValidator()
	svc := service.NewAttendanceService(service.AttendanceDeps{
		Machine: domain.Machine{
			AllowTextPhone: cfg.AllowTextPhone,
			PhoneCheck:     validate.IsPhone,
		},
		Sessions:    memory.NewSessionStore(),
		Records:     service.NewReconciler(records, notifier, cfg.Location(), logger.Component("reconciler")),
		Replier:     redisinfra.NewReplyPublisher(rdb, cfg.Messaging.ReplyChannel),
		Dedup:       redisinfra.NewDedupChecker(rdb),
		TurnTimeout: cfg.TurnTimeout,
	}, logger.Component("attendance"))

	g, gctx := errgroup.WithContext(ctx)

	dispatcher := queue.NewDispatcher(cfg.Workers, svc, logger.Component("dispatcher"))
	dispatcher.Start(gctx)

	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "attendance-bot"
	}
	stream := redisinfra.NewActionStream(rdb, redisinfra.StreamConfig{
		Stream:   cfg.Messaging.ActionStream,
		Group:    cfg.Messaging.ActionGroup,
		Consumer: consumer,
	}, dispatcher, logger.Component("stream"))
	g.Go(func() error { return stream.Run(gctx) })

	// --- HTTP ---
	e := api.NewRouter(api.RouterDeps{
		Dispatcher:   dispatcher,
		Readiness:    readiness,
		IngestSecret: cfg.IngestSecret,
	}, logger.Component("http"))

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("timezone", cfg.Timezone).Int("workers", cfg.Workers).Msg("attendance bot listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	err = g.Wait()
	dispatcher.Wait()
	return err
}
