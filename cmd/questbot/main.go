package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	tele "gopkg.in/telebot.v4"

	"github.com/ArtemYena07/questbot/booking"
	"github.com/ArtemYena07/questbot/core/config"
	"github.com/ArtemYena07/questbot/core/database"
	"github.com/ArtemYena07/questbot/core/logger"
	coretelegram "github.com/ArtemYena07/questbot/core/telegram"
	"github.com/ArtemYena07/questbot/core/telegram/router"
	"github.com/ArtemYena07/questbot/handlers"
	"github.com/ArtemYena07/questbot/storage"
	"github.com/ArtemYena07/questbot/worker"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load() // BOT_TOKEN, DB_*, REDIS_* overrides

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	startedAt := time.Now()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}

	rdb, err := database.ConnectRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	conversations := storage.NewRedisConversations(rdb,
		time.Duration(cfg.Booking.ConversationTTLHours)*time.Hour)
	catalog := storage.NewPostgresCatalog(db)
	flow := booking.NewFlow(conversations, catalog)

	reg := coretelegram.NewRegistry()
	h := handlers.New(flow)
	h.Register(reg)

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(h, reg, router.TextOptions{})...)

	var digestSched gocron.Scheduler

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return coretelegram.RunTelegram(ctx, coretelegram.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			if cfg.Worker.DigestEnabled {
				notify := func(chatID int64, text string) error {
					_, err := rt.Bot.Send(tele.ChatID(chatID), text)
					return err
				}
				digest := worker.NewDigest(catalog, notify, cfg.Telegram.AdminID,
					time.Duration(cfg.Worker.DigestIntervalHours)*time.Hour)
				digestSched, err = digest.Start()
				if err != nil {
					return err
				}
			}
			logger.App.Info("app ready",
				slog.String("event", "ready"),
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			logger.App.Info("shutting down...",
				slog.String("event", "shutdown"),
			)
			if digestSched != nil {
				return digestSched.Shutdown()
			}
			return nil
		},
	})
}
