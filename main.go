package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livechat-bot/bot"
	"livechat-bot/command"
	"livechat-bot/config"
	"livechat-bot/database"
	"livechat-bot/grpc"
	"livechat-bot/handlers"
	"livechat-bot/media"
	"livechat-bot/moderation"
	"livechat-bot/queue"
	"livechat-bot/quota"
	"livechat-bot/realtime"
	"livechat-bot/scheduler"
	"livechat-bot/server"
	"livechat-bot/utils"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	app := &cli.App{
		Name:  "livechat-bot",
		Usage: "show Discord submissions on stream overlays",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "directory holding .env, config.yaml and config/auth.json",
				Value:   ".",
				EnvVars: []string{"LIVECHAT_CONFIG_DIR"},
			},
		},
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the bot, the delivery loop and the overlay server",
				Action: runBot,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema and exit",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("livechat-bot exited")
	}
}

func migrate(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config-dir"))
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.Log)

	db, err := database.Open(cctx.Context, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info().Str("driver", cfg.Database.Driver).Msg("schema is up to date")
	return nil
}

func runBot(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config-dir"))
	if err != nil {
		return err
	}

	sink := utils.NewDiscordSink(cfg.Bot.AdminChannelID, cfg.Log)
	logger := utils.NewLogger(cfg.Log, sink)

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := bot.NewBot(cfg.Bot, logger)
	if err != nil {
		return err
	}
	sink.Attach(b.Session)
	auth := utils.NewAuth(b.Session, cfg.Auth)

	httpClient := media.NewHTTPClient(cfg.Media.RequestTimeout, logger)
	prober := media.NewProber(cfg.Media.FFprobePath)
	resolver := media.NewResolver(httpClient, prober, cfg.Media, logger)
	converter, err := media.NewConverter(httpClient, prober, cfg.Media, logger)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(logger)
	gate := moderation.NewGate(db, auth, logger)
	limiter := quota.NewLimiter(cfg.Quota, utils.SystemClock{}, auth, logger)
	submissions := queue.NewService(db, resolver, converter, auth, utils.SystemClock{}, cfg.Display, cfg.Bot.RevealAnonProb, logger)

	sched := scheduler.New(scheduler.Config{
		Interval:       cfg.Scheduler.Interval,
		RetryDelay:     cfg.Scheduler.RetryDelay,
		SafetyMargin:   cfg.Scheduler.SafetyMargin,
		PlaceholderURL: cfg.Scheduler.PlaceholderURL,
	}, db, scheduler.NewAudienceLock(db), gate, hub, utils.SystemClock{}, logger)

	health := grpc.NewHealthService(cfg.GRPC, sched, logger)
	srv := server.New(cfg.Server, hub, gate, converter, health, logger)

	h := handlers.New(b.Session, handlers.Deps{
		Moderation: gate,
		Quota:      limiter,
		Queue:      submissions,
		Speech:     media.NewSpeech(httpClient),
		Language:   cfg.Bot.Language,
	}, logger)
	b.RegisterCommands(command.AllCommands(cfg.Bot.HideCommandsDisabled))
	b.AddJob(bot.Job{
		Name: "media-cache-cleanup",
		Spec: "@hourly",
		Run: func() {
			n, err := converter.CleanCache(cfg.Media.CacheMaxAge)
			if err != nil {
				logger.Warn().Err(err).Str("component", "media").Msg("media cache cleanup failed")
				return
			}
			logger.Info().Str("component", "media").Int("removed", n).Msg("media cache cleaned")
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sink.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return health.Serve(gctx) })
	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return b.Run(gctx, func(b *bot.Bot) { handlers.Register(b, h) })
	})

	err = g.Wait()
	logger.Info().Msg("shutdown complete")
	return err
}
