package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/maaaruch/reactionpoll-bot/internal/api"
	"github.com/maaaruch/reactionpoll-bot/internal/app"
	"github.com/maaaruch/reactionpoll-bot/internal/config"
	"github.com/maaaruch/reactionpoll-bot/internal/host/discord"
	"github.com/maaaruch/reactionpoll-bot/internal/logger"
	"github.com/maaaruch/reactionpoll-bot/internal/notify"
	"github.com/maaaruch/reactionpoll-bot/internal/polls"
	"github.com/maaaruch/reactionpoll-bot/internal/storage"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("bot stopped")
	}
}

func run() error {
	var envFile string
	var debug bool

	flagSet := pflag.NewFlagSet("reactionpoll-bot", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env", ".env", "dotenv file to read before the environment")
	flagSet.BoolVar(&debug, "debug", false, "debug logging (same as BOT_DEBUG=true)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.Debug = cfg.Debug || debug

	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger.Configure(level, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeDB, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	store, err := storage.Open(ctx, backend)
	if err != nil {
		return errors.Wrap(err, "load polls")
	}
	log.Info().Int("polls", len(store.All())).Str("driver", cfg.DBDriver).Msg("poll store loaded")

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return errors.Wrap(err, "discord session")
	}
	session.State.MaxMessageCount = cfg.MessageCacheSize
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildEmojis |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentMessageContent
	session.LogLevel = discordgo.LogWarning
	if cfg.Debug {
		session.LogLevel = discordgo.LogDebug
	}
	discordgo.Logger = func(msgL, _ int, format string, a ...interface{}) {
		ev := log.Warn()
		if msgL >= discordgo.LogInformational {
			ev = log.Debug()
		}
		ev.Str("component", "discordgo").Msgf(format, a...)
	}

	h, err := discord.New(session, cfg.MessageCacheSize)
	if err != nil {
		return errors.Wrap(err, "discord host")
	}

	var notifier polls.Notifier
	if cfg.Notifications() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.Debug)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notifications disabled")
		} else {
			log.Info().Str("bot", tg.Name()).Int64("chat", cfg.TelegramChatID).Msg("telegram notifications enabled")
			notifier = tg
		}
	}

	engine := polls.New(polls.Config{
		Store:           store,
		Host:            h,
		Notifier:        notifier,
		RefreshInterval: cfg.RefreshInterval,
	})

	application := app.New(h, engine, cfg.Prefix)
	application.Bind(ctx, session)
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("connected to discord")
	})

	if err := session.Open(); err != nil {
		return errors.Wrap(err, "open discord gateway")
	}
	defer session.Close()

	if cfg.StatusAddr != "" {
		status := api.NewFiber(store, cfg.StatusKey)
		go serveStatus(status, cfg.StatusAddr)
		defer shutdownStatus(status)
	}

	application.Run(ctx)
	log.Info().Msg("shutting down")
	return nil
}

func openBackend(ctx context.Context, cfg config.Config) (storage.Backend, func(), error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	if cfg.DBDriver == "json" {
		return storage.NewJSON(cfg.DBPath), func() {}, nil
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	backend := storage.NewSQLite(db)
	if err := backend.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "init schema")
	}
	return backend, func() { _ = db.Close() }, nil
}

func serveStatus(status *fiber.App, addr string) {
	log.Info().Str("addr", addr).Msg("status api listening")
	if err := status.Listen(addr); err != nil {
		log.Error().Err(err).Msg("status api stopped")
	}
}

func shutdownStatus(status *fiber.App) {
	if err := status.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warn().Err(err).Msg("status api shutdown")
	}
}
