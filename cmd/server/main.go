package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/arnavshah/warlist-bot/pkg/auth"
	"github.com/arnavshah/warlist-bot/pkg/config"
	"github.com/arnavshah/warlist-bot/pkg/database"
	"github.com/arnavshah/warlist-bot/pkg/discord"
	"github.com/arnavshah/warlist-bot/pkg/gate"
	"github.com/arnavshah/warlist-bot/pkg/gathering"
	"github.com/arnavshah/warlist-bot/pkg/handlers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("warlist", pflag.ContinueOnError)
	config.Flags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if cfg.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		DatabaseURL: cfg.DatabaseURL,
		DataPath:    cfg.DataPath,
		Debug:       cfg.LogLevel == "debug",
	})
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	me, err := session.User("@me")
	if err != nil {
		return fmt.Errorf("fetch bot user: %w", err)
	}

	board := discord.NewBoard(session, me.ID)
	svc := gathering.NewService(database.NewGatherStore(db), discord.NewRoles(session), board)
	svc.Logger = logger

	if cfg.RedisURL != "" {
		g, err := gate.NewRedis(cfg.RedisURL, cfg.GateTTL, logger)
		if err != nil {
			return err
		}
		defer g.Close()
		svc.Gate = g
		logger.Info("using redis command gate")
	}

	if cfg.ErrorWebhookURL != "" {
		reporter, err := discord.NewWebhookReporter(session, cfg.ErrorWebhookURL)
		if err != nil {
			return err
		}
		svc.Reporter = reporter
	}

	bot := discord.NewBot(session, svc, cfg.CommandPrefix, cfg.IgnoredChannels, logger)
	bot.Register()
	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer session.Close()

	if err := bot.SyncCommands(me.ID); err != nil {
		logger.Warn("slash commands not registered", "error", err)
	}

	var srv *http.Server
	if cfg.HTTPEnabled {
		signer := auth.NewSigner(cfg.JWTSecret, cfg.APIMasterSecret)
		if err := auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
			logger.Warn("ensure admin", "error", err)
		}

		if cfg.GinMode != "" {
			gin.SetMode(cfg.GinMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
		r := gin.New()
		r.Use(gin.Logger(), gin.Recovery())
		h := &handlers.Handler{
			DB:      db,
			Service: svc,
			Signer:  signer,
			Poster:  board,
			Logger:  logger,
		}
		h.Routes(r)

		srv = &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http server starting", "port", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server", "error", err)
				stop()
			}
		}()
	}

	logger.Info("bot running", "prefix", cfg.CommandPrefix)
	<-ctx.Done()
	logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}
	return nil
}
