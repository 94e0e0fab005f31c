package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"

	"github.com/arnavshah/warlist-bot/pkg/auth"
	"github.com/arnavshah/warlist-bot/pkg/config"
	"github.com/arnavshah/warlist-bot/pkg/database"
	"github.com/arnavshah/warlist-bot/pkg/discord"
	"github.com/arnavshah/warlist-bot/pkg/gate"
	"github.com/arnavshah/warlist-bot/pkg/gathering"
	"github.com/arnavshah/warlist-bot/pkg/handlers"
)

var r *gin.Engine

func init() {
	cfg, err := config.Load(nil)
	if err != nil {
		fatal(err)
	}
	logger := cfg.NewLogger()

	db, err := database.Open(database.Options{DatabaseURL: cfg.DatabaseURL, DataPath: cfg.DataPath})
	if err != nil {
		fatal(err)
	}
	if err := auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		logger.Warn("ensure admin", "error", err)
	}

	// REST only; serverless instances never open the gateway.
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		fatal(err)
	}
	me, err := session.User("@me")
	if err != nil {
		fatal(fmt.Errorf("fetch bot user: %w", err))
	}

	board := discord.NewBoard(session, me.ID)
	svc := gathering.NewService(database.NewGatherStore(db), discord.NewRoles(session), board)
	svc.Logger = logger

	// Instances share nothing in memory, so the gate needs Redis.
	if cfg.RedisURL != "" {
		g, err := gate.NewRedis(cfg.RedisURL, cfg.GateTTL, logger)
		if err != nil {
			fatal(err)
		}
		svc.Gate = g
	}

	h := &handlers.Handler{
		DB:      db,
		Service: svc,
		Signer:  auth.NewSigner(cfg.JWTSecret, cfg.APIMasterSecret),
		Poster:  board,
		Logger:  logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r = gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	h.Routes(r)
}

func fatal(err error) {
	slog.Error("startup failed", "error", err)
	os.Exit(1)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
