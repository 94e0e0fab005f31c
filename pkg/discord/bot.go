package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/arnavshah/warlist-bot/pkg/gathering"
)

// Intents needed for roles, member lookups and prefixed text commands
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsMessageContent

const commandTimeout = 2 * time.Minute

// Bot routes gateway events to the gathering service
type Bot struct {
	session *discordgo.Session
	service *gathering.Service
	prefix  string
	ignored map[string]bool
	logger  *slog.Logger
}

// NewBot creates a bot on an unopened session
func NewBot(s *discordgo.Session, svc *gathering.Service, prefix string, ignoredChannels []string, logger *slog.Logger) *Bot {
	ignored := make(map[string]bool, len(ignoredChannels))
	for _, id := range ignoredChannels {
		ignored[id] = true
	}
	s.Identify.Intents = Intents
	return &Bot{
		session: s,
		service: svc,
		prefix:  prefix,
		ignored: ignored,
		logger:  logger,
	}
}

// Register adds the event handlers to the session
func (b *Bot) Register() {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(b.onMessage)
}

// SyncCommands replaces the global slash commands of the application
func (b *Bot) SyncCommands(appID string) error {
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, "", Commands()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("connected to discord", "user", r.User.String(), "guilds", len(r.Guilds))
	b.updatePresence(s)
}

func (b *Bot) onGuildCreate(s *discordgo.Session, _ *discordgo.GuildCreate) {
	b.updatePresence(s)
}

func (b *Bot) onGuildDelete(s *discordgo.Session, _ *discordgo.GuildDelete) {
	b.updatePresence(s)
}

func (b *Bot) updatePresence(s *discordgo.Session) {
	s.State.RLock()
	n := len(s.State.Guilds)
	s.State.RUnlock()

	if err := s.UpdateWatchStatus(0, fmt.Sprintf("%d servers", n)); err != nil {
		b.logger.Warn("update presence", "error", err)
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmd, req, ok := SlashRequest(i.Interaction)
	if !ok {
		return
	}
	b.handle(NewSlashInvocation(s, i.Interaction, req), cmd)
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State.User != nil && m.Author != nil && m.Author.ID == s.State.User.ID {
		return
	}
	cmd, req, ok := TextRequest(b.prefix, m.Message)
	if !ok {
		return
	}
	if g, err := s.State.Guild(m.GuildID); err == nil {
		req.Locale = string(g.PreferredLocale)
	}
	b.handle(NewTextInvocation(s, m.Message, req), cmd)
}

func (b *Bot) handle(inv gathering.Invocation, cmd gathering.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	req := inv.Request()
	if b.ignored[req.ChannelID] {
		reply := gathering.Reply{Content: gathering.ErrIgnoredChannel.Localize(req.Locale), Ephemeral: true}
		if err := inv.Respond(ctx, reply); err != nil {
			b.logger.Warn("reply to ignored channel", "channel", req.ChannelID, "error", err)
		}
		return
	}

	if err := b.service.Dispatch(ctx, inv, cmd); err != nil {
		b.logger.Error("deliver reply", "command", cmd.String(), "group", req.GroupID, "error", err)
	}
}
