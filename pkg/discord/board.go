package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/arnavshah/warlist-bot/pkg/gathering"
	"github.com/arnavshah/warlist-bot/pkg/models"
)

// lookback is how many recent messages are searched for the roster document
const lookback = 20

// Board finds and replaces the roster embeds posted by the bot
type Board struct {
	api   API
	botID string
}

// NewBoard creates the message adapter. botID identifies the bot's own messages.
func NewBoard(api API, botID string) *Board {
	return &Board{api: api, botID: botID}
}

func (b *Board) Previous(ctx context.Context, channelID string) (*models.Posted, error) {
	messages, err := b.api.ChannelMessages(channelID, lookback, "", "", "", withContext(ctx))
	if err != nil {
		return nil, wrap("fetch messages", err)
	}

	for _, m := range messages {
		if m.Author == nil || m.Author.ID != b.botID || len(m.Embeds) == 0 {
			continue
		}
		doc := Document(m.Embeds[0])
		if doc.Title != gathering.DocumentTitle || gathering.IsArchived(doc) {
			continue
		}
		return &models.Posted{ID: m.ID, ChannelID: m.ChannelID, Document: doc}, nil
	}
	return nil, nil
}

func (b *Board) Delete(ctx context.Context, channelID, messageID string) error {
	return wrap("delete message", b.api.ChannelMessageDelete(channelID, messageID, withContext(ctx)))
}

func (b *Board) Edit(ctx context.Context, channelID, messageID string, doc models.Document) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).SetEmbeds([]*discordgo.MessageEmbed{Embed(doc)})
	_, err := b.api.ChannelMessageEditComplex(edit, withContext(ctx))
	return wrap("edit message", err)
}

// Send posts a reply to channelID
func (b *Board) Send(ctx context.Context, channelID string, reply gathering.Reply) error {
	_, err := b.api.ChannelMessageSendComplex(channelID, messageSend(reply), withContext(ctx))
	return wrap("send message", err)
}

func messageSend(reply gathering.Reply) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: reply.Content}
	if reply.Document != nil {
		send.Embeds = []*discordgo.MessageEmbed{Embed(*reply.Document)}
	}
	return send
}
