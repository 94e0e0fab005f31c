package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/arnavshah/warlist-bot/pkg/gathering"
)

// SlashInvocation answers an application command through its interaction
type SlashInvocation struct {
	api         API
	interaction *discordgo.Interaction
	req         gathering.Request
	deferred    bool
}

// NewSlashInvocation wraps an interaction whose request was already mapped
func NewSlashInvocation(api API, i *discordgo.Interaction, req gathering.Request) *SlashInvocation {
	return &SlashInvocation{api: api, interaction: i, req: req}
}

func (inv *SlashInvocation) Request() gathering.Request { return inv.req }

func (inv *SlashInvocation) Defer(ctx context.Context) error {
	if inv.deferred {
		return nil
	}
	err := inv.api.InteractionRespond(inv.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, withContext(ctx))
	if err != nil {
		return wrap("defer interaction", err)
	}
	inv.deferred = true
	return nil
}

// Respond answers the interaction directly, or with a followup once deferred
func (inv *SlashInvocation) Respond(ctx context.Context, reply gathering.Reply) error {
	var embeds []*discordgo.MessageEmbed
	if reply.Document != nil {
		embeds = []*discordgo.MessageEmbed{Embed(*reply.Document)}
	}
	var flags discordgo.MessageFlags
	if reply.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	if inv.deferred {
		_, err := inv.api.FollowupMessageCreate(inv.interaction, true, &discordgo.WebhookParams{
			Content: reply.Content,
			Embeds:  embeds,
			Flags:   flags,
		}, withContext(ctx))
		return wrap("followup", err)
	}

	err := inv.api.InteractionRespond(inv.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply.Content,
			Embeds:  embeds,
			Flags:   flags,
		},
	}, withContext(ctx))
	return wrap("respond interaction", err)
}

// TextInvocation answers a prefixed text command in its channel
type TextInvocation struct {
	api     API
	message *discordgo.Message
	req     gathering.Request
}

// NewTextInvocation wraps a message whose request was already mapped
func NewTextInvocation(api API, m *discordgo.Message, req gathering.Request) *TextInvocation {
	return &TextInvocation{api: api, message: m, req: req}
}

func (inv *TextInvocation) Request() gathering.Request { return inv.req }

// Defer shows the typing indicator
func (inv *TextInvocation) Defer(ctx context.Context) error {
	return wrap("typing", inv.api.ChannelTyping(inv.message.ChannelID, withContext(ctx)))
}

// Respond posts the reply in the command's channel. Text channels have no
// ephemeral messages; such replies quote the command message instead.
func (inv *TextInvocation) Respond(ctx context.Context, reply gathering.Reply) error {
	send := messageSend(reply)
	if reply.Ephemeral {
		send.Reference = inv.message.Reference()
	}
	_, err := inv.api.ChannelMessageSendComplex(inv.message.ChannelID, send, withContext(ctx))
	return wrap("send message", err)
}
