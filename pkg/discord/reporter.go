package discord

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/arnavshah/warlist-bot/pkg/gathering"
)

// WebhookAPI is the part of *discordgo.Session used to execute webhooks
type WebhookAPI interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// WebhookReporter posts incidents to an operator channel webhook
type WebhookReporter struct {
	api   WebhookAPI
	id    string
	token string
}

// NewWebhookReporter parses a URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func NewWebhookReporter(api WebhookAPI, webhookURL string) (*WebhookReporter, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	return &WebhookReporter{api: api, id: id, token: token}, nil
}

func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("not a webhook url: %s", u.Redacted())
}

// Report sends a summary line with the full error attached as error.txt
func (r *WebhookReporter) Report(ctx context.Context, incident gathering.Incident) error {
	req := incident.Request
	summary := fmt.Sprintf("Unexpected error `%s` in `%s` (guild %s, channel %s, user %s)",
		incident.ID, incident.Command, req.GroupID, req.ChannelID, req.ActorID)

	detail := fmt.Sprintf("incident: %s\ncommand: %s\ntext: %q\nmembers: %v\nerror: %v\n",
		incident.ID, incident.Command, req.Text, req.Members, incident.Err)

	_, err := r.api.WebhookExecute(r.id, r.token, false, &discordgo.WebhookParams{
		Content: summary,
		Files: []*discordgo.File{{
			Name:        "error.txt",
			ContentType: "text/plain",
			Reader:      strings.NewReader(detail),
		}},
	}, withContext(ctx))
	if err != nil {
		return fmt.Errorf("execute webhook: %w", err)
	}
	return nil
}
