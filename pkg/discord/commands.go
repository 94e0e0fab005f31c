package discord

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/arnavshah/warlist-bot/pkg/gathering"
	"github.com/arnavshah/warlist-bot/pkg/models"
)

// mentionRe matches user, role and channel mentions and custom emoji, whose
// ids would otherwise read as hours.
var mentionRe = regexp.MustCompile(`<(?:@[!&]?|#)\d+>|<a?:\w+:\d+>`)

var textCommands = map[string]gathering.Command{
	"can":        gathering.CmdCan,
	"c":          gathering.CmdCan,
	"tentative":  gathering.CmdTentative,
	"t":          gathering.CmdTentative,
	"substitute": gathering.CmdSubstitute,
	"sub":        gathering.CmdSubstitute,
	"s":          gathering.CmdSubstitute,
	"drop":       gathering.CmdDrop,
	"d":          gathering.CmdDrop,
	"out":        gathering.CmdOut,
	"clear":      gathering.CmdClear,
	"now":        gathering.CmdNow,
	"warlist":    gathering.CmdNow,
	"list":       gathering.CmdNow,
	"pick":       gathering.CmdPick,
}

func hoursOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "hours",
		Description: "Hours, e.g. 20 21 or 20-24",
		Required:    required,
	}
}

func memberOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "member",
		Description: "Member to act for (default: you)",
	}
}

// Commands returns the slash command definitions
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "can",
			Description: "Join the war list",
			Options: []*discordgo.ApplicationCommandOption{
				hoursOption(true),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "Participation type",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "can", Value: models.Confirmed.Code()},
						{Name: "tentative", Value: models.Tentative.Code()},
						{Name: "substitute", Value: models.Substitute.Code()},
					},
				},
				memberOption(),
			},
		},
		{
			Name:        "drop",
			Description: "Leave the war list",
			Options:     []*discordgo.ApplicationCommandOption{hoursOption(true), memberOption()},
		},
		{
			Name:        "out",
			Description: "Remove hours from the war list",
			Options:     []*discordgo.ApplicationCommandOption{hoursOption(true)},
		},
		{
			Name:        "clear",
			Description: "Clear the war list",
		},
		{
			Name:        "now",
			Description: "Show the war list",
		},
		{
			Name:        "pick",
			Description: "Pick a random member of a role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to pick from",
					Required:    true,
				},
			},
		},
	}
}

// SlashRequest maps an application command interaction to a command
func SlashRequest(i *discordgo.Interaction) (gathering.Command, gathering.Request, bool) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return 0, gathering.Request{}, false
	}
	data := i.ApplicationCommandData()

	req := gathering.Request{
		GroupID:   i.GuildID,
		ChannelID: i.ChannelID,
		Locale:    string(i.Locale),
	}
	if i.Member != nil && i.Member.User != nil {
		req.ActorID = i.Member.User.ID
	} else if i.User != nil {
		req.ActorID = i.User.ID
	}

	tier := models.Confirmed
	for _, opt := range data.Options {
		switch opt.Name {
		case "hours":
			req.Text = opt.StringValue()
		case "type":
			if t, err := models.ParseTier(opt.StringValue()); err == nil {
				tier = t
			}
		case "member":
			if id, ok := opt.Value.(string); ok {
				req.Members = []string{id}
			}
		case "role":
			if id, ok := opt.Value.(string); ok {
				req.LabelID = id
			}
		}
	}

	switch data.Name {
	case "can":
		return declareCommand(tier), req, true
	case "drop":
		return gathering.CmdDrop, req, true
	case "out":
		return gathering.CmdOut, req, true
	case "clear":
		return gathering.CmdClear, req, true
	case "now":
		return gathering.CmdNow, req, true
	case "pick":
		return gathering.CmdPick, req, true
	}
	return 0, gathering.Request{}, false
}

func declareCommand(tier models.Tier) gathering.Command {
	switch tier {
	case models.Tentative:
		return gathering.CmdTentative
	case models.Substitute:
		return gathering.CmdSubstitute
	}
	return gathering.CmdCan
}

// TextRequest maps a prefixed message such as "!c 20-22 @member" to a command.
// Mentioned users are the members; the rest of the text, mentions removed,
// is the time expression.
func TextRequest(prefix string, m *discordgo.Message) (gathering.Command, gathering.Request, bool) {
	if prefix == "" || m.Author == nil || m.Author.Bot || !strings.HasPrefix(m.Content, prefix) {
		return 0, gathering.Request{}, false
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, prefix))
	if len(fields) == 0 {
		return 0, gathering.Request{}, false
	}
	cmd, ok := textCommands[strings.ToLower(fields[0])]
	if !ok {
		return 0, gathering.Request{}, false
	}

	text := mentionRe.ReplaceAllString(strings.Join(fields[1:], " "), " ")

	req := gathering.Request{
		GroupID:   m.GuildID,
		ChannelID: m.ChannelID,
		ActorID:   m.Author.ID,
		Text:      strings.Join(strings.Fields(text), " "),
	}
	for _, u := range m.Mentions {
		if u != nil && !u.Bot {
			req.Members = append(req.Members, u.ID)
		}
	}
	if len(m.MentionRoles) > 0 {
		req.LabelID = m.MentionRoles[0]
	}

	return cmd, req, true
}
