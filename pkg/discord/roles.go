package discord

import (
	"context"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/arnavshah/warlist-bot/pkg/models"
)

const membersPageSize = 1000

// Roles exposes guild roles as slot labels
type Roles struct {
	api API
}

// NewRoles creates the label adapter
func NewRoles(api API) *Roles {
	return &Roles{api: api}
}

func (r *Roles) List(ctx context.Context, guildID string) ([]models.Label, error) {
	roles, err := r.api.GuildRoles(guildID, withContext(ctx))
	if err != nil {
		return nil, wrap("list roles", err)
	}
	labels := make([]models.Label, 0, len(roles))
	for _, role := range roles {
		labels = append(labels, models.Label{ID: role.ID, Name: role.Name})
	}
	return labels, nil
}

// Create adds a mentionable role so that a slot can be pinged
func (r *Roles) Create(ctx context.Context, guildID, name string) (models.Label, error) {
	mentionable := true
	role, err := r.api.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Mentionable: &mentionable,
	}, withContext(ctx))
	if err != nil {
		return models.Label{}, wrap("create role "+name, err)
	}
	return models.Label{ID: role.ID, Name: role.Name}, nil
}

func (r *Roles) Delete(ctx context.Context, guildID, roleID string) error {
	return wrap("delete role", r.api.GuildRoleDelete(guildID, roleID, withContext(ctx)))
}

func (r *Roles) Assign(ctx context.Context, guildID, userID string, roleIDs []string) error {
	for _, id := range roleIDs {
		if err := r.api.GuildMemberRoleAdd(guildID, userID, id, withContext(ctx)); err != nil {
			return wrap("add role", err)
		}
	}
	return nil
}

func (r *Roles) Unassign(ctx context.Context, guildID, userID string, roleIDs []string) error {
	for _, id := range roleIDs {
		if err := r.api.GuildMemberRoleRemove(guildID, userID, id, withContext(ctx)); err != nil {
			return wrap("remove role", err)
		}
	}
	return nil
}

// Members pages through the guild and returns the ids of members holding roleID
func (r *Roles) Members(ctx context.Context, guildID, roleID string) ([]string, error) {
	if roleID == "" {
		return nil, nil
	}

	var ids []string
	after := ""
	for {
		page, err := r.api.GuildMembers(guildID, after, membersPageSize, withContext(ctx))
		if err != nil {
			return nil, wrap("list members", err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			if slices.Contains(m.Roles, roleID) {
				ids = append(ids, m.User.ID)
			}
			after = m.User.ID
		}
		if len(page) < membersPageSize {
			return ids, nil
		}
	}
}
