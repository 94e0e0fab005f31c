package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/arnavshah/warlist-bot/pkg/models"
)

// Gather represents the gathers table. A member holds at most one tier per
// hour in a guild.
type Gather struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GuildID   string    `gorm:"size:32;not null;uniqueIndex:idx_gathers_guild_user_hour;index" json:"guild_id"`
	UserID    string    `gorm:"size:32;not null;uniqueIndex:idx_gathers_guild_user_hour" json:"user_id"`
	Hour      int       `gorm:"not null;uniqueIndex:idx_gathers_guild_user_hour" json:"hour"`
	Type      string    `gorm:"size:3;not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// GatherStore keeps participation rows in the gathers table
type GatherStore struct {
	db *gorm.DB
}

// NewGatherStore creates a store on db
func NewGatherStore(db *gorm.DB) *GatherStore {
	return &GatherStore{db: db}
}

// InsertGathers adds one row per user and hour
func (s *GatherStore) InsertGathers(ctx context.Context, guildID string, userIDs []string, tier models.Tier, hours []int) error {
	rows := make([]Gather, 0, len(userIDs)*len(hours))
	for _, user := range userIDs {
		for _, hour := range hours {
			rows = append(rows, Gather{
				GuildID: guildID,
				UserID:  user,
				Hour:    hour,
				Type:    tier.Code(),
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// DeleteGathers removes the rows of the given users at the given hours
func (s *GatherStore) DeleteGathers(ctx context.Context, guildID string, userIDs []string, hours []int) error {
	if len(userIDs) == 0 || len(hours) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("guild_id = ? AND user_id IN ? AND hour IN ?", guildID, userIDs, hours).
		Delete(&Gather{}).Error
}

// DeleteGathersBySlots removes every row of the given hours
func (s *GatherStore) DeleteGathersBySlots(ctx context.Context, guildID string, hours []int) error {
	if len(hours) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("guild_id = ? AND hour IN ?", guildID, hours).
		Delete(&Gather{}).Error
}

// ClearGathers removes every row of the guild
func (s *GatherStore) ClearGathers(ctx context.Context, guildID string) error {
	return s.db.WithContext(ctx).Where("guild_id = ?", guildID).Delete(&Gather{}).Error
}

// AllGathers returns the guild's rows in insertion order
func (s *GatherStore) AllGathers(ctx context.Context, guildID string) ([]models.Participation, error) {
	var rows []Gather
	if err := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.Participation, 0, len(rows))
	for _, r := range rows {
		tier, err := models.ParseTier(r.Type)
		if err != nil {
			return nil, fmt.Errorf("gather %d: %w", r.ID, err)
		}
		out = append(out, models.Participation{
			GroupID: r.GuildID,
			UserID:  r.UserID,
			Tier:    tier,
			Slot:    r.Hour,
		})
	}
	return out, nil
}
