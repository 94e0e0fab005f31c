package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/arnavshah/warlist-bot/pkg/models"
)

// Embed converts a roster document to a Discord embed
func Embed(doc models.Document) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: doc.Title,
		Color: doc.Color,
	}
	if doc.Author != "" {
		e.Author = &discordgo.MessageEmbedAuthor{Name: doc.Author}
	}
	for _, f := range doc.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	if doc.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: doc.Footer}
	}
	return e
}

// Document reads a roster document back from an embed
func Document(e *discordgo.MessageEmbed) models.Document {
	doc := models.Document{
		Title:  e.Title,
		Color:  e.Color,
		Fields: make([]models.Field, 0, len(e.Fields)),
	}
	if e.Author != nil {
		doc.Author = e.Author.Name
	}
	for _, f := range e.Fields {
		if f == nil {
			continue
		}
		doc.Fields = append(doc.Fields, models.Field{Name: f.Name, Value: f.Value})
	}
	if e.Footer != nil {
		doc.Footer = e.Footer.Text
	}
	return doc
}
