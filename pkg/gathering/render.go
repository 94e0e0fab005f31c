package gathering

import (
	"fmt"
	"strings"

	"github.com/arnavshah/warlist-bot/pkg/models"
)

const (
	DocumentTitle = "**6v6 War List**"
	ArchiveAuthor = "Archive"

	ColorDefault = 0xF1C40F
	ColorError   = 0xE74C3C
	ColorArchive = 0x00BFFF

	tierNote = "S<@..> = Substitute, T<@..> = Tentative"
)

// Mention formats a user id as a platform mention
func Mention(userID string) string {
	return "<@" + userID + ">"
}

func mentions(ids []string, prefix string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = prefix + Mention(id)
	}
	return out
}

// Render lays out a reconciled state, one field per slot in ascending order.
// The field name carries the remaining confirmed seats, which goes negative
// when a slot is over-subscribed.
func Render(state models.State) models.Document {
	doc := models.Document{
		Title:  DocumentTitle,
		Color:  ColorDefault,
		Fields: []models.Field{},
		Footer: tierNote,
	}

	for _, slot := range state.Slots() {
		roster := state[slot]

		if roster.Len() == 0 {
			doc.Fields = append(doc.Fields, models.Field{
				Name:  fmt.Sprintf("%d@%d", slot, FillThreshold),
				Value: "> none",
			})
			continue
		}

		name := fmt.Sprintf("%d@%d", slot, FillThreshold-len(roster.Confirmed))
		value := "> " + strings.Join(mentions(roster.Confirmed, ""), ", ")

		if extra := len(roster.Tentative) + len(roster.Substitute); extra > 0 {
			name += fmt.Sprintf(" (%d)", extra)
			subs := mentions(roster.Substitute, "S")
			subs = append(subs, mentions(roster.Tentative, "T")...)
			value += "(" + strings.Join(subs, ", ") + ")"
		}

		doc.Fields = append(doc.Fields, models.Field{Name: name, Value: value})
	}

	return doc
}

// Archive marks an already rendered document as superseded
func Archive(doc models.Document) models.Document {
	out := doc
	out.Fields = append([]models.Field{}, doc.Fields...)
	out.Color = ColorArchive
	out.Author = ArchiveAuthor
	return out
}

// IsArchived reports whether doc went through Archive
func IsArchived(doc models.Document) bool {
	return doc.Color == ColorArchive && doc.Author == ArchiveAuthor
}

// fillHighlight lists the confirmed members of every requested slot that
// reached FillThreshold. Slots outside requested are ignored.
func fillHighlight(state models.State, requested []int) string {
	want := make(map[int]bool, len(requested))
	for _, slot := range requested {
		want[slot] = true
	}

	var b strings.Builder
	for _, slot := range state.Slots() {
		confirmed := state[slot].Confirmed
		if !want[slot] || len(confirmed) < FillThreshold {
			continue
		}
		fmt.Fprintf(&b, "**%d** %s\n", slot, strings.Join(mentions(confirmed, ""), ", "))
	}
	return b.String()
}
