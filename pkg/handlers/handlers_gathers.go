package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arnavshah/warlist-bot/pkg/gathering"
	"github.com/arnavshah/warlist-bot/pkg/models"
)

// Poster posts a reply to a chat channel
type Poster interface {
	Send(ctx context.Context, channelID string, reply gathering.Reply) error
}

// GatherRequest is the body of every gathering command
type GatherRequest struct {
	ChannelID string   `json:"channel_id"`
	ActorID   string   `json:"actor_id"`
	Members   []string `json:"members"`
	Hours     string   `json:"hours"`
	Tier      string   `json:"tier"`
	RoleID    string   `json:"role_id"`
	Locale    string   `json:"locale"`
}

// httpInvocation collects the replies of a command for the JSON response
type httpInvocation struct {
	req     gathering.Request
	poster  Poster
	replies []gathering.Reply
}

func (inv *httpInvocation) Request() gathering.Request { return inv.req }

func (inv *httpInvocation) Defer(context.Context) error { return nil }

func (inv *httpInvocation) Respond(ctx context.Context, reply gathering.Reply) error {
	inv.replies = append(inv.replies, reply)
	if inv.poster == nil || inv.req.ChannelID == "" || reply.Ephemeral {
		return nil
	}
	return inv.poster.Send(ctx, inv.req.ChannelID, reply)
}

// GetGathers returns the reconciled state of a guild and its rendering
func (h *Handler) GetGathers(c *gin.Context) {
	state, err := h.Service.CurrentState(c.Request.Context(), c.Param("guild"))
	if err != nil {
		h.writeError(c, err, c.Query("locale"))
		return
	}

	h.RecordUsage(c, len(state), 0)

	c.JSON(http.StatusOK, gin.H{
		"guild":    c.Param("guild"),
		"state":    state,
		"document": gathering.Render(state),
	})
}

// Declare records members for the hours at the requested tier
func (h *Handler) Declare(c *gin.Context) {
	var body GatherRequest
	if !h.bind(c, &body) {
		return
	}

	tier := models.Confirmed
	if body.Tier != "" {
		t, err := models.ParseTier(body.Tier)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tier = t
	}

	cmd := gathering.CmdCan
	switch tier {
	case models.Tentative:
		cmd = gathering.CmdTentative
	case models.Substitute:
		cmd = gathering.CmdSubstitute
	}

	h.run(c, cmd, body, true)
}

// Drop withdraws members from the hours
func (h *Handler) Drop(c *gin.Context) {
	var body GatherRequest
	if !h.bind(c, &body) {
		return
	}
	h.run(c, gathering.CmdDrop, body, true)
}

// Out removes the hours for everyone
func (h *Handler) Out(c *gin.Context) {
	var body GatherRequest
	if !h.bind(c, &body) {
		return
	}
	h.run(c, gathering.CmdOut, body, false)
}

// Clear removes every hour of the guild
func (h *Handler) Clear(c *gin.Context) {
	var body GatherRequest
	if !h.bind(c, &body) {
		return
	}
	h.run(c, gathering.CmdClear, body, false)
}

// Pick chooses a random member of a role
func (h *Handler) Pick(c *gin.Context) {
	var body GatherRequest
	if !h.bind(c, &body) {
		return
	}
	if body.RoleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role_id is required"})
		return
	}
	h.run(c, gathering.CmdPick, body, false)
}

func (h *Handler) bind(c *gin.Context, body *GatherRequest) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) run(c *gin.Context, cmd gathering.Command, body GatherRequest, needsMembers bool) {
	if needsMembers && body.ActorID == "" && len(body.Members) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor_id or members is required"})
		return
	}

	inv := &httpInvocation{
		req: gathering.Request{
			GroupID:   c.Param("guild"),
			ChannelID: body.ChannelID,
			ActorID:   body.ActorID,
			Members:   body.Members,
			Text:      body.Hours,
			LabelID:   body.RoleID,
			Locale:    body.Locale,
		},
		poster: h.Poster,
	}

	if err := h.Service.Execute(c.Request.Context(), inv, cmd); err != nil {
		h.writeError(c, err, body.Locale)
		return
	}

	h.RecordUsage(c, len(gathering.ParseSlots(body.Hours)), len(inv.req.TargetMembers()))

	resp := gin.H{"command": cmd.String()}
	if n := len(inv.replies); n > 0 {
		last := inv.replies[n-1]
		resp["content"] = last.Content
		if last.Document != nil {
			resp["document"] = last.Document
		}
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps domain errors to their status and hides everything else
func (h *Handler) writeError(c *gin.Context, err error, locale string) {
	var de *gathering.DomainError
	if errors.As(err, &de) {
		c.JSON(de.Status, gin.H{"error": de.Code, "message": de.Localize(locale)})
		return
	}

	incident := uuid.NewString()
	h.Logger.Error("http command failed", "incident", incident, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "incident": incident})
}
