package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/warlist-bot/pkg/gathering"
)

// ParseHours reports how a time expression would be read, without changing anything.
// request_over_limit covers the request alone; labels already live in a guild
// can still push a declare over the limit.
func (h *Handler) ParseHours(c *gin.Context) {
	var input struct {
		Text   string `json:"text"`
		Locale string `json:"locale"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	slots := gathering.ParseSlots(input.Text)
	if err := gathering.ValidateSlots(slots); err != nil {
		var de *gathering.DomainError
		if !errors.As(err, &de) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"valid":   false,
			"slots":   slots,
			"error":   de.Code,
			"message": de.Localize(input.Locale),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"slots": slots,
		"stats": gin.H{
			"slot_count":         len(slots),
			"request_over_limit": len(slots) > gathering.MaxTimeSlots,
		},
	})
}
