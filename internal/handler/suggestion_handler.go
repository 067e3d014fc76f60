package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
)

// GetSuggestions godoc
// @Summary      Suggest accounts to connect with
// @Description  Returns accounts the caller may know: connections of connections first, then accounts sharing a location, an industry or a business type. With as=organization the suggestions are computed for the organization the caller represents.
// @Tags         suggestions
// @Produce      json
// @Security     BearerAuth
// @Param        as     query     string  false  "Act as individual or organization"
// @Param        limit  query     int     false  "Maximum number of suggestions"
// @Success      200    {array}   relations.Suggestion
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse
// @Router       /suggestions [get]
func (h *Handler) GetSuggestions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	kind, ok := parseKindQuery(c)
	if !ok {
		return
	}

	limit := h.opts.SuggestionDefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter"})
			return
		}
		limit = min(n, h.opts.SuggestionMaxLimit)
	}

	ctx := c.Request.Context()
	// Fails early when the caller does not represent an organization.
	if _, err := h.engine.ActingAs(ctx, userID, kind); err != nil {
		h.respondError(c, err)
		return
	}

	suggestions, err := h.engine.Suggestions().Suggest(ctx, models.IndividualRef(userID), kind, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if suggestions == nil {
		suggestions = []relations.Suggestion{}
	}
	c.JSON(http.StatusOK, suggestions)
}
