package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkup/backend/internal/models"
)

// Block godoc
// @Summary      Block an account
// @Description  Blocks another account. Any connection and follow between the two is removed, and neither side can reach the other until unblocked.
// @Tags         blocks
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true   "Account kind"
// @Param        id    path      int     true   "Account ID"
// @Param        as    query     string  false  "Act as individual or organization"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse "Already blocked"
// @Router       /blocks/{kind}/{id} [post]
func (h *Handler) Block(c *gin.Context) {
	target, ok := parseTarget(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.engine.Blocks().Block(c.Request.Context(), actor, target); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Account blocked"})
}

// Unblock godoc
// @Summary      Unblock an account
// @Tags         blocks
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true   "Account kind"
// @Param        id    path      int     true   "Account ID"
// @Param        as    query     string  false  "Act as individual or organization"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse "Not blocked"
// @Router       /blocks/{kind}/{id} [delete]
func (h *Handler) Unblock(c *gin.Context) {
	target, ok := parseTarget(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.engine.Blocks().Unblock(c.Request.Context(), actor, target); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Account unblocked"})
}

// ListBlocked godoc
// @Summary      List blocked accounts
// @Description  Lists the accounts the caller has blocked, in the order they were blocked.
// @Tags         blocks
// @Produce      json
// @Security     BearerAuth
// @Param        as   query     string  false  "Act as individual or organization"
// @Success      200  {array}   models.Profile
// @Failure      401  {object}  ErrorResponse
// @Router       /blocks [get]
func (h *Handler) ListBlocked(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	profiles, err := h.engine.Blocks().ListBlocked(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	c.JSON(http.StatusOK, profiles)
}
