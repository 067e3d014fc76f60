package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
)

// ConnectionStatusResponse describes how the caller relates to another account.
type ConnectionStatusResponse struct {
	Account    models.AccountRef         `json:"account"`
	State      relations.ConnectionState `json:"state" example:"connected"`
	Connection *models.Connection        `json:"connection,omitempty"`
}

// FollowResponse is returned after following an account.
type FollowResponse struct {
	Follower  models.AccountRef     `json:"follower"`
	Following models.AccountRef     `json:"following"`
	Status    models.RelationStatus `json:"status" example:"accepted"`
}

// region --- Connection Handlers ---

// SendRequest godoc
// @Summary      Send a connection request
// @Description  Sends a connection request to another account. A pending request from that account is accepted instead, and a rejected request is sent again.
// @Tags         connections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        as     query     string           false  "Act as individual or organization"
// @Param        input  body      AccountRefInput  true   "Recipient"
// @Success      201    {object}  models.Connection  "Request sent"
// @Success      200    {object}  models.Connection  "Pending request from the recipient accepted"
// @Failure      400    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Failure      409    {object}  ErrorResponse
// @Router       /connections [post]
func (h *Handler) SendRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var input AccountRefInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recipient, err := input.ref()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account kind"})
		return
	}

	edge, err := h.engine.SendRequest(c.Request.Context(), actor, recipient)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if edge.Status == models.StatusAccepted {
		status = http.StatusOK
	}
	c.JSON(status, edge)
}

// AcceptRequest godoc
// @Summary      Accept a connection request
// @Description  Accepts a pending request addressed to the caller.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int     true   "Connection ID"
// @Param        as   query     string  false  "Act as individual or organization"
// @Success      200  {object}  models.Connection
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /connections/{id}/accept [post]
func (h *Handler) AcceptRequest(c *gin.Context) {
	h.answerRequest(c, h.engine.AcceptRequest)
}

// RejectRequest godoc
// @Summary      Reject a connection request
// @Description  Rejects a pending request addressed to the caller. The requester may send it again later.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int     true   "Connection ID"
// @Param        as   query     string  false  "Act as individual or organization"
// @Success      200  {object}  models.Connection
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /connections/{id}/reject [post]
func (h *Handler) RejectRequest(c *gin.Context) {
	h.answerRequest(c, h.engine.RejectRequest)
}

func (h *Handler) answerRequest(c *gin.Context, answer func(ctx context.Context, edgeID uint, actor models.AccountRef) (*models.Connection, error)) {
	edgeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	edge, err := answer(c.Request.Context(), edgeID, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, edge)
}

// RemoveConnection godoc
// @Summary      Remove a connection
// @Description  Deletes a connection the caller is part of, in any state. Follows and contacts created from it are kept.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int     true   "Connection ID"
// @Param        as   query     string  false  "Act as individual or organization"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /connections/{id} [delete]
func (h *Handler) RemoveConnection(c *gin.Context) {
	edgeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.engine.RemoveConnection(c.Request.Context(), edgeID, actor); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Connection removed"})
}

// ListConnections godoc
// @Summary      List connections
// @Description  Lists the caller's connections, newest activity first.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        as         query     string  false  "Act as individual or organization"
// @Param        status     query     string  false  "Comma separated statuses (pending, accepted, rejected)"
// @Param        direction  query     string  false  "incoming or outgoing"
// @Param        page       query     int     false  "Page number"  default(1)
// @Param        limit      query     int     false  "Page size"    default(10)
// @Success      200        {object}  PaginatedResponse[relations.ConnectionView]
// @Failure      400        {object}  ErrorResponse
// @Failure      401        {object}  ErrorResponse
// @Router       /connections [get]
func (h *Handler) ListConnections(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	page, limit, offset := pageParams(c)

	direction, ok := relations.ParseDirection(c.Query("direction"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'direction' parameter: use incoming or outgoing"})
		return
	}
	var statuses []models.RelationStatus
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, models.RelationStatus(strings.ToLower(s)))
		}
	}

	result, err := h.engine.ListConnections(c.Request.Context(), actor, relations.ConnectionQuery{
		Direction: direction,
		Statuses:  statuses,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(result.Items, result.Total, page, limit))
}

// PendingRequests godoc
// @Summary      List pending requests
// @Description  Lists the requests waiting for the caller's answer.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        as     query     string  false  "Act as individual or organization"
// @Param        page   query     int     false  "Page number"  default(1)
// @Param        limit  query     int     false  "Page size"    default(10)
// @Success      200    {object}  PaginatedResponse[relations.ConnectionView]
// @Failure      401    {object}  ErrorResponse
// @Router       /connections/pending [get]
func (h *Handler) PendingRequests(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	page, limit, offset := pageParams(c)
	result, err := h.engine.PendingRequests(c.Request.Context(), actor, offset, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(result.Items, result.Total, page, limit))
}

// ConnectionStatus godoc
// @Summary      Get the relation with an account
// @Description  Reports whether the caller is connected to, waiting on, or blocked from another account.
// @Tags         connections
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true   "Account kind"
// @Param        id    path      int     true   "Account ID"
// @Param        as    query     string  false  "Act as individual or organization"
// @Success      200   {object}  ConnectionStatusResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /connections/status/{kind}/{id} [get]
func (h *Handler) ConnectionStatus(c *gin.Context) {
	target, ok := parseTarget(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	state, edge, err := h.engine.ConnectionStatus(c.Request.Context(), actor, target)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ConnectionStatusResponse{Account: target, State: state, Connection: edge})
}

// endregion

// region --- Follow Handlers ---

// Follow godoc
// @Summary      Follow an account
// @Description  Follows an account the caller is connected to.
// @Tags         follows
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true   "Account kind"
// @Param        id    path      int     true   "Account ID"
// @Param        as    query     string  false  "Act as individual or organization"
// @Success      200   {object}  FollowResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse "Not connected or already following"
// @Router       /follows/{kind}/{id} [post]
func (h *Handler) Follow(c *gin.Context) {
	target, ok := parseTarget(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	f, err := h.engine.Follow(c.Request.Context(), actor, target)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FollowResponse{Follower: f.Follower(), Following: f.Following(), Status: f.Status})
}

// Unfollow godoc
// @Summary      Unfollow an account
// @Tags         follows
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true   "Account kind"
// @Param        id    path      int     true   "Account ID"
// @Param        as    query     string  false  "Act as individual or organization"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /follows/{kind}/{id} [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	target, ok := parseTarget(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.engine.Unfollow(c.Request.Context(), actor, target); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Unfollowed"})
}

// endregion
