package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkup/backend/internal/auth"
	"linkup/backend/internal/hub"
	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
	"linkup/backend/internal/store"
)

// Options tunes request parsing.
type Options struct {
	SuggestionDefaultLimit int
	SuggestionMaxLimit     int
}

// Handler serves the HTTP API on top of the store and the relationship engine.
type Handler struct {
	store  store.Store
	engine *relations.Engine
	hub    *hub.Hub
	log    *slog.Logger
	opts   Options
}

// New returns a Handler. hub may be nil, in which case the event stream is unavailable.
func New(st store.Store, engine *relations.Engine, h *hub.Hub, log *slog.Logger, opts Options) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if opts.SuggestionDefaultLimit <= 0 {
		opts.SuggestionDefaultLimit = 10
	}
	if opts.SuggestionMaxLimit < opts.SuggestionDefaultLimit {
		opts.SuggestionMaxLimit = opts.SuggestionDefaultLimit
	}
	return &Handler{store: st, engine: engine, hub: h, log: log, opts: opts}
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// MessageResponse is returned by operations that have nothing else to report.
type MessageResponse struct {
	Message string `json:"message" example:"Done"`
}

// statusFor maps an engine error kind to an HTTP status.
func statusFor(kind relations.ErrorKind) int {
	switch kind {
	case relations.KindValidation:
		return http.StatusBadRequest
	case relations.KindConflict:
		return http.StatusConflict
	case relations.KindNotFound:
		return http.StatusNotFound
	case relations.KindPermission:
		return http.StatusForbidden
	}
	return http.StatusServiceUnavailable
}

// respondError writes err as a JSON error. Store faults are logged and hidden from the caller.
func (h *Handler) respondError(c *gin.Context, err error) {
	var relErr *relations.Error
	if !errors.As(err, &relErr) {
		switch {
		case errors.Is(err, relations.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		case errors.Is(err, relations.ErrDuplicateKey):
			c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
		default:
			h.log.Error("request failed", "path", c.FullPath(), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}
	status := statusFor(relErr.Kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "op", relErr.Op, "error", err)
	}
	c.JSON(status, gin.H{"error": relations.Message(err)})
}

// currentUser returns the authenticated user ID or writes a 401.
func currentUser(c *gin.Context) (uint, bool) {
	id, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return id, ok
}

// actor resolves the account the caller acts as, selected by the "as" query parameter.
func (h *Handler) actor(c *gin.Context) (models.AccountRef, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return models.AccountRef{}, false
	}
	kind, ok := parseKindQuery(c)
	if !ok {
		return models.AccountRef{}, false
	}
	ref, err := h.engine.ActingAs(c.Request.Context(), userID, kind)
	if err != nil {
		h.respondError(c, err)
		return models.AccountRef{}, false
	}
	return ref, true
}

func parseKindQuery(c *gin.Context) (models.AccountKind, bool) {
	as := c.Query("as")
	if as == "" {
		return models.KindIndividual, true
	}
	kind, err := models.ParseAccountKind(as)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'as' parameter: use individual or organization"})
		return "", false
	}
	return kind, true
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

// parseTarget reads the :kind/:id pair naming another account.
func parseTarget(c *gin.Context) (models.AccountRef, bool) {
	kind, err := models.ParseAccountKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account kind"})
		return models.AccountRef{}, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return models.AccountRef{}, false
	}
	return models.AccountRef{ID: id, Kind: kind}, true
}

// AccountRefInput names an account in a request body.
type AccountRefInput struct {
	Kind string `json:"kind" binding:"required" example:"individual"`
	ID   uint   `json:"id" binding:"required" example:"2"`
}

func (in AccountRefInput) ref() (models.AccountRef, error) {
	kind, err := models.ParseAccountKind(in.Kind)
	if err != nil {
		return models.AccountRef{}, err
	}
	return models.AccountRef{ID: in.ID, Kind: kind}, nil
}
