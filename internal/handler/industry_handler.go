package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
)

type IndustryInput struct {
	Name string `json:"name" binding:"required"`
}

type IndustryResponse struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name"`
}

func newIndustryResponse(industry models.Industry) IndustryResponse {
	return IndustryResponse{
		ID:        industry.ID,
		CreatedAt: industry.CreatedAt,
		UpdatedAt: industry.UpdatedAt,
		Name:      industry.Name,
	}
}

// CreateIndustry godoc
// @Summary      Create a new industry
// @Description  Adds an industry to the trade catalog.
// @Tags         admin-industries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body IndustryInput true "Industry Info"
// @Success      201  {object}  IndustryResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      409  {object}  ErrorResponse "Industry already exists"
// @Router       /admin/industries [post]
func (h *Handler) CreateIndustry(c *gin.Context) {
	var input IndustryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	industry := models.Industry{Name: strings.TrimSpace(input.Name)}
	if err := h.store.CreateIndustry(c.Request.Context(), &industry); err != nil {
		if errors.Is(err, relations.ErrDuplicateKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Industry already exists"})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newIndustryResponse(industry))
}

// GetIndustries godoc
// @Summary      Get all industries
// @Description  Retrieves the trade catalog, sorted by name.
// @Tags         industries
// @Produce      json
// @Success      200  {array}   IndustryResponse
// @Router       /industries [get]
func (h *Handler) GetIndustries(c *gin.Context) {
	industries, err := h.store.ListIndustries(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := make([]IndustryResponse, 0, len(industries))
	for _, industry := range industries {
		response = append(response, newIndustryResponse(industry))
	}
	c.JSON(http.StatusOK, response)
}

// UpdateIndustry godoc
// @Summary      Update an industry
// @Description  Renames an existing industry.
// @Tags         admin-industries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int      true  "Industry ID"
// @Param        input body IndustryInput true "New Industry Info"
// @Success      200  {object}  IndustryResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      404  {object}  ErrorResponse "Industry not found"
// @Failure      409  {object}  ErrorResponse "Industry already exists"
// @Router       /admin/industries/{id} [put]
func (h *Handler) UpdateIndustry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input IndustryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	industry, err := h.store.GetIndustry(ctx, id)
	if errors.Is(err, relations.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Industry not found"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	industry.Name = strings.TrimSpace(input.Name)
	if err := h.store.SaveIndustry(ctx, industry); err != nil {
		if errors.Is(err, relations.ErrDuplicateKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Industry already exists"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newIndustryResponse(*industry))
}

// DeleteIndustry godoc
// @Summary      Delete an industry
// @Description  Removes an industry from the catalog. Accounts keep the trade name they stored.
// @Tags         admin-industries
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Industry ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      404  {object}  ErrorResponse "Industry not found"
// @Router       /admin/industries/{id} [delete]
func (h *Handler) DeleteIndustry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	n, err := h.store.DeleteIndustry(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Industry not found"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Industry deleted"})
}
