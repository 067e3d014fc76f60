package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkup/backend/internal/models"
)

// ContactResponse is an address-book entry.
type ContactResponse struct {
	ID             uint      `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Avatar         string    `json:"avatar,omitempty"`
	PlatformUserID *uint     `json:"platform_user_id,omitempty"`
	IsPlatformUser bool      `json:"is_platform_user"`
	CreatedAt      time.Time `json:"created_at"`
}

func newContactResponse(c models.Contact) ContactResponse {
	return ContactResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		Avatar:         c.Avatar,
		PlatformUserID: c.PlatformUserID,
		IsPlatformUser: c.IsPlatformUser,
		CreatedAt:      c.CreatedAt,
	}
}

// ListContacts godoc
// @Summary      List contacts
// @Description  Lists the authenticated user's address book. Accepted connections with other users show up here automatically.
// @Tags         contacts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   ContactResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /contacts [get]
func (h *Handler) ListContacts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	contacts, err := h.engine.ListContacts(c.Request.Context(), models.IndividualRef(userID))
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := make([]ContactResponse, 0, len(contacts))
	for _, ct := range contacts {
		response = append(response, newContactResponse(ct))
	}
	c.JSON(http.StatusOK, response)
}

// DeleteContact godoc
// @Summary      Delete a contact
// @Description  Deletes a contact. If it mirrors a platform user, the connection with that user is removed as well.
// @Tags         contacts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Contact ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Contact not found"
// @Router       /contacts/{id} [delete]
func (h *Handler) DeleteContact(c *gin.Context) {
	contactID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.engine.DeleteContact(c.Request.Context(), models.IndividualRef(userID), contactID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Contact deleted"})
}
