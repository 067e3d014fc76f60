package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"linkup/backend/internal/auth"
	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
	"linkup/backend/pkg/jwt"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Username  string `json:"username" binding:"required" example:"jdoe"`
	Email     string `json:"email" binding:"required,email" example:"jdoe@example.com"`
	Password  string `json:"password" binding:"required,min=8" example:"password123"`
	FirstName string `json:"first_name" example:"Jane"`
	LastName  string `json:"last_name" example:"Doe"`
	Locality  string `json:"locality" example:"Lyon"`
	Trade     string `json:"trade" example:"Construction"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Login    string `json:"login" binding:"required" example:"jdoe"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// TokenResponse carries an authentication token.
type TokenResponse struct {
	Token string `json:"token"`
}

// UpdateProfileInput lists the profile fields a user may change. Omitted fields are kept.
type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Locality  *string `json:"locality"`
	Trade     *string `json:"trade"`
	Avatar    *string `json:"avatar"`
}

// ActingAsInput selects the organization the user represents; null goes back to acting as themself.
type ActingAsInput struct {
	OrganizationID *uint `json:"organization_id" example:"3"`
}

// OrganizationInput defines the structure for creating an organization.
type OrganizationInput struct {
	Name         string `json:"name" binding:"required" example:"Doe Builders"`
	Email        string `json:"email" binding:"omitempty,email" example:"contact@doebuilders.com"`
	Locality     string `json:"locality" example:"Lyon"`
	Trade        string `json:"trade" example:"Construction"`
	BusinessType string `json:"business_type" example:"Contractor"`
	Avatar       string `json:"avatar"`
}

// OrganizationResponse is an organization as seen by its owner.
type OrganizationResponse struct {
	ID           uint   `json:"id"`
	OwnerID      uint   `json:"owner_id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Locality     string `json:"locality,omitempty"`
	Trade        string `json:"trade,omitempty"`
	BusinessType string `json:"business_type,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
}

// PrivateAccountResponse defines the structure for the authenticated user's own profile.
type PrivateAccountResponse struct {
	ID                   uint                   `json:"id" example:"1"`
	Username             string                 `json:"username" example:"jdoe"`
	Email                string                 `json:"email" example:"jdoe@example.com"`
	FirstName            string                 `json:"first_name"`
	LastName             string                 `json:"last_name"`
	Locality             string                 `json:"locality"`
	Trade                string                 `json:"trade"`
	Avatar               string                 `json:"avatar"`
	Role                 string                 `json:"role"`
	ActiveOrganizationID *uint                  `json:"active_organization_id"`
	Organizations        []OrganizationResponse `json:"organizations"`
	ConnectionsCount     int64                  `json:"connections_count"`
	FollowersCount       int64                  `json:"followers_count"`
	FollowingCount       int64                  `json:"following_count"`
}

// PublicAccountResponse defines the structure for another account's public profile.
type PublicAccountResponse struct {
	Profile          models.Profile            `json:"profile"`
	ConnectionsCount int64                     `json:"connections_count"`
	FollowersCount   int64                     `json:"followers_count"`
	FollowingCount   int64                     `json:"following_count"`
	Relation         relations.ConnectionState `json:"relation" example:"pending_outgoing"`
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new individual account and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hashedPassword),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Locality:     input.Locality,
		Trade:        input.Trade,
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		if errors.Is(err, relations.ErrDuplicateKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
			return
		}
		h.respondError(c, err)
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, TokenResponse{Token: token})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with username/email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  TokenResponse
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.FindUserByLogin(c.Request.Context(), strings.TrimSpace(input.Login))
	if errors.Is(err, relations.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// endregion

// region --- Account Handlers ---

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile of the authenticated user, with the organizations they own.
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateAccountResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /accounts/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, relations.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.respondError(c, err)
		return
	}
	response, err := h.buildPrivateAccountResponse(c.Request.Context(), *user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// UpdateMe godoc
// @Summary      Update current user's profile
// @Description  Updates the profile fields present in the body.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UpdateProfileInput true "Profile fields"
// @Success      200  {object}  PrivateAccountResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /accounts/me [put]
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	for dst, src := range map[*string]*string{
		&user.FirstName: input.FirstName,
		&user.LastName:  input.LastName,
		&user.Locality:  input.Locality,
		&user.Trade:     input.Trade,
		&user.Avatar:    input.Avatar,
	} {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	if err := h.store.SaveUser(ctx, user); err != nil {
		h.respondError(c, err)
		return
	}

	response, err := h.buildPrivateAccountResponse(ctx, *user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// SetActingAs godoc
// @Summary      Choose the acting organization
// @Description  Selects the organization the user acts on behalf of with ?as=organization. Send null to clear it.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ActingAsInput true "Organization"
// @Success      200  {object}  PrivateAccountResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not the owner of this organization"
// @Failure      404  {object}  ErrorResponse
// @Router       /accounts/me/acting-as [post]
func (h *Handler) SetActingAs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input ActingAsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if input.OrganizationID != nil {
		org, err := h.store.GetOrganization(ctx, *input.OrganizationID)
		if errors.Is(err, relations.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}
		if err != nil {
			h.respondError(c, err)
			return
		}
		if org.OwnerID != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not the owner of this organization"})
			return
		}
	}
	user.ActiveOrganizationID = input.OrganizationID
	if err := h.store.SaveUser(ctx, user); err != nil {
		h.respondError(c, err)
		return
	}

	response, err := h.buildPrivateAccountResponse(ctx, *user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// CreateOrganization godoc
// @Summary      Create an organization
// @Description  Creates an organization owned by the authenticated user.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body OrganizationInput true "Organization Info"
// @Success      201  {object}  OrganizationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /organizations [post]
func (h *Handler) CreateOrganization(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input OrganizationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org := models.Organization{
		OwnerID:      userID,
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		Locality:     input.Locality,
		Trade:        input.Trade,
		BusinessType: input.BusinessType,
		Avatar:       input.Avatar,
	}
	if err := h.store.CreateOrganization(c.Request.Context(), &org); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrganizationResponse(org))
}

// GetAccount godoc
// @Summary      Get an account
// @Description  Retrieves the public profile of an individual or organization. Signed-in callers also get their relation to it.
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        kind path      string  true   "Account kind (individual or organization)"
// @Param        id   path      int     true   "Account ID"
// @Param        as   query     string  false  "Act as individual or organization"
// @Success      200  {object}  PublicAccountResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /accounts/{kind}/{id} [get]
func (h *Handler) GetAccount(c *gin.Context) {
	target, ok := parseTarget(c)
	if !ok {
		return
	}
	// Anonymous visitors see the profile without a relation.
	var viewer models.AccountRef
	if _, signedIn := auth.UserID(c); signedIn {
		if viewer, ok = h.actor(c); !ok {
			return
		}
	}

	ctx := c.Request.Context()
	profile, err := h.store.Resolve(ctx, target)
	if errors.Is(err, relations.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	state := relations.StateNone
	if viewer.Valid() {
		if state, _, err = h.engine.ConnectionStatus(ctx, viewer, target); err != nil {
			h.respondError(c, err)
			return
		}
	}
	connections, followers, following, err := h.counts(ctx, target)
	if err != nil {
		h.respondError(c, err)
		return
	}

	public := *profile
	if target != viewer {
		public = public.Public()
	}
	c.JSON(http.StatusOK, PublicAccountResponse{
		Profile:          public,
		ConnectionsCount: connections,
		FollowersCount:   followers,
		FollowingCount:   following,
		Relation:         state,
	})
}

// endregion

// region --- Helpers ---

func (h *Handler) counts(ctx context.Context, ref models.AccountRef) (connections, followers, following int64, err error) {
	page, err := h.engine.ListConnections(ctx, ref, relations.ConnectionQuery{
		Statuses: []models.RelationStatus{models.StatusAccepted},
		Limit:    1,
	})
	if err != nil {
		return 0, 0, 0, err
	}
	followers, following, err = h.engine.FollowCounts(ctx, ref)
	if err != nil {
		return 0, 0, 0, err
	}
	return page.Total, followers, following, nil
}

func (h *Handler) buildPrivateAccountResponse(ctx context.Context, user models.User) (PrivateAccountResponse, error) {
	orgs, err := h.store.ListOrganizationsByOwner(ctx, user.ID)
	if err != nil {
		return PrivateAccountResponse{}, err
	}
	connections, followers, following, err := h.counts(ctx, user.Ref())
	if err != nil {
		return PrivateAccountResponse{}, err
	}

	response := PrivateAccountResponse{
		ID:                   user.ID,
		Username:             user.Username,
		Email:                user.Email,
		FirstName:            user.FirstName,
		LastName:             user.LastName,
		Locality:             user.Locality,
		Trade:                user.Trade,
		Avatar:               user.Avatar,
		Role:                 user.Role,
		ActiveOrganizationID: user.ActiveOrganizationID,
		Organizations:        make([]OrganizationResponse, 0, len(orgs)),
		ConnectionsCount:     connections,
		FollowersCount:       followers,
		FollowingCount:       following,
	}
	for _, o := range orgs {
		response.Organizations = append(response.Organizations, newOrganizationResponse(o))
	}
	return response, nil
}

func newOrganizationResponse(o models.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:           o.ID,
		OwnerID:      o.OwnerID,
		Name:         o.Name,
		Email:        o.Email,
		Locality:     o.Locality,
		Trade:        o.Trade,
		BusinessType: o.BusinessType,
		Avatar:       o.Avatar,
	}
}

// endregion
