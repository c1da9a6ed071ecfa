package account

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// RegisterRoutes mounts the public registration endpoint.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	router.POST("/register", handler.register)
}

// RegisterProtectedRoutes mounts the authenticated profile endpoints.
func RegisterProtectedRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/user", handler.getProfile)
	group.PUT("/user", handler.updateProfile)
	group.POST("/verify-password", handler.verifyPassword)
	group.POST("/change-password", handler.changePassword)
}

type httpHandler struct {
	service *Service
}

func currentAccountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("accountID"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *httpHandler) register(c *gin.Context) {
	dob, err := time.Parse(dateLayout, c.PostForm("date_of_birth"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_of_birth must be YYYY-MM-DD"})
		return
	}

	input := RegisterInput{
		Email:       c.PostForm("email"),
		Password:    c.PostForm("password"),
		FirstName:   c.PostForm("first_name"),
		LastName:    c.PostForm("last_name"),
		DateOfBirth: dob,
		PhoneNumber: c.PostForm("phone_number"),
	}

	if photo, err := c.FormFile("profile_photo"); err == nil {
		input.Photo = photo
	}

	acc, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		switch err {
		case ErrEmailAlreadyExists:
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		case ErrInvalidCredentials:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		}
		return
	}

	c.JSON(http.StatusCreated, acc)
}

func (h *httpHandler) getProfile(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	acc, err := h.service.Get(c.Request.Context(), accountID)
	if err != nil {
		if err == ErrAccountNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, acc)
}

func (h *httpHandler) updateProfile(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dob, err := time.Parse(dateLayout, c.PostForm("date_of_birth"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_of_birth must be YYYY-MM-DD"})
		return
	}

	input := ProfileInput{
		FirstName:   c.PostForm("first_name"),
		LastName:    c.PostForm("last_name"),
		DateOfBirth: dob,
		PhoneNumber: c.PostForm("phone_number"),
	}
	if photo, err := c.FormFile("profile_photo"); err == nil {
		input.Photo = photo
	}

	acc, err := h.service.UpdateProfile(c.Request.Context(), accountID, input)
	if err != nil {
		if err == ErrAccountNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, acc)
}

type verifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *httpHandler) verifyPassword(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req verifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.VerifyPassword(c.Request.Context(), accountID, req.Password); err != nil {
		if err == ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

func (h *httpHandler) changePassword(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		if err == ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
