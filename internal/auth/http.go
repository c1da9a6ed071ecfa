package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nursat/filevault/internal/account"
)

// RegisterRoutes mounts the public session endpoints.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	router.POST("/login", handler.login)
	router.POST("/request-password-reset", handler.requestPasswordReset)
	router.POST("/reset-password/:token", handler.resetPassword)
}

type httpHandler struct {
	service *Service
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	User        struct {
		ID           string     `json:"id"`
		Email        string     `json:"email"`
		FirstName    string     `json:"first_name"`
		LastName     string     `json:"last_name"`
		ProfilePhoto *string    `json:"profile_photo,omitempty"`
		CreatedAt    *time.Time `json:"created_at,omitempty"`
	} `json:"user"`
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Malformed credentials get the same response as wrong ones.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case account.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate"})
		}
		return
	}

	c.JSON(http.StatusOK, marshalLoginResponse(result))
}

type resetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *httpHandler) requestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Token delivery happens out of band; the response never reveals whether
	// the email is registered.
	if _, err := h.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
		return
	}

	c.Status(http.StatusNoContent)
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

func (h *httpHandler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), c.Param("token"), req.NewPassword); err != nil {
		switch err {
		case ErrResetTokenInvalid:
			c.JSON(http.StatusBadRequest, gin.H{"error": "reset token invalid or expired"})
		case account.ErrInvalidCredentials:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func marshalLoginResponse(result LoginResult) loginResponse {
	resp := loginResponse{}
	resp.AccessToken = result.AccessToken
	resp.ExpiresAt = result.ExpiresAt.Unix()
	resp.User.ID = result.Account.ID.String()
	resp.User.Email = result.Account.Email
	resp.User.FirstName = result.Account.FirstName
	resp.User.LastName = result.Account.LastName
	resp.User.ProfilePhoto = result.Account.ProfilePhoto
	if !result.Account.CreatedAt.IsZero() {
		created := result.Account.CreatedAt.UTC()
		resp.User.CreatedAt = &created
	}
	return resp
}
