package share

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nursat/filevault/internal/auth"
	"github.com/nursat/filevault/internal/file"
	"github.com/nursat/filevault/internal/metrics"
)

// RegisterRoutes mounts the authenticated share operations.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/share", handler.issueToken)
	group.GET("/shared-files", handler.listTokens)
}

// RegisterPublicRoutes mounts the unauthenticated redemption endpoint.
// Possession of the token is the only credential checked here.
func RegisterPublicRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/shared/:token", handler.redeemToken)
}

type httpHandler struct {
	service *Service
}

type issueTokenRequest struct {
	FileID         string `json:"file_id" binding:"required"`
	Email          string `json:"email"`
	ExpirationTime int    `json:"expiration_time" binding:"required"`
	Message        string `json:"message"`
}

func (h *httpHandler) issueToken(c *gin.Context) {
	ownerID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_id and expiration_time are required"})
		return
	}

	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	token, err := h.service.Issue(c.Request.Context(), ownerID, IssueInput{
		FileID:         fileID,
		RecipientEmail: req.Email,
		DurationHours:  req.ExpirationTime,
		Message:        req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDuration):
			c.JSON(http.StatusBadRequest, gin.H{"error": "expiration_time is not an allowed duration"})
		case errors.Is(err, file.ErrFileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create share link"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"share_token": token.Token,
		"expires_at":  token.ExpiresAt,
	})
}

func (h *httpHandler) listTokens(c *gin.Context) {
	ownerID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tokens, err := h.service.ListForAccount(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list shared files"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"shared_files": tokens})
}

func (h *httpHandler) redeemToken(c *gin.Context) {
	token, reader, err := h.service.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "share link not found"})
		case errors.Is(err, ErrTokenExpired):
			c.JSON(http.StatusGone, gin.H{"error": "share link expired"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "storage temporarily unavailable"})
		}
		return
	}
	defer reader.Close()

	metrics.ShareRedemptionsTotal.Inc()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", token.Filename))
	c.Header("Content-Length", strconv.FormatInt(token.SizeBytes, 10))
	c.Header("Content-Type", "application/octet-stream")

	if _, err := io.Copy(c.Writer, reader); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}
