package quota

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nursat/filevault/internal/auth"
)

// RegisterRoutes mounts the quota usage endpoint.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/quota", handler.usage)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) usage(c *gin.Context) {
	accountID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	usage, err := h.service.Usage(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	c.JSON(http.StatusOK, usage)
}
