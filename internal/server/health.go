package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
)

const healthProbeTimeout = 3 * time.Second

func registerHealthRoutes(router *gin.Engine, pool *pgxpool.Pool, minioClient *minio.Client) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
		defer cancel()

		checks := gin.H{"postgres": "ok", "minio": "ok"}
		healthy := true

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				checks["postgres"] = err.Error()
				healthy = false
			}
		} else {
			checks["postgres"] = "skipped"
		}

		if minioClient != nil {
			if _, err := minioClient.ListBuckets(ctx); err != nil {
				checks["minio"] = err.Error()
				healthy = false
			}
		} else {
			checks["minio"] = "skipped"
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, checks)
	})
}
