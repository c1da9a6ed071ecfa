package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/nursat/filevault/internal/account"
	"github.com/nursat/filevault/internal/auth"
	"github.com/nursat/filevault/internal/config"
	"github.com/nursat/filevault/internal/file"
	"github.com/nursat/filevault/internal/logger"
	"github.com/nursat/filevault/internal/metrics"
	"github.com/nursat/filevault/internal/quota"
	"github.com/nursat/filevault/internal/share"
)

// Dependencies bundles everything the router needs.
type Dependencies struct {
	Config config.Config

	AccountService *account.Service
	AuthService    *auth.Service
	FileService    *file.Service
	QuotaService   *quota.Service
	ShareService   *share.Service

	// Health probes. Either may be nil in tests.
	Pool  *pgxpool.Pool
	MinIO *minio.Client
}

// NewRouter assembles the gin engine with middleware and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps.Pool, deps.MinIO)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/api")

	// Public surface: registration, sessions and share-link redemption.
	account.RegisterRoutes(api, deps.AccountService)
	auth.RegisterRoutes(api, deps.AuthService)
	share.RegisterPublicRoutes(api, deps.ShareService)

	protected := api.Group("")
	protected.Use(auth.Middleware(deps.AuthService))

	account.RegisterProtectedRoutes(protected, deps.AccountService)
	file.RegisterRoutes(protected, deps.FileService)
	share.RegisterRoutes(protected, deps.ShareService)
	quota.RegisterRoutes(protected, deps.QuotaService)

	return router
}
