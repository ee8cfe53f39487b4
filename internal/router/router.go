package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/leveling-api/internal/handler"
	"github.com/noah-isme/leveling-api/internal/middleware"
	"github.com/noah-isme/leveling-api/internal/models"
	"github.com/noah-isme/leveling-api/internal/service"
	"github.com/noah-isme/leveling-api/pkg/config"
	"github.com/noah-isme/leveling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/leveling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/leveling-api/pkg/middleware/requestid"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Logger               *zap.Logger
	Metrics              *service.MetricsService
	Tokens               middleware.TokenValidator
	MetricsHandler       *handler.MetricsHandler
	MatriculationHandler *handler.MatriculationHandler
	ConflictHandler      *handler.ConflictHandler
	ReassignmentHandler  *handler.ReassignmentHandler
}

// New builds the gin engine with global middleware, ops endpoints and the leveling API.
func New(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	if deps.MetricsHandler != nil {
		r.GET("/health", deps.MetricsHandler.Health)
		r.GET("/ready", deps.MetricsHandler.Ready)
		r.GET("/metrics", deps.MetricsHandler.Prometheus)
	}
	if cfg.Swagger.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	Register(r.Group(cfg.APIPrefix), deps)
	return r
}

// Register wires the leveling routes into the group. Every route needs a bearer token, writes are
// limited to administrators and a student may only read their own reassignment data.
func Register(api *gin.RouterGroup, deps Dependencies) {
	if deps.Tokens != nil {
		api.Use(middleware.JWT(deps.Tokens))
	}
	admins := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	if h := deps.ConflictHandler; h != nil {
		api.GET("/conflicts", h.List)
	}

	if h := deps.ReassignmentHandler; h != nil {
		students := api.Group("/students/:studentId",
			middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), "SELF"))
		students.GET("/section-courses/:sectionCourseId/reassignment-options", h.Options)
		students.GET("/reassignments", h.History)
		api.POST("/reassignments", admins, h.Reassign)
	}

	if h := deps.MatriculationHandler; h != nil {
		runs := api.Group("/leveling-runs/:runId")
		runs.GET("/matriculation/preview", h.Preview)
		runs.POST("/matriculation", admins, h.Matriculate)
	}
}
