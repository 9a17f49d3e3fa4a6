package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/teaching-portal-api/internal/handler"
	"github.com/noah-isme/teaching-portal-api/internal/middleware"
	"github.com/noah-isme/teaching-portal-api/internal/models"
	"github.com/noah-isme/teaching-portal-api/pkg/config"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradeConfigHandler *handler.GradeConfigHandler
	GradeScoreHandler  *handler.GradeScoreHandler
	FinalGradeHandler  *handler.FinalGradeHandler
	MetricsHandler     *handler.MetricsHandler
	Tokens             middleware.TokenValidator
}

// Register wires the HTTP routes into the gin engine.
func Register(r *gin.Engine, cfg *config.Config, deps Dependencies) {
	if deps.MetricsHandler != nil {
		r.GET("/health", deps.MetricsHandler.Health)
		r.GET("/ready", deps.MetricsHandler.Ready)
		r.GET("/metrics", deps.MetricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(deps.Tokens))
	staff := middleware.Staff()

	if h := deps.GradeConfigHandler; h != nil {
		api.GET("/classes/:classId/grade-categories", h.ListCategories)
		api.POST("/classes/:classId/grade-categories", staff, h.CreateCategory)
		api.GET("/classes/:classId/grade-items", staff, h.ListClassItems)
		api.PUT("/grade-categories/:id", staff, h.UpdateCategory)
		api.DELETE("/grade-categories/:id", staff, h.DeleteCategory)
		api.POST("/grade-categories/:id/items", staff, h.CreateItem)
		api.PUT("/grade-items/:id", staff, h.UpdateItem)
		api.DELETE("/grade-items/:id", staff, h.DeleteItem)
	}

	if h := deps.GradeScoreHandler; h != nil {
		api.GET("/grade-items/:id/scores", staff, h.ListItemScores)
		api.POST("/grade-items/:id/scores", staff, h.BatchUpsert)
		api.POST("/grade-items/:id/score", staff, h.Upsert)
		api.GET("/classes/:classId/students/:studentId/scores", staff, h.StudentScores)
	}

	if h := deps.FinalGradeHandler; h != nil {
		api.POST("/grade-items/:id/attendance-scores", staff, h.AttendanceScores)
		api.POST("/classes/:classId/final-grades/recompute", staff, h.Recompute)
		api.POST("/classes/:classId/final-grades/publish", staff, h.Publish)
		api.GET("/classes/:classId/final-grades", staff, h.List)
		api.GET("/classes/:classId/final-grades/export", staff, h.Export)
		api.GET("/classes/:classId/grade-statistics", staff, h.Statistics)
		api.GET("/classes/:classId/my-grades", middleware.RequireRoles(models.RoleStudent), h.MyGrades)
	}
}
