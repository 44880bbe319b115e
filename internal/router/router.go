// Package router assembles the HTTP surface of the timetable API.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/handler"
	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

// Dependencies carries everything the router needs to build its handlers.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	DB      handler.Pinger

	Auth           *service.AuthService
	Timeslots      *service.TimeslotService
	ClassOfferings *service.ClassOfferingService
	Timetables     *service.TimetableService
	Generator      *service.TimetableGeneratorService
}

// New builds the gin engine with every route registered.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.Metrics, deps.DB)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(deps.Auth)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Auth))
	adminOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	secured.GET("/auth/me", authHandler.Me)
	secured.GET("/admin/metrics", adminOnly, metricsHandler.Summary)

	timeslotHandler := handler.NewTimeslotHandler(deps.Timeslots)
	timeslots := secured.Group("/timeslots")
	timeslots.GET("", timeslotHandler.List)
	timeslots.GET("/:id", timeslotHandler.Get)
	timeslots.POST("", adminOnly, timeslotHandler.Create)
	timeslots.PUT("/:id", adminOnly, timeslotHandler.Update)
	timeslots.DELETE("/:id", adminOnly, timeslotHandler.Delete)

	offeringHandler := handler.NewClassOfferingHandler(deps.ClassOfferings)
	offerings := secured.Group("/class-offerings")
	offerings.GET("", offeringHandler.List)
	offerings.POST("/conflicts", offeringHandler.Conflicts)
	offerings.GET("/:erp", offeringHandler.Get)
	offerings.GET("/:erp/occupancy", offeringHandler.Occupancy)
	offerings.POST("", adminOnly, offeringHandler.Create)
	offerings.PUT("/:erp", adminOnly, offeringHandler.Update)
	offerings.DELETE("/:erp", adminOnly, offeringHandler.Delete)

	timetableHandler := handler.NewTimetableHandler(deps.Timetables)
	timetables := secured.Group("/timetables")
	if cfg.Timetable.GeneratorEnabled && deps.Generator != nil {
		generatorHandler := handler.NewTimetableGeneratorHandler(deps.Generator)
		timetables.POST("/generate", generatorHandler.Generate)
	} else {
		timetables.POST("/generate", func(c *gin.Context) {
			response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "timetable generator is disabled"))
		})
	}
	timetables.GET("", timetableHandler.List)
	timetables.POST("", timetableHandler.Create)
	timetables.GET("/:id", timetableHandler.Get)
	timetables.PATCH("/:id", timetableHandler.Activate)
	timetables.DELETE("/:id", timetableHandler.Delete)
	timetables.POST("/:id/classes", timetableHandler.Mutate)
	timetables.GET("/:id/export", timetableHandler.Export)

	return r
}
