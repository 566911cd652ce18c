package controller

import (
	"net/http"

	"jobdispatch-backend/middelware"
	"jobdispatch-backend/models"
	"jobdispatch-backend/services"
	"jobdispatch-backend/utils/logger"

	"github.com/gin-gonic/gin"
)

// HealthReporter contributes background task state to /health
type HealthReporter interface {
	GetHealthStatus() map[string]interface{}
}

type Controller struct {
	Job        *JobController
	Technician *TechnicianController
	jwtManager *middelware.JWTManager
	config     *models.Config
	health     HealthReporter
}

func NewController(svc services.ServiceContainerInterface, jwtManager *middelware.JWTManager, cfg *models.Config, log logger.Logger) *Controller {
	return &Controller{
		Job:        NewJobController(svc, cfg, log),
		Technician: NewTechnicianController(svc.GetTechnicianService(), log),
		jwtManager: jwtManager,
		config:     cfg,
	}
}

// WithHealth adds the worker state to the health check
func (c *Controller) WithHealth(h HealthReporter) *Controller {
	c.health = h
	return c
}

// RegisterRoutes mounts every endpoint under basePath
func (c *Controller) RegisterRoutes(r *gin.Engine, basePath string) {
	v1 := r.Group(basePath)

	// Health check endpoint (no auth required)
	v1.GET("/health", func(ctx *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"version": c.config.AppVersion,
			"service": c.config.AppName,
		}
		if c.health != nil {
			body["worker"] = c.health.GetHealthStatus()
		}
		ctx.JSON(http.StatusOK, body)
	})

	auth := c.jwtManager.AuthMiddleware()
	dispatchers := c.jwtManager.RequireRole(models.UserRoleAdmin, models.UserRoleDispatcher)
	technicians := c.jwtManager.RequireRole(models.UserRoleTechnician)
	anyRole := c.jwtManager.RequireRole(models.UserRoleAdmin, models.UserRoleDispatcher, models.UserRoleTechnician)

	session := v1.Group("/auth", auth)
	session.GET("/session", c.jwtManager.Session)
	session.POST("/logout", c.jwtManager.Logout)

	jobs := v1.Group("/jobs", auth)
	jobs.GET("", c.Job.GetJobs)
	jobs.GET("/available", c.Job.GetAvailableJobs)
	jobs.GET("/:id", c.Job.GetJob)
	jobs.POST("", dispatchers, c.Job.CreateJob)
	jobs.PUT("/:id", dispatchers, c.Job.UpdateJob)
	jobs.PATCH("/:id/status", dispatchers, c.Job.UpdateJobStatus)
	jobs.POST("/:id/assign", dispatchers, c.Job.AssignJob)
	jobs.POST("/:id/claim", technicians, c.Job.ClaimJob)
	jobs.POST("/:id/complete", anyRole, c.Job.CompleteJob)

	techs := v1.Group("/technicians", auth)
	techs.GET("", c.Technician.GetTechnicians)
	techs.GET("/:id", c.Technician.GetTechnician)
	techs.POST("", dispatchers, c.Technician.CreateTechnician)
	techs.PATCH("/:id", dispatchers, c.Technician.UpdateTechnician)
	techs.POST("/reconcile", c.jwtManager.RequireRole(models.UserRoleAdmin), c.Technician.ReconcileCapacity)
}
