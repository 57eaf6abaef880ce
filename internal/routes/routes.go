package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/snow-cube/paper-manager/internal/config"
	"github.com/snow-cube/paper-manager/internal/handlers"
	"github.com/snow-cube/paper-manager/internal/middleware"
	"github.com/snow-cube/paper-manager/internal/services"
)

const metricsNamespace = "paper_manager"

// Server is the HTTP router plus the background pieces that need stopping.
type Server struct {
	Router      *gin.Engine
	rateLimiter *middleware.RateLimiter
}

func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// Setup wires services, handlers and middleware. HTTP metrics are registered
// on reg, and /metrics serves everything in reg.
func Setup(db *gorm.DB, cfg *config.Config, reg *prometheus.Registry) (*Server, error) {
	log := logrus.StandardLogger()

	httpMetrics, err := middleware.NewHTTPMetrics(metricsNamespace, reg)
	if err != nil {
		return nil, err
	}
	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimit)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(httpMetrics.Middleware())
	router.Use(rateLimiter.Middleware())

	authService := services.NewAuthService(db)
	teamService := services.NewTeamService(db)
	categoryService := services.NewCategoryService(db)
	referenceService := services.NewReferenceCategoryService(db, teamService)

	authHandler := handlers.NewAuthHandler(authService, cfg)
	teamHandler := handlers.NewTeamHandler(teamService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	referenceHandler := handlers.NewReferenceCategoryHandler(referenceService)

	api := router.Group("/api")

	public := api.Group("")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(db, cfg))
	{
		user := protected.Group("/auth")
		{
			user.GET("/me", authHandler.GetMe)
			user.POST("/logout", authHandler.Logout)
		}

		categories := protected.Group("/categories")
		{
			categories.GET("", categoryHandler.GetCategories)
			categories.GET("/tree", categoryHandler.GetCategoryTree)
			categories.GET("/:id", categoryHandler.GetCategory)
		}

		references := protected.Group("/reference-categories")
		{
			references.GET("", referenceHandler.GetCategories)
			references.GET("/tree", referenceHandler.GetCategoryTree)
			references.GET("/:id", referenceHandler.GetCategory)
			references.POST("", referenceHandler.CreateCategory)
			references.PUT("/:id", referenceHandler.UpdateCategory)
			references.DELETE("/:id", referenceHandler.DeleteCategory)
		}

		teams := protected.Group("/teams")
		{
			teams.GET("", teamHandler.GetTeams)
			teams.POST("", teamHandler.CreateTeam)
			teams.POST("/:id/members", teamHandler.AddMember)
		}
	}

	// 论文分类是全局的，只有管理员可以修改
	admin := api.Group("/categories")
	admin.Use(middleware.AuthMiddleware(db, cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("", categoryHandler.CreateCategory)
		admin.PUT("/:id", categoryHandler.UpdateCategory)
		admin.DELETE("/:id", categoryHandler.DeleteCategory)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "服务运行正常",
		})
	})

	return &Server{Router: router, rateLimiter: rateLimiter}, nil
}
