package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"jobtracker/internal/api/middleware"
	"jobtracker/internal/auth"
	"jobtracker/internal/config"
	"jobtracker/internal/tracker"
)

// Services 汇总路由依赖的全部领域服务。
type Services struct {
	Users        *tracker.UserService
	Countries    *tracker.CountryService
	Tags         *tracker.TagService
	Companies    *tracker.CompanyService
	Resumes      *tracker.ResumeService
	Applications *tracker.ApplicationService
	Interviews   *tracker.InterviewService
}

// RegisterRoutes 注册 /v1 下的全部 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	svc Services,
	authService *auth.AuthService,
	redisClient authStore,
	logger *slog.Logger,
	authCfg config.AuthConfig,
) {
	authHandler := NewAuthHandler(svc.Users, authService, redisClient, logger, LoginLimits{
		RatePerHour:   authCfg.LoginRateLimitPerHour,
		LockThreshold: authCfg.LoginLockThreshold,
		LockTTL:       authCfg.LoginLockTTL,
	}, authCfg.CookieDomain)
	countryHandler := NewEntityHandler[tracker.CountryInput, tracker.CountryView]("country", svc.Countries)
	tagHandler := NewEntityHandler[tracker.TagInput, tracker.TagView]("tag", svc.Tags)
	companyHandler := NewEntityHandler[tracker.CompanyInput, tracker.CompanyView]("company", svc.Companies)
	applicationHandler := NewEntityHandler[tracker.ApplicationInput, tracker.ApplicationView]("application", svc.Applications)
	interviewHandler := NewEntityHandler[tracker.InterviewInput, tracker.InterviewView]("interview", svc.Interviews)
	resumeHandler := NewResumeHandler(svc.Resumes)

	requireUser := []gin.HandlerFunc{
		middleware.AuthMiddleware(authService),
		middleware.ActiveUserMiddleware(svc.Users),
	}

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/token", authHandler.Token)
			authGroup.POST("/refresh", authHandler.Refresh)

			protected := authGroup.Group("", requireUser...)
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/me", authHandler.Me)
			protected.PATCH("/me", authHandler.UpdateMe)
			protected.DELETE("/me", authHandler.DeleteMe)
		}

		owned := v1.Group("", requireUser...)

		tags := owned.Group("/tags")
		{
			tags.GET("", tagHandler.List)
			tags.POST("", tagHandler.Create)
			tags.PATCH("/:id", tagHandler.Update)
			tags.DELETE("/:id", tagHandler.Delete)
		}

		countries := owned.Group("/country")
		{
			countries.GET("", countryHandler.List)
			countries.POST("", countryHandler.Create)
			countries.PATCH("/:id", countryHandler.Update)
			countries.DELETE("/:id", countryHandler.Delete)
		}

		companies := owned.Group("/company")
		{
			companies.GET("", companyHandler.List)
			companies.POST("", companyHandler.Create)
			companies.GET("/:id", companyHandler.Get)
			companies.PATCH("/:id", companyHandler.Update)
			companies.DELETE("/:id", companyHandler.Delete)
		}

		resumes := owned.Group("/resumes")
		{
			resumes.GET("", resumeHandler.List)
			resumes.POST("", resumeHandler.Create)
			resumes.GET("/:id", resumeHandler.Get)
			resumes.PATCH("/:id", resumeHandler.Update)
			resumes.DELETE("/:id", resumeHandler.Delete)
			resumes.GET("/:id/download-link", resumeHandler.GetDownloadLink)
		}

		applications := owned.Group("/applications")
		{
			applications.GET("", applicationHandler.List)
			applications.POST("", applicationHandler.Create)
			applications.GET("/:id", applicationHandler.Get)
			applications.PATCH("/:id", applicationHandler.Update)
			applications.DELETE("/:id", applicationHandler.Delete)
		}

		interviews := owned.Group("/interviews")
		{
			interviews.GET("", interviewHandler.List)
			interviews.POST("", interviewHandler.Create)
			interviews.GET("/:id", interviewHandler.Get)
			interviews.PATCH("/:id", interviewHandler.Update)
			interviews.DELETE("/:id", interviewHandler.Delete)
		}
	}
}
