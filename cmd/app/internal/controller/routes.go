package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mindtrack-backend/internal/catalog"
	"mindtrack-backend/internal/service"
	"mindtrack-backend/utilities"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services is everything the HTTP layer needs.
type Services struct {
	Auth        service.AuthService
	Assessments service.AssessmentService
	Insights    service.InsightService
	Chat        service.ChatService
	Goals       service.GoalService
	Progress    service.ProgressService
	Dashboard   service.DashboardService
	Reports     service.ReportService
	Catalog     *catalog.Catalog

	// Limiter throttles chat and insight generation per user. Nil disables it.
	Limiter *utilities.UserRateLimiter
	// Metrics serves /metrics on this router when set. serve leaves it nil
	// unless metrics are configured public.
	Metrics http.Handler
	// DB backs the /health check when set.
	DB Pinger
}

func RegisterRoutes(r *gin.Engine, s Services) {
	r.GET("/health", health(s.DB))
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics))
	}

	// Auth routes.
	authCtrl := NewAuthController(s.Auth)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authCtrl.Register)
		authRoutes.POST("/login", authCtrl.Login)
		authRoutes.POST("/refresh", authCtrl.Refresh)
	}

	api := r.Group("/api", utilities.AuthMiddleware())
	api.GET("/auth/user", authCtrl.CurrentUser)

	var throttle gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if s.Limiter != nil {
		throttle = s.Limiter.Middleware()
	}

	// Assessment routes.
	assessmentCtrl := NewAssessmentController(s.Assessments, s.Catalog)
	api.GET("/platforms", assessmentCtrl.GetPlatforms)
	api.GET("/platforms/:platform/questions", assessmentCtrl.GetQuestions)
	assessRoutes := api.Group("/assessments")
	{
		assessRoutes.POST("", assessmentCtrl.SubmitAssessment)
		assessRoutes.GET("", assessmentCtrl.GetAssessments)
		assessRoutes.GET("/latest", assessmentCtrl.GetLatestAssessment)
		assessRoutes.GET("/latest/:platform", assessmentCtrl.GetLatestAssessment)
	}

	wellnessCtrl := &WellnessController{
		Insights:  s.Insights,
		Goals:     s.Goals,
		Progress:  s.Progress,
		Dashboard: s.Dashboard,
		Reports:   s.Reports,
	}
	insightRoutes := api.Group("/insights")
	{
		insightRoutes.GET("", wellnessCtrl.GetInsights)
		insightRoutes.GET("/latest", wellnessCtrl.GetLatestInsight)
		insightRoutes.POST("/generate", throttle, wellnessCtrl.GenerateInsight)
	}
	goalRoutes := api.Group("/goals")
	{
		goalRoutes.GET("", wellnessCtrl.GetGoals)
		goalRoutes.POST("", wellnessCtrl.CreateGoal)
		goalRoutes.PATCH("/:goalId", wellnessCtrl.UpdateGoal)
	}
	api.GET("/progress", wellnessCtrl.GetProgress)
	api.POST("/progress", wellnessCtrl.RecordProgress)
	api.GET("/dashboard", wellnessCtrl.GetDashboard)
	api.GET("/reports/wellness", wellnessCtrl.DownloadReport)

	// Chat routes.
	chatCtrl := NewChatController(s.Chat)
	chatRoutes := api.Group("/chat")
	{
		chatRoutes.POST("", throttle, chatCtrl.SendMessage)
		chatRoutes.POST("/stream", throttle, chatCtrl.StreamChat)
		chatRoutes.GET("/history", chatCtrl.GetHistory)
	}
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "healthy", "timestamp": time.Now().Unix()}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				utilities.Warn("health check: database unreachable: %v", err)
				status["status"] = "degraded"
				status["database"] = "unreachable"
				c.JSON(http.StatusServiceUnavailable, status)
				return
			}
			status["database"] = "ok"
		}
		c.JSON(http.StatusOK, status)
	}
}
