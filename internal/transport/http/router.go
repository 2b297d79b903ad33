// Package http exposes the quiz services over a gin JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"quizdesk/internal/monitoring"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Mode         string
	JWTSecret    string
	AllowOrigins []string
	// RateLimit is requests per minute per client IP; zero disables limiting.
	RateLimit int
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), monitoring.MetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	if opts.RateLimit > 0 {
		r.Use(rateLimiter(opts.RateLimit, 10*time.Minute))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", monitoring.PrometheusHandler())

	api := r.Group("/api/v1")
	api.POST("/users/register", h.register)
	api.GET("/join/:code", h.joinByCode)
	api.GET("/quizzes", h.publishedQuizzes)

	authed := api.Group("", Authenticate([]byte(opts.JWTSecret)))
	authed.GET("/users/me", h.me)
	authed.PUT("/users/me", h.updateProfile)
	authed.PUT("/users/me/password", h.changePassword)
	authed.DELETE("/users/me", h.deleteAccount)

	authed.POST("/quizzes/:id/submissions", h.submit)
	authed.GET("/quizzes/:id/result", h.result)
	authed.GET("/quizzes/:id/details", h.details)
	authed.GET("/student/results", h.recentResults)

	teacher := authed.Group("/teacher")
	teacher.POST("/quizzes", h.createQuiz)
	teacher.GET("/quizzes", h.myQuizzes)
	teacher.GET("/quizzes/:id", h.myQuiz)
	teacher.PUT("/quizzes/:id", h.updateQuiz)
	teacher.DELETE("/quizzes/:id", h.deleteQuiz)
	teacher.POST("/quizzes/:id/publish", h.publishQuiz)
	teacher.POST("/quizzes/:id/results/publish", h.publishResults)
	teacher.GET("/dashboard", h.teacherStats)
	teacher.GET("/students", h.roster)
	teacher.GET("/students/:id", h.studentPerformance)
	teacher.GET("/subjects", h.subjectPerformance)
	teacher.GET("/activity", h.activityLog)

	admin := authed.Group("/admin")
	admin.GET("/dashboard", h.adminStats)
	admin.GET("/quizzes", h.adminQuizzes)
	admin.GET("/students", h.adminStudents)
	admin.GET("/teachers", h.adminTeachers)
	admin.DELETE("/users/:id", h.deleteUser)
	admin.DELETE("/teachers/:id", h.deleteTeacher)

	return r
}
