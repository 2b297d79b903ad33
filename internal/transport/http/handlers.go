package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quizdesk/internal/app"
)

// Handler adapts the application services to gin routes.
type Handler struct {
	quizzes   *app.QuizService
	dashboard *app.DashboardService
	admin     *app.AdminService
	users     *app.UserService
}

func NewHandler(quizzes *app.QuizService, dashboard *app.DashboardService, admin *app.AdminService, users *app.UserService) *Handler {
	return &Handler{quizzes: quizzes, dashboard: dashboard, admin: admin, users: users}
}

// users

func (h *Handler) register(c *gin.Context) {
	var in app.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in app.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), callerFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) changePassword(c *gin.Context) {
	var in app.PasswordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), callerFrom(c), in); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.users.DeleteAccount(c.Request.Context(), callerFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// teacher quiz authoring

func (h *Handler) createQuiz(c *gin.Context) {
	var in app.QuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	quiz, err := h.quizzes.CreateQuiz(c.Request.Context(), callerFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *Handler) myQuizzes(c *gin.Context) {
	quizzes, err := h.quizzes.MyQuizzes(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) myQuiz(c *gin.Context) {
	quiz, err := h.quizzes.MyQuiz(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) updateQuiz(c *gin.Context) {
	var in app.QuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(c.Request.Context(), callerFrom(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) deleteQuiz(c *gin.Context) {
	if err := h.quizzes.DeleteQuiz(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) publishQuiz(c *gin.Context) {
	quiz, err := h.quizzes.PublishQuiz(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) publishResults(c *gin.Context) {
	quiz, err := h.quizzes.PublishResults(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizId": quiz.ID, "published": len(quiz.Submissions)})
}

// student flow

func (h *Handler) joinByCode(c *gin.Context) {
	quiz, err := h.quizzes.JoinByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := studentView(quiz)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) publishedQuizzes(c *gin.Context) {
	quizzes, err := h.quizzes.PublishedQuizzes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := studentViews(quizzes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) submit(c *gin.Context) {
	var in app.SubmissionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	receipt, err := h.quizzes.Submit(c.Request.Context(), callerFrom(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (h *Handler) result(c *gin.Context) {
	res, err := h.quizzes.Result(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) details(c *gin.Context) {
	res, err := h.quizzes.Details(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) recentResults(c *gin.Context) {
	res, err := h.quizzes.RecentResults(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// teacher dashboard

func (h *Handler) teacherStats(c *gin.Context) {
	stats, err := h.dashboard.TeacherStats(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) roster(c *gin.Context) {
	roster, err := h.dashboard.Roster(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

func (h *Handler) studentPerformance(c *gin.Context) {
	report, err := h.dashboard.StudentPerformance(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) subjectPerformance(c *gin.Context) {
	stats, err := h.dashboard.SubjectPerformance(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) activityLog(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		limit = n
	}
	entries, err := h.dashboard.ActivityLog(c.Request.Context(), callerFrom(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// admin

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.dashboard.AdminStats(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) adminQuizzes(c *gin.Context) {
	quizzes, err := h.admin.Quizzes(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) adminStudents(c *gin.Context) {
	students, err := h.admin.Students(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) adminTeachers(c *gin.Context) {
	teachers, err := h.admin.Teachers(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teachers)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.admin.DeleteUser(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteTeacher(c *gin.Context) {
	removed, err := h.admin.DeleteTeacher(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedQuizzes": removed})
}
