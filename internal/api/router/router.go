package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edu-records/config"
	"edu-records/internal/api/handler"
	"edu-records/internal/api/middleware"
	"edu-records/pkg/jwt"
)

// Deps 路由依赖的外部组件
//
// Blacklist 与 Limiter 由 Redis 客户端实现，未配置 Redis 时保持 nil，
// 对应中间件降级放行。
type Deps struct {
	JWT       *jwt.Manager
	Blacklist middleware.TokenBlacklist
	Limiter   middleware.RateLimiter
	Logger    *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	rl := cfg.Server.RateLimit
	admin := middleware.RoleAuth(jwt.RoleAdmin)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(deps.JWT, deps.Blacklist))
	{
		// 学期模块
		semesters := v1.Group("/semesters")
		{
			semesters.GET("", h.Semester.ListSemesters)
			semesters.GET("/current", h.Semester.GetCurrentSemester)
			semesters.GET("/:id", h.Semester.GetSemester)
			semesters.POST("", admin, h.Semester.CreateSemester)
			semesters.PUT("/:id", admin, h.Semester.UpdateSemester)
			semesters.PUT("/:id/activate", admin, h.Semester.ActivateSemester)
		}

		// 培养方案模块
		curricula := v1.Group("/curricula")
		{
			curricula.GET("", h.Curriculum.ListCurricula)
			curricula.GET("/:id", h.Curriculum.GetCurriculum)
			curricula.POST("", admin, middleware.BodyLimit(cfg.Server.MaxBodyBytes), h.Curriculum.ImportCurriculum)
		}

		// 学生培养路线（学生本人或教职工；本人校验在 Handler 层）
		students := v1.Group("/students/:id")
		{
			students.POST("/curriculum", admin, h.Roadmap.AssignCurriculum)
			students.GET("/roadmap", h.Roadmap.GetRoadmap)
			students.GET("/roadmap/current", h.Roadmap.GetCurrentSemester)
			students.GET("/roadmap/open", h.Roadmap.GetOpenSubjects)
			students.GET("/roadmap/export", h.Export.ExportRoadmap)
			students.GET("/eligibility", h.Roadmap.CheckEligibility)
			students.POST("/graduation", h.Graduation.EvaluateGraduation)
			students.GET("/graduation/audits", h.Graduation.ListAudits)
		}

		// 批量毕业审核
		v1.POST("/graduation/sweep", admin,
			middleware.RateLimit(deps.Limiter, rl.SweepPerWindow, rl.Window),
			h.Graduation.Sweep)

		// 选课、成绩服务事件入口
		events := v1.Group("/events")
		events.Use(middleware.RoleAuth(jwt.RoleService, jwt.RoleAdmin))
		events.Use(middleware.RateLimit(deps.Limiter, rl.EventsPerWindow, rl.Window))
		{
			events.POST("/enrollment-committed", h.Event.EnrollmentCommitted)
			events.POST("/grade-posted", h.Event.GradePosted)
		}
	}

	return r
}
