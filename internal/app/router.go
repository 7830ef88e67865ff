package app

import (
	"learnpath_backend/docs"
	"learnpath_backend/internal/config"
	"learnpath_backend/internal/middleware"
	"learnpath_backend/internal/model"
	"learnpath_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		// 学生/教师通用
		a.registerSharedRoutes(authGroup, c)

		a.registerStudentRoutes(authGroup, c)

		a.registerInstructorRoutes(authGroup, c)
	}
}

func (a *App) registerSharedRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/quizzes/:id", c.quiz.Get)
	group.GET("/attempts/:attemptId", c.attempt.Get)
	group.GET("/learning-paths/:id", c.learningPath.Get)
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	student := group.Group("")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/quizzes/:id/start", c.attempt.Start)
		student.POST("/quizzes/:id/submit", c.attempt.Submit)
		student.GET("/quizzes/:id/attempts/me", c.attempt.ListMine)
		student.GET("/learning-paths/:id/learners/me/quiz-results", c.learningPath.MyQuizResults)
	}
}

func (a *App) registerInstructorRoutes(group *gin.RouterGroup, c *controllers) {
	instructor := group.Group("")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.POST("/classrooms", c.classroom.Create)
		instructor.POST("/classrooms/:id/students", c.classroom.Enroll)
		instructor.GET("/classrooms/:id/students", c.classroom.ListStudents)

		instructor.POST("/learning-paths", c.learningPath.Create)

		instructor.POST("/quizzes", c.quiz.Create)
		instructor.PUT("/quizzes/:id", c.quiz.Update)
		instructor.DELETE("/quizzes/:id", c.quiz.Delete)
		instructor.GET("/quizzes/:id/attempts", c.quiz.ListAttempts)
		instructor.GET("/quizzes/:id/leaderboard", c.quiz.Leaderboard)

		instructor.PUT("/attempts/:attemptId/grade", c.attempt.Regrade)
	}
}
