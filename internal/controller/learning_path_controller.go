package controller

import (
	"learnpath_backend/internal/service"
	"learnpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LearningPathController struct {
	Service *service.LearningPathService
}

func NewLearningPathController(svc *service.LearningPathService) *LearningPathController {
	return &LearningPathController{Service: svc}
}

// @Summary 创建学习路径
// @Tags 学习路径模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateLearningPathReq true "学习路径及步骤"
// @Success 201 {object} util.Response{data=model.LearningPath}
// @Router /api/learning-paths [post]
func (c *LearningPathController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateLearningPathReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindingError(ctx, err)
		return
	}

	path, err := c.Service.Create(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, path)
}

// @Summary 获取学习路径
// @Tags 学习路径模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "学习路径ID"
// @Success 200 {object} util.Response{data=model.LearningPath}
// @Router /api/learning-paths/{id} [get]
func (c *LearningPathController) Get(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "Invalid learning path id")
		return
	}

	path, err := c.Service.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, path)
}

// @Summary 我在学习路径上的测验成绩
// @Description 返回追加式历史以及每个测验的最佳与最近结果
// @Tags 学习路径模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "学习路径ID"
// @Success 200 {object} util.Response{data=service.QuizResultsView}
// @Router /api/learning-paths/{id}/learners/me/quiz-results [get]
func (c *LearningPathController) MyQuizResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "Invalid learning path id")
		return
	}

	view, err := c.Service.QuizResults(ctx.Request.Context(), id, user.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, view)
}
