package controller

import (
	"encoding/json"
	"strings"

	"learnpath_backend/internal/service"
	"learnpath_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type AttemptController struct {
	Service *service.AttemptService
	Storage *service.StorageService
}

func NewAttemptController(svc *service.AttemptService, storage *service.StorageService) *AttemptController {
	return &AttemptController{Service: svc, Storage: storage}
}

// @Summary 开始测验
// @Tags 作答模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 201 {object} util.Response{data=service.StartAttemptResp}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/quizzes/{id}/start [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	resp, err := c.Service.Start(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, resp)
}

// @Summary 提交测验
// @Description JSON 提交，或 multipart：payload 字段为 JSON，文件字段名为 file_<questionId>
// @Tags 作答模块
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Param body body service.SubmitAttemptReq true "作答"
// @Success 200 {object} util.Response{data=service.SubmitAttemptResp}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/quizzes/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID := ctx.Param("id")

	var req service.SubmitAttemptReq
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		if !c.bindMultipart(ctx, user.UserID, quizID, &req) {
			return
		}
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindingError(ctx, err)
		return
	}

	resp, err := c.Service.Submit(ctx.Request.Context(), user.UserID, quizID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// bindMultipart 先确认作答可提交再上传文件，避免产生孤儿文件
func (c *AttemptController) bindMultipart(ctx *gin.Context, userID uint, quizID string, req *service.SubmitAttemptReq) bool {
	form, err := ctx.MultipartForm()
	if err != nil {
		util.BadRequest(ctx, "Invalid multipart form")
		return false
	}

	payload := ctx.PostForm("payload")
	if payload == "" {
		util.BadRequest(ctx, "payload field is required")
		return false
	}
	if err := json.Unmarshal([]byte(payload), req); err != nil {
		util.BadRequest(ctx, "Invalid payload: "+err.Error())
		return false
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		util.BindingError(ctx, err)
		return false
	}

	if err := c.Service.CheckSubmittable(ctx.Request.Context(), userID, quizID, req.AttemptID); err != nil {
		util.HandleServiceError(ctx, err)
		return false
	}

	for i := range req.Answers {
		files := form.File["file_"+req.Answers[i].QuestionID]
		if len(files) == 0 {
			continue
		}
		ref, err := c.Storage.UploadAnswerFile(ctx.Request.Context(), quizID, req.AttemptID, files[0])
		if err != nil {
			util.HandleServiceError(ctx, err)
			return false
		}
		req.Answers[i].File = ref
	}
	return true
}

// @Summary 教师重新评分
// @Description 只修改指定题目的得分和评语，总分从全部作答重算
// @Tags 作答模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "作答ID"
// @Param body body service.RegradeReq true "评分"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/attempts/{attemptId}/grade [put]
func (c *AttemptController) Regrade(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.RegradeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindingError(ctx, err)
		return
	}

	attempt, err := c.Service.Regrade(ctx.Request.Context(), user.UserID, ctx.Param("attemptId"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

// @Summary 获取作答详情
// @Tags 作答模块
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "作答ID"
// @Success 200 {object} util.Response{data=service.AttemptDetail}
// @Router /api/attempts/{attemptId} [get]
func (c *AttemptController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.Service.Get(ctx.Request.Context(), ctx.Param("attemptId"), user.UserID, user.Role)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// @Summary 我的作答记录
// @Tags 作答模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Router /api/quizzes/{id}/attempts/me [get]
func (c *AttemptController) ListMine(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.Service.ListMine(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, attempts)
}
