package controller

import (
	"learnpath_backend/internal/service"
	"learnpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ClassroomController struct {
	Service *service.ClassroomService
}

func NewClassroomController(svc *service.ClassroomService) *ClassroomController {
	return &ClassroomController{Service: svc}
}

// @Summary 创建班级
// @Tags 班级模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateClassroomReq true "班级信息"
// @Success 201 {object} util.Response{data=model.Classroom}
// @Router /api/classrooms [post]
func (c *ClassroomController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateClassroomReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindingError(ctx, err)
		return
	}

	classroom, err := c.Service.Create(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, classroom)
}

// @Summary 学生加入班级
// @Description 仅班级所属教师可操作，重复加入不报错
// @Tags 班级模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "班级ID"
// @Param body body service.EnrollReq true "学生"
// @Success 200 {object} util.Response
// @Router /api/classrooms/{id}/students [post]
func (c *ClassroomController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	classroomID := util.MustParseUint(ctx.Param("id"))
	if classroomID == 0 {
		util.BadRequest(ctx, "Invalid classroom id")
		return
	}

	var req service.EnrollReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindingError(ctx, err)
		return
	}

	if err := c.Service.Enroll(ctx.Request.Context(), user.UserID, classroomID, req.StudentID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"classroomId": classroomID, "studentId": req.StudentID})
}

// @Summary 班级学生列表
// @Tags 班级模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "班级ID"
// @Success 200 {object} util.Response
// @Router /api/classrooms/{id}/students [get]
func (c *ClassroomController) ListStudents(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	classroomID := util.MustParseUint(ctx.Param("id"))
	students, err := c.Service.ListStudents(ctx.Request.Context(), user.UserID, classroomID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"studentIds": students})
}
