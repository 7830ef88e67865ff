package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"learnpath_backend/internal/model"
	"learnpath_backend/internal/repository"
	"learnpath_backend/internal/util"
	"learnpath_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ClassroomService struct {
	Repo *repository.ClassroomRepository
}

func NewClassroomService(repo *repository.ClassroomRepository) *ClassroomService {
	return &ClassroomService{Repo: repo}
}

type CreateClassroomReq struct {
	Title string `json:"title" binding:"required,max=255"`
}

type EnrollReq struct {
	StudentID uint `json:"studentId" binding:"required"`
}

func (s *ClassroomService) Create(ctx context.Context, instructorID uint, req CreateClassroomReq) (*model.Classroom, error) {
	classroom := &model.Classroom{
		Title:        strings.TrimSpace(req.Title),
		InstructorID: instructorID,
	}
	if classroom.Title == "" {
		return nil, util.NewValidationError(model.FieldIssue{Field: "title", Reason: "must not be empty"})
	}
	if err := s.Repo.Create(ctx, classroom); err != nil {
		return nil, err
	}
	return classroom, nil
}

// findOwned 只有创建班级的教师可以管理它
func (s *ClassroomService) findOwned(ctx context.Context, instructorID, classroomID uint) (*model.Classroom, error) {
	classroom, err := s.Repo.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: classroom %d", util.ErrNotFound, classroomID)
		}
		return nil, err
	}
	if classroom.InstructorID != instructorID {
		logger.Log.Info("Classroom access denied",
			zap.Uint("classroomId", classroomID),
			zap.Uint("userId", instructorID))
		return nil, fmt.Errorf("%w: not the classroom instructor", util.ErrPermissionDenied)
	}
	return classroom, nil
}

func (s *ClassroomService) Enroll(ctx context.Context, instructorID, classroomID, studentID uint) error {
	if _, err := s.findOwned(ctx, instructorID, classroomID); err != nil {
		return err
	}
	if err := s.Repo.Enroll(ctx, classroomID, studentID); err != nil {
		return err
	}
	logger.Log.Info("Student enrolled",
		zap.Uint("classroomId", classroomID),
		zap.Uint("studentId", studentID))
	return nil
}

func (s *ClassroomService) ListStudents(ctx context.Context, instructorID, classroomID uint) ([]uint, error) {
	if _, err := s.findOwned(ctx, instructorID, classroomID); err != nil {
		return nil, err
	}
	return s.Repo.ListStudents(ctx, classroomID)
}
