package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"learnpath_backend/internal/model"
	"learnpath_backend/internal/repository"
	"learnpath_backend/internal/util"

	"gorm.io/gorm"
)

type LearningPathService struct {
	Repo          *repository.LearningPathRepository
	ClassroomRepo *repository.ClassroomRepository
}

func NewLearningPathService(repo *repository.LearningPathRepository, classroomRepo *repository.ClassroomRepository) *LearningPathService {
	return &LearningPathService{Repo: repo, ClassroomRepo: classroomRepo}
}

type LearningPathStepReq struct {
	Title string `json:"title" binding:"required,max=255"`
	Order int    `json:"order"`
}

type CreateLearningPathReq struct {
	ClassroomID uint                  `json:"classroomId" binding:"required"`
	CourseID    uint                  `json:"courseId"`
	Title       string                `json:"title" binding:"required,max=255"`
	Description string                `json:"description"`
	Steps       []LearningPathStepReq `json:"steps" binding:"dive"`
}

// QuizResultsView 原始历史加上按测验归约后的摘要
type QuizResultsView struct {
	LearningPathID uint                      `json:"learningPathId"`
	StudentID      uint                      `json:"studentId"`
	History        []model.QuizResultEntry   `json:"history"`
	Summary        []model.QuizResultSummary `json:"summary"`
}

func (s *LearningPathService) Create(ctx context.Context, instructorID uint, req CreateLearningPathReq) (*model.LearningPath, error) {
	classroom, err := s.ClassroomRepo.FindByID(ctx, req.ClassroomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: classroom %d", util.ErrNotFound, req.ClassroomID)
		}
		return nil, err
	}
	if classroom.InstructorID != instructorID {
		return nil, fmt.Errorf("%w: not the classroom instructor", util.ErrPermissionDenied)
	}

	path := &model.LearningPath{
		ClassroomID:  classroom.ID,
		CourseID:     req.CourseID,
		InstructorID: instructorID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
	}
	for i, st := range req.Steps {
		order := st.Order
		if order == 0 {
			order = i + 1
		}
		path.Steps = append(path.Steps, model.LearningPathStep{
			Order: order,
			Title: strings.TrimSpace(st.Title),
		})
	}

	if err := s.Repo.Create(ctx, path); err != nil {
		return nil, err
	}
	return path, nil
}

func (s *LearningPathService) Get(ctx context.Context, id uint) (*model.LearningPath, error) {
	path, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: learning path %d", util.ErrNotFound, id)
		}
		return nil, err
	}
	return path, nil
}

// QuizResults 学生在路径上的成绩历史，还没有成绩时返回空列表
func (s *LearningPathService) QuizResults(ctx context.Context, pathID, studentID uint) (*QuizResultsView, error) {
	if _, err := s.Get(ctx, pathID); err != nil {
		return nil, err
	}

	view := &QuizResultsView{
		LearningPathID: pathID,
		StudentID:      studentID,
		History:        []model.QuizResultEntry{},
		Summary:        []model.QuizResultSummary{},
	}

	learner, err := s.Repo.FindLearner(ctx, pathID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return view, nil
		}
		return nil, err
	}

	if len(learner.QuizResults) > 0 {
		view.History = learner.QuizResults
		view.Summary = model.SummarizeQuizResults(learner.QuizResults)
	}
	return view, nil
}
