package service

import (
	"context"
	"errors"
	"fmt"

	"learnpath_backend/internal/model"
	"learnpath_backend/internal/repository"
	"learnpath_backend/internal/util"
	"learnpath_backend/pkg/logger"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultTimeLimitMinutes    = 30
	defaultPassingScorePercent = 60
	defaultMaxAttempts         = 1
)

type QuizService struct {
	Repo          *repository.QuizRepository
	AttemptRepo   *repository.QuizAttemptRepository
	PathRepo      *repository.LearningPathRepository
	ClassroomRepo *repository.ClassroomRepository
	Leaderboard   *LeaderboardService
}

func NewQuizService(
	repo *repository.QuizRepository,
	attemptRepo *repository.QuizAttemptRepository,
	pathRepo *repository.LearningPathRepository,
	classroomRepo *repository.ClassroomRepository,
	leaderboard *LeaderboardService,
) *QuizService {
	return &QuizService{
		Repo:          repo,
		AttemptRepo:   attemptRepo,
		PathRepo:      pathRepo,
		ClassroomRepo: classroomRepo,
		Leaderboard:   leaderboard,
	}
}

// QuizPolicyReq 可选字段为空时使用默认值
type QuizPolicyReq struct {
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	TimeLimitMinutes    int              `json:"timeLimitMinutes"`
	PassingScorePercent *int             `json:"passingScorePercent"`
	AllowRetakes        bool             `json:"allowRetakes"`
	MaxAttempts         int              `json:"maxAttempts"`
	Questions           []model.Question `json:"questions"`
}

type CreateQuizReq struct {
	LearningPathID uint `json:"learningPathId" binding:"required"`
	StepID         uint `json:"stepId" binding:"required"`
	QuizPolicyReq
}

type UpdateQuizReq struct {
	QuizPolicyReq
}

func (r QuizPolicyReq) apply(quiz *model.Quiz) {
	quiz.Title = r.Title
	quiz.Description = r.Description
	quiz.TimeLimitMinutes = r.TimeLimitMinutes
	if quiz.TimeLimitMinutes == 0 {
		quiz.TimeLimitMinutes = defaultTimeLimitMinutes
	}
	quiz.PassingScorePercent = defaultPassingScorePercent
	if r.PassingScorePercent != nil {
		quiz.PassingScorePercent = *r.PassingScorePercent
	}
	quiz.AllowRetakes = r.AllowRetakes
	quiz.MaxAttempts = r.MaxAttempts
	if quiz.MaxAttempts == 0 {
		quiz.MaxAttempts = defaultMaxAttempts
	}
	quiz.Questions = r.Questions
}

type OptionView struct {
	Text string `json:"text"`
}

type QuestionView struct {
	ID             string             `json:"id"`
	Text           string             `json:"text"`
	Type           model.QuestionType `json:"type"`
	Options        []OptionView       `json:"options,omitempty"`
	Guidelines     string             `json:"guidelines,omitempty"`
	RequiresUpload bool               `json:"requiresUpload,omitempty"`
	Points         int                `json:"points"`
	Difficulty     string             `json:"difficulty"`
}

// QuizView 学生可见的测验：不含正确答案、解析和选项的正误标记
type QuizView struct {
	ID                  string         `json:"id"`
	LearningPathID      uint           `json:"learningPathId"`
	StepID              uint           `json:"stepId"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	TimeLimitMinutes    int            `json:"timeLimitMinutes"`
	PassingScorePercent int            `json:"passingScorePercent"`
	AllowRetakes        bool           `json:"allowRetakes"`
	MaxAttempts         int            `json:"maxAttempts"`
	TotalPoints         int            `json:"totalPoints"`
	Questions           []QuestionView `json:"questions"`
}

func StudentView(quiz *model.Quiz) (*QuizView, error) {
	var view QuizView
	if err := copier.Copy(&view, quiz); err != nil {
		return nil, err
	}
	view.ID = quiz.ID
	// copier 不会把 JSONSlice 展开到切片字段，题目需单独复制
	view.Questions = []QuestionView{}
	if len(quiz.Questions) > 0 {
		if err := copier.Copy(&view.Questions, []model.Question(quiz.Questions)); err != nil {
			return nil, err
		}
	}
	return &view, nil
}

func (s *QuizService) Create(ctx context.Context, instructorID uint, req CreateQuizReq) (*model.Quiz, error) {
	path, err := s.PathRepo.FindByID(ctx, req.LearningPathID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: learning path %d", util.ErrNotFound, req.LearningPathID)
		}
		return nil, err
	}
	if path.InstructorID != instructorID {
		logger.Log.Info("Quiz create denied",
			zap.Uint("learningPathId", path.ID),
			zap.Uint("userId", instructorID))
		return nil, fmt.Errorf("%w: not the learning path owner", util.ErrPermissionDenied)
	}

	step, err := s.PathRepo.FindStep(ctx, path.ID, req.StepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: step %d is not part of learning path %d", util.ErrNotFound, req.StepID, path.ID)
		}
		return nil, err
	}
	if step.HasQuiz {
		return nil, fmt.Errorf("%w: step %d already has a quiz", util.ErrInvalidState, step.ID)
	}

	quiz := &model.Quiz{
		InstructorID:   instructorID,
		ClassroomID:    path.ClassroomID,
		LearningPathID: path.ID,
		StepID:         step.ID,
	}
	req.apply(quiz)
	if issues := quiz.Prepare(); len(issues) > 0 {
		return nil, util.NewValidationError(issues...)
	}

	if err := s.Repo.CreateForStep(ctx, quiz); err != nil {
		if errors.Is(err, repository.ErrStepUnavailable) {
			return nil, fmt.Errorf("%w: step %d already has a quiz", util.ErrInvalidState, step.ID)
		}
		return nil, err
	}

	logger.Log.Info("Quiz created",
		zap.String("quizId", quiz.ID),
		zap.Uint("stepId", step.ID),
		zap.Int("questions", len(quiz.Questions)),
		zap.Int("totalPoints", quiz.TotalPoints))
	return quiz, nil
}

func (s *QuizService) find(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.Repo.FindByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", util.ErrQuizNotFound, quizID)
		}
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) findOwned(ctx context.Context, instructorID uint, quizID string) (*model.Quiz, error) {
	quiz, err := s.find(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.InstructorID != instructorID {
		logger.Log.Info("Quiz access denied",
			zap.String("quizId", quizID),
			zap.Uint("userId", instructorID))
		return nil, fmt.Errorf("%w: not the quiz owner", util.ErrPermissionDenied)
	}
	return quiz, nil
}

// Update 整体替换标题、策略和题目；已有作答保留各自的 maxScore 快照
func (s *QuizService) Update(ctx context.Context, instructorID uint, quizID string, req UpdateQuizReq) (*model.Quiz, error) {
	quiz, err := s.findOwned(ctx, instructorID, quizID)
	if err != nil {
		return nil, err
	}

	req.apply(quiz)
	if issues := quiz.Prepare(); len(issues) > 0 {
		return nil, util.NewValidationError(issues...)
	}
	if err := s.Repo.Update(ctx, quiz); err != nil {
		return nil, err
	}

	logger.Log.Info("Quiz updated", zap.String("quizId", quiz.ID), zap.Int("totalPoints", quiz.TotalPoints))
	return quiz, nil
}

func (s *QuizService) Delete(ctx context.Context, instructorID uint, quizID string) error {
	quiz, err := s.findOwned(ctx, instructorID, quizID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, quiz); err != nil {
		return err
	}
	if err := s.Leaderboard.Clear(ctx, quiz.ID); err != nil {
		logger.Log.Warn("Failed to clear leaderboard", zap.String("quizId", quiz.ID), zap.Error(err))
	}

	logger.Log.Info("Quiz deleted", zap.String("quizId", quiz.ID), zap.Uint("stepId", quiz.StepID))
	return nil
}

// Get 所属教师看到完整定义，其余用户看到学生视图；学生须已加入班级
func (s *QuizService) Get(ctx context.Context, quizID string, userID uint, role model.UserRole) (interface{}, error) {
	quiz, err := s.find(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if role == model.Instructor && quiz.InstructorID == userID {
		return quiz, nil
	}
	if role == model.Student {
		enrolled, err := s.ClassroomRepo.IsEnrolled(ctx, userID, quiz.ClassroomID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, fmt.Errorf("%w: not enrolled in this classroom", util.ErrPermissionDenied)
		}
	}
	return StudentView(quiz)
}

func (s *QuizService) ListAttempts(ctx context.Context, instructorID uint, quizID string) ([]model.QuizAttempt, error) {
	if _, err := s.findOwned(ctx, instructorID, quizID); err != nil {
		return nil, err
	}
	return s.AttemptRepo.ListByQuiz(ctx, quizID)
}

func (s *QuizService) TopStudents(ctx context.Context, instructorID uint, quizID string, n int) ([]LeaderboardEntry, error) {
	if _, err := s.findOwned(ctx, instructorID, quizID); err != nil {
		return nil, err
	}
	return s.Leaderboard.Top(ctx, quizID, n)
}
