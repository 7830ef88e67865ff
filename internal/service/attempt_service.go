package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"learnpath_backend/internal/grading"
	"learnpath_backend/internal/model"
	"learnpath_backend/internal/repository"
	"learnpath_backend/internal/util"
	"learnpath_backend/pkg/logger"
	"learnpath_backend/pkg/monitoring"
	"learnpath_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AttemptService struct {
	QuizRepo      *repository.QuizRepository
	AttemptRepo   *repository.QuizAttemptRepository
	ClassroomRepo *repository.ClassroomRepository
	Progress      *ProgressService
	Leaderboard   *LeaderboardService
	Now           func() time.Time
}

func NewAttemptService(
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.QuizAttemptRepository,
	classroomRepo *repository.ClassroomRepository,
	progress *ProgressService,
	leaderboard *LeaderboardService,
) *AttemptService {
	return &AttemptService{
		QuizRepo:      quizRepo,
		AttemptRepo:   attemptRepo,
		ClassroomRepo: classroomRepo,
		Progress:      progress,
		Leaderboard:   leaderboard,
		Now:           time.Now,
	}
}

type StartAttemptResp struct {
	AttemptID        string    `json:"attemptId"`
	AttemptNumber    int       `json:"attemptNumber"`
	TimeLimitMinutes int       `json:"timeLimitMinutes"`
	QuestionCount    int       `json:"questionCount"`
	StartedAt        time.Time `json:"startedAt"`
}

// SubmittedAnswer Answer 的形状取决于题型；File 由上传的文件部分填充
type SubmittedAnswer struct {
	QuestionID       string          `json:"questionId" binding:"required"`
	Answer           json.RawMessage `json:"answer" swaggertype:"object"`
	TimeSpentSeconds int             `json:"timeSpentSeconds" binding:"min=0"`
	File             *model.FileRef  `json:"-"`
}

type SubmitAttemptReq struct {
	AttemptID string            `json:"attemptId" binding:"required"`
	Answers   []SubmittedAnswer `json:"answers" binding:"dive"`
}

type GradedAnswer struct {
	QuestionID   string `json:"questionId"`
	IsCorrect    bool   `json:"isCorrect"`
	NeedsReview  bool   `json:"needsReview"`
	PointsEarned int    `json:"pointsEarned"`
	Feedback     string `json:"feedback"`
	Explanation  string `json:"explanation,omitempty"`
}

type SubmitAttemptResp struct {
	AttemptID  string         `json:"attemptId"`
	Score      int            `json:"score"`
	MaxScore   int            `json:"maxScore"`
	Percentage int            `json:"percentage"`
	Passed     bool           `json:"passed"`
	Answers    []GradedAnswer `json:"answers"`
}

// GradePatch Feedback 为空表示不修改
type GradePatch struct {
	QuestionID   string  `json:"questionId" binding:"required"`
	PointsEarned int     `json:"pointsEarned"`
	Feedback     *string `json:"feedback"`
}

type RegradeReq struct {
	Grades []GradePatch `json:"grades" binding:"required,min=1,dive"`
}

// AttemptDetail 作答完成后附带每道题的解析
type AttemptDetail struct {
	*model.QuizAttempt
	Explanations map[string]string `json:"explanations,omitempty"`
}

func (s *AttemptService) findQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", util.ErrQuizNotFound, quizID)
		}
		return nil, err
	}
	return quiz, nil
}

func (s *AttemptService) findAttempt(ctx context.Context, attemptID string) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", util.ErrAttemptNotFound, attemptID)
		}
		return nil, err
	}
	return attempt, nil
}

// Start 学生须已加入测验所属班级，且有效作答次数未达上限
func (s *AttemptService) Start(ctx context.Context, studentID uint, quizID string) (*StartAttemptResp, error) {
	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.ClassroomRepo.IsEnrolled(ctx, studentID, quiz.ClassroomID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		logger.Log.Info("Attempt start denied: not enrolled",
			zap.String("quizId", quizID),
			zap.Uint("userId", studentID))
		return nil, fmt.Errorf("%w: not enrolled in this classroom", util.ErrPermissionDenied)
	}

	limit := quiz.EffectiveMaxAttempts()
	attempt := &model.QuizAttempt{
		QuizID:    quiz.ID,
		StudentID: studentID,
		Status:    model.AttemptInProgress,
		Answers:   []model.AttemptAnswer{},
		StartedAt: s.Now(),
	}
	attempt.SnapshotQuestions(quiz.Questions)
	if err := s.AttemptRepo.CreateNext(ctx, attempt, limit); err != nil {
		if errors.Is(err, repository.ErrAttemptLimit) {
			logger.Log.Info("Attempt limit exceeded",
				zap.String("quizId", quizID),
				zap.Uint("userId", studentID),
				zap.Int("maxAttempts", limit))
			return nil, fmt.Errorf("%w: maximum of %d attempts reached", util.ErrAttemptLimitExceeded, limit)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: another attempt was started concurrently", util.ErrInvalidState)
		}
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()
	logger.Log.Info("Attempt started",
		zap.String("quizId", quiz.ID),
		zap.String("attemptId", attempt.ID),
		zap.Uint("userId", studentID),
		zap.Int("attemptNumber", attempt.AttemptNumber))

	return &StartAttemptResp{
		AttemptID:        attempt.ID,
		AttemptNumber:    attempt.AttemptNumber,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		QuestionCount:    len(quiz.Questions),
		StartedAt:        attempt.StartedAt,
	}, nil
}

// gradeAnswers 按提交顺序判分，分值取开始作答时的快照。未知题目、
// 开始作答后新增的题目和重复题目被丢弃；答案形状与题型不符时收集全部问题后一并返回。
func gradeAnswers(quiz *model.Quiz, attempt *model.QuizAttempt, submitted []SubmittedAnswer) ([]model.AttemptAnswer, error) {
	attemptID := attempt.ID
	answers := make([]model.AttemptAnswer, 0, len(submitted))
	seen := make(map[string]bool, len(submitted))
	verr := &util.ValidationError{}

	for i, sub := range submitted {
		q, ok := quiz.QuestionByID(sub.QuestionID)
		if !ok {
			logger.Log.Warn("Dropping answer for unknown question",
				zap.String("quizId", quiz.ID),
				zap.String("attemptId", attemptID),
				zap.String("questionId", sub.QuestionID))
			continue
		}
		points, ok := attempt.PointsFor(q.ID, q.Points)
		if !ok {
			logger.Log.Warn("Dropping answer for question added after attempt started",
				zap.String("quizId", quiz.ID),
				zap.String("attemptId", attemptID),
				zap.String("questionId", q.ID))
			continue
		}
		if seen[q.ID] {
			logger.Log.Warn("Dropping duplicate answer",
				zap.String("attemptId", attemptID),
				zap.String("questionId", q.ID))
			continue
		}
		seen[q.ID] = true

		var value model.AnswerValue
		if q.Type == model.FileUpload && sub.File != nil {
			value = model.FileAnswer(sub.File)
		} else {
			v, err := model.DecodeAnswerValue(q.Type, sub.Answer)
			if err != nil {
				verr.Add(model.FieldIssue{Field: fmt.Sprintf("answers[%d].answer", i), Reason: err.Error()})
				continue
			}
			value = v
		}

		graded := *q
		graded.Points = points
		r := grading.Grade(graded, value)
		answers = append(answers, model.AttemptAnswer{
			ID:               model.NewID(),
			QuestionID:       q.ID,
			Answer:           value,
			IsCorrect:        r.IsCorrect,
			NeedsReview:      r.Pending,
			PointsEarned:     r.PointsEarned,
			Feedback:         r.Feedback,
			TimeSpentSeconds: sub.TimeSpentSeconds,
		})
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *AttemptService) submittable(ctx context.Context, studentID uint, quizID, attemptID string) (*model.QuizAttempt, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		logger.Log.Info("Submit denied: attempt belongs to another student",
			zap.String("attemptId", attempt.ID),
			zap.Uint("userId", studentID))
		return nil, fmt.Errorf("%w: attempt belongs to another student", util.ErrPermissionDenied)
	}
	if attempt.QuizID != quizID {
		return nil, fmt.Errorf("%w: attempt %s is not for quiz %s", util.ErrAttemptNotFound, attempt.ID, quizID)
	}
	if attempt.Status != model.AttemptInProgress {
		logger.Log.Info("Submit rejected: attempt not in progress",
			zap.String("attemptId", attempt.ID),
			zap.String("status", string(attempt.Status)),
			zap.Uint("userId", studentID))
		return nil, fmt.Errorf("%w: %s", util.ErrInvalidState, util.ErrAttemptCompleted)
	}
	return attempt, nil
}

// CheckSubmittable 在上传答案文件之前确认作答可以提交
func (s *AttemptService) CheckSubmittable(ctx context.Context, studentID uint, quizID, attemptID string) error {
	_, err := s.submittable(ctx, studentID, quizID, attemptID)
	return err
}

func (s *AttemptService) Submit(ctx context.Context, studentID uint, quizID string, req SubmitAttemptReq) (*SubmitAttemptResp, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("quiz.id", quizID), attribute.String("attempt.id", req.AttemptID))

	attempt, err := s.submittable(ctx, studentID, quizID, req.AttemptID)
	if err != nil {
		return nil, err
	}

	quiz, err := s.findQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	answers, err := gradeAnswers(quiz, attempt, req.Answers)
	if err != nil {
		return nil, err
	}

	completedAt := s.Now()
	attempt.Answers = answers
	attempt.Status = model.AttemptCompleted
	attempt.CompletedAt = &completedAt
	attempt.TimeSpentSeconds = int(completedAt.Sub(attempt.StartedAt).Seconds())
	if attempt.TimeSpentSeconds < 0 {
		attempt.TimeSpentSeconds = 0
	}
	attempt.Recompute(quiz.PassingScorePercent)

	if err := s.AttemptRepo.Complete(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrAttemptNotInProgress) {
			return nil, fmt.Errorf("%w: %s", util.ErrInvalidState, util.ErrAttemptCompleted)
		}
		return nil, err
	}

	monitoring.Submissions.WithLabelValues(strconv.FormatBool(attempt.Passed)).Inc()
	logger.Log.Info("Attempt submitted",
		zap.String("quizId", quiz.ID),
		zap.String("attemptId", attempt.ID),
		zap.Uint("userId", studentID),
		zap.Int("score", attempt.TotalScore),
		zap.Int("maxScore", attempt.MaxScore),
		zap.Bool("passed", attempt.Passed))

	s.afterGrading(ctx, quiz, attempt, model.ResultSourceSubmit)

	resp := &SubmitAttemptResp{
		AttemptID:  attempt.ID,
		Score:      attempt.TotalScore,
		MaxScore:   attempt.MaxScore,
		Percentage: attempt.Percentage,
		Passed:     attempt.Passed,
		Answers:    make([]GradedAnswer, 0, len(attempt.Answers)),
	}
	for _, a := range attempt.Answers {
		g := GradedAnswer{
			QuestionID:   a.QuestionID,
			IsCorrect:    a.IsCorrect,
			NeedsReview:  a.NeedsReview,
			PointsEarned: a.PointsEarned,
			Feedback:     a.Feedback,
		}
		if q, ok := quiz.QuestionByID(a.QuestionID); ok {
			g.Explanation = q.Explanation
		}
		resp.Answers = append(resp.Answers, g)
	}
	return resp, nil
}

// afterGrading 投影到学习路径并刷新排行榜，两者失败都不影响作答结果
func (s *AttemptService) afterGrading(ctx context.Context, quiz *model.Quiz, attempt *model.QuizAttempt, source string) {
	s.Progress.Project(ctx, quiz, attempt, source)

	if s.Leaderboard.enabled() {
		best, err := s.bestPercentage(ctx, quiz.ID, attempt.StudentID)
		if err == nil {
			err = s.Leaderboard.Set(ctx, quiz.ID, attempt.StudentID, best)
		}
		if err != nil {
			logger.Log.Warn("Leaderboard update failed",
				zap.String("quizId", quiz.ID),
				zap.Uint("userId", attempt.StudentID),
				zap.Error(err))
		}
	}
}

func (s *AttemptService) bestPercentage(ctx context.Context, quizID string, studentID uint) (int, error) {
	attempts, err := s.AttemptRepo.ListByQuizAndStudent(ctx, quizID, studentID)
	if err != nil {
		return 0, err
	}
	best := 0
	for _, a := range attempts {
		if a.Status == model.AttemptCompleted && a.Percentage > best {
			best = a.Percentage
		}
	}
	return best, nil
}

// Regrade 教师修改单题得分和评语，之后从全部作答重算总分。
// 所有补丁先校验，有任何问题则不修改作答。
func (s *AttemptService) Regrade(ctx context.Context, instructorID uint, attemptID string, req RegradeReq) (*model.QuizAttempt, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.Regrade")
	defer span.End()
	span.SetAttributes(attribute.String("attempt.id", attemptID))

	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.findQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz.InstructorID != instructorID {
		logger.Log.Info("Regrade denied: not the quiz owner",
			zap.String("quizId", quiz.ID),
			zap.String("attemptId", attempt.ID),
			zap.Uint("userId", instructorID))
		return nil, fmt.Errorf("%w: not the quiz owner", util.ErrPermissionDenied)
	}
	if attempt.Status != model.AttemptCompleted {
		return nil, fmt.Errorf("%w: only completed attempts can be regraded", util.ErrInvalidState)
	}

	verr := &util.ValidationError{}
	for i, p := range req.Grades {
		answer, ok := attempt.AnswerFor(p.QuestionID)
		if !ok {
			verr.Add(model.FieldIssue{Field: fmt.Sprintf("grades[%d].questionId", i), Reason: fmt.Sprintf("no answer for question %q in this attempt", p.QuestionID)})
			continue
		}
		q, ok := quiz.QuestionByID(answer.QuestionID)
		if !ok {
			verr.Add(model.FieldIssue{Field: fmt.Sprintf("grades[%d].questionId", i), Reason: fmt.Sprintf("question %q no longer exists in the quiz", p.QuestionID)})
			continue
		}
		points, _ := attempt.PointsFor(q.ID, q.Points)
		if p.PointsEarned < 0 || p.PointsEarned > points {
			verr.Add(model.FieldIssue{Field: fmt.Sprintf("grades[%d].pointsEarned", i), Reason: fmt.Sprintf("must be between 0 and %d", points)})
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	gradedAt := s.Now()
	for _, p := range req.Grades {
		answer, _ := attempt.AnswerFor(p.QuestionID)
		answer.PointsEarned = p.PointsEarned
		if p.Feedback != nil {
			answer.Feedback = *p.Feedback
		}
		answer.NeedsReview = false
		gradedBy := instructorID
		answer.GradedBy = &gradedBy
		answer.GradedAt = &gradedAt
	}
	attempt.Recompute(quiz.PassingScorePercent)

	if err := s.AttemptRepo.SaveGrades(ctx, attempt); err != nil {
		return nil, err
	}

	monitoring.Regrades.Inc()
	logger.Log.Info("Attempt regraded",
		zap.String("quizId", quiz.ID),
		zap.String("attemptId", attempt.ID),
		zap.Uint("userId", instructorID),
		zap.Int("patches", len(req.Grades)),
		zap.Int("score", attempt.TotalScore),
		zap.Bool("passed", attempt.Passed))

	s.afterGrading(ctx, quiz, attempt, model.ResultSourceRegrade)
	return attempt, nil
}

// Get 作答学生本人或测验所属教师可查看
func (s *AttemptService) Get(ctx context.Context, attemptID string, userID uint, role model.UserRole) (*AttemptDetail, error) {
	attempt, err := s.findAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	quiz, err := s.QuizRepo.FindByID(ctx, attempt.QuizID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	allowed := role == model.Student && attempt.StudentID == userID
	if role == model.Instructor && quiz != nil && quiz.InstructorID == userID {
		allowed = true
	}
	if !allowed {
		return nil, fmt.Errorf("%w: cannot view this attempt", util.ErrPermissionDenied)
	}

	detail := &AttemptDetail{QuizAttempt: attempt}
	if attempt.Status == model.AttemptCompleted && quiz != nil {
		detail.Explanations = make(map[string]string)
		for _, a := range attempt.Answers {
			if q, ok := quiz.QuestionByID(a.QuestionID); ok && q.Explanation != "" {
				detail.Explanations[q.ID] = q.Explanation
			}
		}
	}
	return detail, nil
}

func (s *AttemptService) ListMine(ctx context.Context, studentID uint, quizID string) ([]model.QuizAttempt, error) {
	if _, err := s.findQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return s.AttemptRepo.ListByQuizAndStudent(ctx, quizID, studentID)
}
