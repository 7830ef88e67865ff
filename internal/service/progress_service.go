package service

import (
	"context"
	"time"

	"learnpath_backend/internal/model"
	"learnpath_backend/internal/repository"
	"learnpath_backend/pkg/logger"
	"learnpath_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// QuizResultAppender 学习路径成绩写入端
type QuizResultAppender interface {
	AppendQuizResult(ctx context.Context, pathID, studentID uint, entry model.QuizResultEntry) error
}

// ProgressService 把作答结果投影到学习路径。写入失败不影响作答本身，
// 失败的记录落到 pending_projections 由定时任务重放。
type ProgressService struct {
	Appender    QuizResultAppender
	PendingRepo *repository.PendingProjectionRepository
	Now         func() time.Time
}

func NewProgressService(appender QuizResultAppender, pendingRepo *repository.PendingProjectionRepository) *ProgressService {
	return &ProgressService{Appender: appender, PendingRepo: pendingRepo, Now: time.Now}
}

func ResultEntry(quiz *model.Quiz, attempt *model.QuizAttempt, source string, at time.Time) model.QuizResultEntry {
	return model.QuizResultEntry{
		QuizID:        quiz.ID,
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		BestScore:     attempt.TotalScore,
		MaxScore:      attempt.MaxScore,
		Percentage:    attempt.Percentage,
		Passed:        attempt.Passed,
		Source:        source,
		RecordedAt:    at,
	}
}

// Project 追加一条成绩记录；返回值只表示是否立即写入成功
func (s *ProgressService) Project(ctx context.Context, quiz *model.Quiz, attempt *model.QuizAttempt, source string) bool {
	entry := ResultEntry(quiz, attempt, source, s.Now())

	err := s.Appender.AppendQuizResult(ctx, quiz.LearningPathID, attempt.StudentID, entry)
	if err == nil {
		return true
	}

	monitoring.ProjectionFailures.Inc()
	pending := &model.PendingProjection{
		LearningPathID: quiz.LearningPathID,
		StudentID:      attempt.StudentID,
		Entry:          datatypes.NewJSONType(entry),
		LastError:      err.Error(),
	}
	if perr := s.PendingRepo.Create(ctx, pending); perr != nil {
		logger.Log.Error("Quiz result projection lost",
			zap.String("quizId", quiz.ID),
			zap.String("attemptId", attempt.ID),
			zap.Uint("userId", attempt.StudentID),
			zap.NamedError("projectionError", err),
			zap.Error(perr))
		return false
	}

	logger.Log.Error("Quiz result projection failed, queued for retry",
		zap.String("quizId", quiz.ID),
		zap.String("attemptId", attempt.ID),
		zap.Uint("userId", attempt.StudentID),
		zap.Uint("pendingId", pending.ID),
		zap.Error(err))
	return false
}

// RetryPending 重放待投影记录，返回成功条数
func (s *ProgressService) RetryPending(ctx context.Context, maxRetries, batchSize int) (int, error) {
	rows, err := s.PendingRepo.ListDue(ctx, maxRetries, batchSize)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, row := range rows {
		entry := row.Entry.Data()
		if err := s.Appender.AppendQuizResult(ctx, row.LearningPathID, row.StudentID, entry); err != nil {
			if merr := s.PendingRepo.MarkFailed(ctx, row.ID, err.Error()); merr != nil {
				logger.Log.Error("Failed to record projection retry", zap.Uint("pendingId", row.ID), zap.Error(merr))
			}
			if row.Retries+1 >= maxRetries {
				logger.Log.Error("Quiz result projection gave up",
					zap.Uint("pendingId", row.ID),
					zap.String("attemptId", entry.AttemptID),
					zap.Error(err))
			}
			continue
		}
		if err := s.PendingRepo.Delete(ctx, row.ID); err != nil {
			// 下次会重复追加一条，历史本身允许重复
			logger.Log.Warn("Failed to delete replayed projection", zap.Uint("pendingId", row.ID), zap.Error(err))
		}
		done++
	}

	if done > 0 {
		logger.Log.Info("Replayed quiz result projections", zap.Int("count", done))
	}
	return done, nil
}
