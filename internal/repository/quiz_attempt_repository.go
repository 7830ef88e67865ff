package repository

import (
	"context"

	"learnpath_backend/internal/model"

	"gorm.io/gorm"
)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

// CreateNext 在事务中检查次数上限并分配下一个 attemptNumber。
// 放弃的作答不计入上限，但编号仍单调递增；(quiz, student, number) 唯一索引兜底并发冲突。
func (r *QuizAttemptRepository) CreateNext(ctx context.Context, attempt *model.QuizAttempt, limit int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counted int64
		if err := tx.Model(&model.QuizAttempt{}).
			Where("quiz_id = ? AND student_id = ? AND status <> ?", attempt.QuizID, attempt.StudentID, model.AttemptAbandoned).
			Count(&counted).Error; err != nil {
			return err
		}
		if int(counted) >= limit {
			return ErrAttemptLimit
		}

		var last int
		if err := tx.Unscoped().Model(&model.QuizAttempt{}).
			Where("quiz_id = ? AND student_id = ?", attempt.QuizID, attempt.StudentID).
			Select("COALESCE(MAX(attempt_number), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		attempt.AttemptNumber = last + 1

		return tx.Create(attempt).Error
	})
}

func (r *QuizAttemptRepository) FindByID(ctx context.Context, id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// Complete 只在作答仍为 in_progress 时写入，防止并发的重复提交都成功
func (r *QuizAttemptRepository) Complete(ctx context.Context, attempt *model.QuizAttempt) error {
	res := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, model.AttemptInProgress).
		Select("status", "answers", "total_score", "percentage", "passed", "completed_at", "time_spent_seconds").
		Updates(attempt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAttemptNotInProgress
	}
	return nil
}

// SaveGrades 重评分只改分数相关字段，状态保持不变
func (r *QuizAttemptRepository) SaveGrades(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ?", attempt.ID).
		Select("answers", "total_score", "percentage", "passed").
		Updates(attempt).Error
}

func (r *QuizAttemptRepository) ListByQuiz(ctx context.Context, quizID string) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("student_id asc, attempt_number asc").
		Find(&attempts).Error
	return attempts, err
}

func (r *QuizAttemptRepository) ListByQuizAndStudent(ctx context.Context, quizID string, studentID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("attempt_number asc").
		Find(&attempts).Error
	return attempts, err
}
