package repository

import (
	"context"

	"learnpath_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

// CreateForStep 创建测验并回写步骤的 hasQuiz/quizId，两者在同一事务中
func (r *QuizRepository) CreateForStep(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(quiz).Error; err != nil {
			return err
		}
		res := tx.Model(&model.LearningPathStep{}).
			Where("id = ? AND learning_path_id = ? AND has_quiz = ?", quiz.StepID, quiz.LearningPathID, false).
			Updates(map[string]interface{}{"has_quiz": true, "quiz_id": quiz.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStepUnavailable
		}
		return nil
	})
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.WithContext(ctx).First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) Update(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Save(quiz).Error
}

// Delete 软删除测验并清空步骤上的反向引用；作答记录保留
func (r *QuizRepository) Delete(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.LearningPathStep{}).
			Where("quiz_id = ?", quiz.ID).
			Updates(map[string]interface{}{"has_quiz": false, "quiz_id": nil}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, "id = ?", quiz.ID).Error
	})
}

func (r *QuizRepository) ListByLearningPath(ctx context.Context, pathID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).Where("learning_path_id = ?", pathID).Order("created_at asc").Find(&quizzes).Error
	return quizzes, err
}
