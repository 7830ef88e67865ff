package repository

import (
	"context"

	"learnpath_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LearningPathRepository struct {
	DB *gorm.DB
}

func NewLearningPathRepository(db *gorm.DB) *LearningPathRepository {
	return &LearningPathRepository{DB: db}
}

// Create 同时写入路径和其步骤
func (r *LearningPathRepository) Create(ctx context.Context, path *model.LearningPath) error {
	return r.DB.WithContext(ctx).Create(path).Error
}

func (r *LearningPathRepository) FindByID(ctx context.Context, id uint) (*model.LearningPath, error) {
	var path model.LearningPath
	err := r.DB.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order asc, id asc")
		}).
		First(&path, id).Error
	if err != nil {
		return nil, err
	}
	return &path, nil
}

func (r *LearningPathRepository) FindStep(ctx context.Context, pathID, stepID uint) (*model.LearningPathStep, error) {
	var step model.LearningPathStep
	err := r.DB.WithContext(ctx).
		Where("id = ? AND learning_path_id = ?", stepID, pathID).
		First(&step).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// AppendQuizResult 追加一条成绩到学习者记录，记录不存在时创建。
// 行锁保证同一学习者的并发追加不会互相覆盖（sqlite 下退化为库级锁）。
func (r *LearningPathRepository) AppendQuizResult(ctx context.Context, pathID, studentID uint, entry model.QuizResultEntry) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		learner := model.LearningPathLearner{LearningPathID: pathID, StudentID: studentID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&learner).Error; err != nil {
			return err
		}

		var current model.LearningPathLearner
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("learning_path_id = ? AND student_id = ?", pathID, studentID).
			First(&current).Error; err != nil {
			return err
		}

		current.QuizResults = append(current.QuizResults, entry)
		return tx.Model(&current).Update("quiz_results", current.QuizResults).Error
	})
}

func (r *LearningPathRepository) FindLearner(ctx context.Context, pathID, studentID uint) (*model.LearningPathLearner, error) {
	var learner model.LearningPathLearner
	err := r.DB.WithContext(ctx).
		Where("learning_path_id = ? AND student_id = ?", pathID, studentID).
		First(&learner).Error
	if err != nil {
		return nil, err
	}
	return &learner, nil
}
