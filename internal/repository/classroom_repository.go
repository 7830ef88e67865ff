package repository

import (
	"context"

	"learnpath_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassroomRepository struct {
	DB *gorm.DB
}

func NewClassroomRepository(db *gorm.DB) *ClassroomRepository {
	return &ClassroomRepository{DB: db}
}

func (r *ClassroomRepository) Create(ctx context.Context, classroom *model.Classroom) error {
	return r.DB.WithContext(ctx).Create(classroom).Error
}

func (r *ClassroomRepository) FindByID(ctx context.Context, id uint) (*model.Classroom, error) {
	var classroom model.Classroom
	if err := r.DB.WithContext(ctx).First(&classroom, id).Error; err != nil {
		return nil, err
	}
	return &classroom, nil
}

// Enroll 重复加入是幂等的
func (r *ClassroomRepository) Enroll(ctx context.Context, classroomID, studentID uint) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ClassroomEnrollment{ClassroomID: classroomID, StudentID: studentID}).Error
}

func (r *ClassroomRepository) IsEnrolled(ctx context.Context, studentID, classroomID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ClassroomEnrollment{}).
		Where("classroom_id = ? AND student_id = ?", classroomID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *ClassroomRepository) ListStudents(ctx context.Context, classroomID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.ClassroomEnrollment{}).
		Where("classroom_id = ?", classroomID).
		Order("student_id asc").
		Pluck("student_id", &ids).Error
	return ids, err
}
