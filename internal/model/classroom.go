package model

// swagger:model Classroom
type Classroom struct {
	BaseModel
	Title        string `gorm:"size:255;not null" json:"title"`
	InstructorID uint   `gorm:"index" json:"instructorId"`
}

func (Classroom) TableName() string {
	return "classrooms"
}

// ClassroomEnrollment 学生与班级的从属关系
type ClassroomEnrollment struct {
	BaseModel
	ClassroomID uint `gorm:"uniqueIndex:idx_classroom_student" json:"classroomId"`
	StudentID   uint `gorm:"uniqueIndex:idx_classroom_student" json:"studentId"`
}

func (ClassroomEnrollment) TableName() string {
	return "classroom_enrollments"
}
