package model

import "gorm.io/datatypes"

// PendingProjection 写入学习路径失败的成绩，由定时任务重放
type PendingProjection struct {
	BaseModel
	LearningPathID uint                                `gorm:"index" json:"learningPathId"`
	StudentID      uint                                `gorm:"index" json:"studentId"`
	Entry          datatypes.JSONType[QuizResultEntry] `json:"entry"`
	Retries        int                                 `gorm:"default:0" json:"retries"`
	LastError      string                              `gorm:"type:text" json:"lastError"`
}

func (PendingProjection) TableName() string {
	return "pending_projections"
}
