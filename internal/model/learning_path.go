package model

import (
	"time"

	"gorm.io/datatypes"
)

// swagger:model LearningPath
type LearningPath struct {
	BaseModel
	ClassroomID  uint               `gorm:"index" json:"classroomId"`
	CourseID     uint               `gorm:"index" json:"courseId"`
	InstructorID uint               `gorm:"index" json:"instructorId"`
	Title        string             `gorm:"size:255;not null" json:"title"`
	Description  string             `gorm:"type:text" json:"description"`
	Steps        []LearningPathStep `gorm:"foreignKey:LearningPathID" json:"steps"`
}

func (LearningPath) TableName() string {
	return "learning_paths"
}

// LearningPathStep 学习路径中的一个步骤，最多绑定一个测验
type LearningPathStep struct {
	BaseModel
	LearningPathID uint    `gorm:"index" json:"learningPathId"`
	Order          int     `gorm:"column:step_order;default:0" json:"order"`
	Title          string  `gorm:"size:255;not null" json:"title"`
	HasQuiz        bool    `gorm:"default:false" json:"hasQuiz"`
	QuizID         *string `gorm:"type:varchar(36);index" json:"quizId"`
}

func (LearningPathStep) TableName() string {
	return "learning_path_steps"
}

// QuizResultEntry 学习路径上记录的一次测验结果（只追加）
type QuizResultEntry struct {
	QuizID        string    `json:"quizId"`
	AttemptID     string    `json:"attemptId"`
	AttemptNumber int       `json:"attemptNumber"`
	BestScore     int       `json:"bestScore"`
	MaxScore      int       `json:"maxScore"`
	Percentage    int       `json:"percentage"`
	Passed        bool      `json:"passed"`
	Source        string    `json:"source"` // submit / regrade
	RecordedAt    time.Time `json:"recordedAt"`
}

const (
	ResultSourceSubmit  = "submit"
	ResultSourceRegrade = "regrade"
)

// LearningPathLearner 学生在某条学习路径上的进度记录
type LearningPathLearner struct {
	BaseModel
	LearningPathID uint                                 `gorm:"uniqueIndex:idx_path_student" json:"learningPathId"`
	StudentID      uint                                 `gorm:"uniqueIndex:idx_path_student" json:"studentId"`
	QuizResults    datatypes.JSONSlice[QuizResultEntry] `json:"quizResults"`
}

func (LearningPathLearner) TableName() string {
	return "learning_path_learners"
}

// QuizResultSummary 把追加式历史归约为每个测验的最佳与最近结果
type QuizResultSummary struct {
	QuizID   string          `json:"quizId"`
	Attempts int             `json:"attempts"`
	Best     QuizResultEntry `json:"best"`
	Latest   QuizResultEntry `json:"latest"`
	Passed   bool            `json:"passed"`
}

// SummarizeQuizResults best 取百分比最高者，并列时取较新的一条；
// attempts 统计不同 attemptId 的数量，重评分不会重复计数
func SummarizeQuizResults(entries []QuizResultEntry) []QuizResultSummary {
	index := make(map[string]int)
	seen := make(map[string]map[string]bool)
	var out []QuizResultSummary

	for _, e := range entries {
		i, ok := index[e.QuizID]
		if !ok {
			i = len(out)
			index[e.QuizID] = i
			seen[e.QuizID] = make(map[string]bool)
			out = append(out, QuizResultSummary{QuizID: e.QuizID, Best: e, Latest: e})
		}
		s := &out[i]
		if !seen[e.QuizID][e.AttemptID] {
			seen[e.QuizID][e.AttemptID] = true
			s.Attempts++
		}
		if !e.RecordedAt.Before(s.Latest.RecordedAt) {
			s.Latest = e
		}
		if e.Percentage > s.Best.Percentage ||
			(e.Percentage == s.Best.Percentage && !e.RecordedAt.Before(s.Best.RecordedAt)) {
			s.Best = e
		}
	}
	for i := range out {
		out[i].Passed = out[i].Best.Passed
	}
	return out
}
