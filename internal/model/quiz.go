package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	LongAnswer   QuestionType = "long_answer"
	Numeric      QuestionType = "numeric"
	FileUpload   QuestionType = "file_upload"
)

func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultiChoice, LongAnswer, Numeric, FileUpload:
		return true
	}
	return false
}

// AutoGraded 是否可以在提交时自动判分
func (t QuestionType) AutoGraded() bool {
	return t == SingleChoice || t == MultiChoice || t == Numeric
}

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// 测验策略的取值范围
const (
	MinTimeLimitMinutes = 5
	MaxTimeLimitMinutes = 180
	MinAttempts         = 1
	MaxAttempts         = 10
)

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question 内嵌在 Quiz 中，不单独寻址
type Question struct {
	ID               string       `json:"id"`
	Text             string       `json:"text"`
	Type             QuestionType `json:"type"`
	Options          []Option     `json:"options,omitempty"`
	CorrectAnswer    string       `json:"correctAnswer,omitempty"`
	Guidelines       string       `json:"guidelines,omitempty"`
	NumericAnswer    *float64     `json:"numericAnswer,omitempty"`
	NumericTolerance float64      `json:"numericTolerance,omitempty"`
	RequiresUpload   bool         `json:"requiresUpload"`
	Points           int          `json:"points"`
	Difficulty       string       `json:"difficulty"`
	Explanation      string       `json:"explanation,omitempty"`
}

// UnmarshalJSON 未提供 requiresUpload 时默认为 true
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	p := plain{RequiresUpload: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = Question(p)
	return nil
}

// CorrectOptionTexts 所有标记为正确的选项文本
func (q *Question) CorrectOptionTexts() []string {
	var out []string
	for _, o := range q.Options {
		if o.IsCorrect {
			out = append(out, o.Text)
		}
	}
	return out
}

// Normalize 补默认值并派生 correctAnswer，在校验之前调用
func (q *Question) Normalize() {
	if q.ID == "" {
		q.ID = NewID()
	}
	q.Text = strings.TrimSpace(q.Text)
	for i := range q.Options {
		q.Options[i].Text = strings.TrimSpace(q.Options[i].Text)
	}
	if q.Points == 0 {
		q.Points = 1
	}
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	if q.Type != FileUpload {
		q.RequiresUpload = false
	}

	q.CorrectAnswer = ""
	if q.Type == SingleChoice {
		if correct := q.CorrectOptionTexts(); len(correct) == 1 {
			q.CorrectAnswer = correct[0]
		}
	}
}

// FieldIssue 一条校验失败信息。QuestionIndex 指向测验题目；
// 为空时 Field 是测验级字段或请求体中的路径（如 answers[1].answer）
type FieldIssue struct {
	QuestionIndex *int   `json:"questionIndex,omitempty"`
	Field         string `json:"field"`
	Reason        string `json:"reason"`
}

func (i FieldIssue) String() string {
	if i.QuestionIndex != nil {
		return fmt.Sprintf("question %d: %s: %s", *i.QuestionIndex, i.Field, i.Reason)
	}
	return fmt.Sprintf("%s: %s", i.Field, i.Reason)
}

func questionIssue(index int, field, reason string) FieldIssue {
	return FieldIssue{QuestionIndex: &index, Field: field, Reason: reason}
}

// Validate 返回该题的全部问题，index 用于定位
func (q *Question) Validate(index int) []FieldIssue {
	var issues []FieldIssue

	if q.Text == "" {
		issues = append(issues, questionIssue(index, "text", "must not be empty"))
	}
	if q.Points < 0 {
		issues = append(issues, questionIssue(index, "points", "must be a positive integer"))
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		issues = append(issues, questionIssue(index, "difficulty", "must be one of easy, medium, hard"))
	}

	switch q.Type {
	case SingleChoice, MultiChoice:
		if len(q.Options) < 2 {
			issues = append(issues, questionIssue(index, "options", "at least 2 options are required"))
		}
		for _, o := range q.Options {
			if o.Text == "" {
				issues = append(issues, questionIssue(index, "options", "option text must not be empty"))
				break
			}
		}
		correct := len(q.CorrectOptionTexts())
		switch {
		case correct == 0:
			issues = append(issues, questionIssue(index, "options", "at least one option must be correct"))
		case q.Type == SingleChoice && correct > 1:
			issues = append(issues, questionIssue(index, "options", "exactly one option must be correct"))
		}
	case LongAnswer:
		if strings.TrimSpace(q.Guidelines) == "" {
			issues = append(issues, questionIssue(index, "guidelines", "required for long_answer"))
		}
	case Numeric:
		if q.NumericAnswer == nil || math.IsNaN(*q.NumericAnswer) || math.IsInf(*q.NumericAnswer, 0) {
			issues = append(issues, questionIssue(index, "numericAnswer", "must be a finite number"))
		}
		if q.NumericTolerance < 0 || math.IsNaN(q.NumericTolerance) {
			issues = append(issues, questionIssue(index, "numericTolerance", "must be >= 0"))
		}
	case FileUpload:
	default:
		issues = append(issues, questionIssue(index, "type", fmt.Sprintf("unknown question type %q", q.Type)))
	}

	return issues
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	InstructorID        uint                          `gorm:"index" json:"instructorId"`
	ClassroomID         uint                          `gorm:"index" json:"classroomId"`
	LearningPathID      uint                          `gorm:"index" json:"learningPathId"`
	StepID              uint                          `gorm:"index" json:"stepId"`
	Title               string                        `gorm:"size:255;not null" json:"title"`
	Description         string                        `gorm:"type:text" json:"description"`
	TimeLimitMinutes    int                           `json:"timeLimitMinutes"`
	PassingScorePercent int                           `json:"passingScorePercent"`
	AllowRetakes        bool                          `json:"allowRetakes"`
	MaxAttempts         int                           `json:"maxAttempts"`
	TotalPoints         int                           `json:"totalPoints"`
	Questions           datatypes.JSONSlice[Question] `json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// SumPoints 题目分值之和
func SumPoints(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}

// RecomputeTotalPoints 每次保存前显式调用，totalPoints 不可单独设置
func (q *Quiz) RecomputeTotalPoints() {
	q.TotalPoints = SumPoints(q.Questions)
}

// EffectiveMaxAttempts 不允许重做时只有一次机会
func (q *Quiz) EffectiveMaxAttempts() int {
	if !q.AllowRetakes {
		return 1
	}
	return q.MaxAttempts
}

func (q *Quiz) QuestionByID(id string) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// Prepare 规范化所有题目、校验整个测验并重算总分。
// 返回全部问题而非第一个。
func (q *Quiz) Prepare() []FieldIssue {
	var issues []FieldIssue

	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		issues = append(issues, FieldIssue{Field: "title", Reason: "must not be empty"})
	}
	if q.TimeLimitMinutes < MinTimeLimitMinutes || q.TimeLimitMinutes > MaxTimeLimitMinutes {
		issues = append(issues, FieldIssue{Field: "timeLimitMinutes", Reason: fmt.Sprintf("must be between %d and %d", MinTimeLimitMinutes, MaxTimeLimitMinutes)})
	}
	if q.PassingScorePercent < 0 || q.PassingScorePercent > 100 {
		issues = append(issues, FieldIssue{Field: "passingScorePercent", Reason: "must be between 0 and 100"})
	}
	if q.MaxAttempts < MinAttempts || q.MaxAttempts > MaxAttempts {
		issues = append(issues, FieldIssue{Field: "maxAttempts", Reason: fmt.Sprintf("must be between %d and %d", MinAttempts, MaxAttempts)})
	}
	if len(q.Questions) == 0 {
		issues = append(issues, FieldIssue{Field: "questions", Reason: "at least one question is required"})
	}

	ids := make(map[string]int, len(q.Questions))
	for i := range q.Questions {
		qu := &q.Questions[i]
		qu.Normalize()
		if first, dup := ids[qu.ID]; dup {
			issues = append(issues, questionIssue(i, "id", fmt.Sprintf("duplicates question %d", first)))
		} else {
			ids[qu.ID] = i
		}
		issues = append(issues, qu.Validate(i)...)
	}

	q.RecomputeTotalPoints()
	return issues
}
