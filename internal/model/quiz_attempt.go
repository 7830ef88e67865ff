package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// FileRef 存储服务返回的文件引用
type FileRef struct {
	URL  string `json:"fileUrl"`
	Name string `json:"fileName,omitempty"`
}

// AnswerValue 按题型区分的答案，Kind 与题目类型一致，只有对应字段有值
type AnswerValue struct {
	Kind    QuestionType `json:"kind"`
	Text    *string      `json:"text,omitempty"`
	Choices []string     `json:"choices,omitempty"`
	Number  *float64     `json:"number,omitempty"`
	File    *FileRef     `json:"file,omitempty"`
}

func TextAnswer(kind QuestionType, s string) AnswerValue {
	return AnswerValue{Kind: kind, Text: &s}
}

func ChoicesAnswer(choices ...string) AnswerValue {
	return AnswerValue{Kind: MultiChoice, Choices: choices}
}

func NumberAnswer(n float64) AnswerValue {
	return AnswerValue{Kind: Numeric, Number: &n}
}

func FileAnswer(ref *FileRef) AnswerValue {
	return AnswerValue{Kind: FileUpload, File: ref}
}

// DecodeAnswerValue 按题型解析客户端提交的原始答案。
// 数字题接受 JSON 数字或可解析的字符串，无法解析时 Number 为空（判为错误而非报错）。
func DecodeAnswerValue(t QuestionType, raw json.RawMessage) (AnswerValue, error) {
	raw = bytes.TrimSpace(raw)
	empty := len(raw) == 0 || bytes.Equal(raw, []byte("null"))

	switch t {
	case SingleChoice, LongAnswer:
		if empty {
			return TextAnswer(t, ""), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AnswerValue{}, fmt.Errorf("answer for %s must be a string", t)
		}
		return TextAnswer(t, s), nil

	case MultiChoice:
		if empty {
			return ChoicesAnswer(), nil
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			var single string
			if err := json.Unmarshal(raw, &single); err != nil {
				return AnswerValue{}, fmt.Errorf("answer for %s must be a list of strings", t)
			}
			list = []string{single}
		}
		return ChoicesAnswer(list...), nil

	case Numeric:
		v := AnswerValue{Kind: Numeric}
		if empty {
			return v, nil
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			v.Number = &n
			return v, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if parsed, ok := parseFinite(s); ok {
				v.Number = &parsed
			}
		}
		return v, nil

	case FileUpload:
		if empty {
			return FileAnswer(nil), nil
		}
		var ref FileRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			var url string
			if err := json.Unmarshal(raw, &url); err != nil {
				return AnswerValue{}, fmt.Errorf("answer for %s must be a file reference", t)
			}
			ref.URL = url
		}
		if ref.URL == "" {
			return FileAnswer(nil), nil
		}
		return FileAnswer(&ref), nil
	}

	return AnswerValue{}, fmt.Errorf("unknown question type %q", t)
}

func parseFinite(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// AttemptAnswer 作答记录，内嵌在 QuizAttempt 中
type AttemptAnswer struct {
	ID               string      `json:"id"`
	QuestionID       string      `json:"questionId"`
	Answer           AnswerValue `json:"answer"`
	IsCorrect        bool        `json:"isCorrect"`
	NeedsReview      bool        `json:"needsReview"`
	PointsEarned     int         `json:"pointsEarned"`
	Feedback         string      `json:"feedback"`
	TimeSpentSeconds int         `json:"timeSpentSeconds"`
	GradedBy         *uint       `json:"gradedBy,omitempty"`
	GradedAt         *time.Time  `json:"gradedAt,omitempty"`
}

// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	QuizID           string                             `gorm:"type:varchar(36);uniqueIndex:idx_attempt_quiz_student_no" json:"quizId"`
	StudentID        uint                               `gorm:"uniqueIndex:idx_attempt_quiz_student_no" json:"studentId"`
	AttemptNumber    int                                `gorm:"uniqueIndex:idx_attempt_quiz_student_no" json:"attemptNumber"`
	Status           AttemptStatus                      `gorm:"size:20;default:'in_progress'" json:"status"`
	Answers          datatypes.JSONSlice[AttemptAnswer] `json:"answers"`
	TotalScore       int                                `json:"totalScore"`
	MaxScore         int                                `json:"maxScore"`
	QuestionPoints   datatypes.JSONType[map[string]int] `json:"-"`
	Percentage       int                                `json:"percentage"`
	Passed           bool                               `json:"passed"`
	StartedAt        time.Time                          `json:"startedAt"`
	CompletedAt      *time.Time                         `json:"completedAt"`
	TimeSpentSeconds int                                `json:"timeSpentSeconds"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// SnapshotQuestions 记录开始作答时各题分值，之后的判分和改分都以此为准
func (a *QuizAttempt) SnapshotQuestions(questions []Question) {
	points := make(map[string]int, len(questions))
	total := 0
	for _, q := range questions {
		points[q.ID] = q.Points
		total += q.Points
	}
	a.QuestionPoints = datatypes.NewJSONType(points)
	a.MaxScore = total
}

// PointsFor 返回快照中的题目分值；题目在开始作答后才加入时 ok 为 false。
// 没有快照的旧作答使用 current。
func (a *QuizAttempt) PointsFor(questionID string, current int) (int, bool) {
	points := a.QuestionPoints.Data()
	if len(points) == 0 {
		return current, true
	}
	p, ok := points[questionID]
	return p, ok
}

// ScorePercentage round(100*score/max)，max 为 0 时返回 0
func ScorePercentage(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(maxScore)))
}

// Recompute 从全部作答重新计算总分、百分比和是否通过
func (a *QuizAttempt) Recompute(passingScorePercent int) {
	total := 0
	for _, ans := range a.Answers {
		total += ans.PointsEarned
	}
	a.TotalScore = total
	a.Percentage = ScorePercentage(total, a.MaxScore)
	a.Passed = a.Percentage >= passingScorePercent
}

func (a *QuizAttempt) AnswerFor(questionID string) (*AttemptAnswer, bool) {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return &a.Answers[i], true
		}
	}
	return nil, false
}

// Counted 放弃的作答不计入次数限制
func (a *QuizAttempt) Counted() bool {
	return a.Status != AttemptAbandoned
}
