// Package grading 按题型对单个答案判分，不做任何 I/O。
package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"learnpath_backend/internal/model"
)

const (
	FeedbackCorrect       = "Correct!"
	FeedbackIncorrect     = "Incorrect."
	FeedbackUploadPending = "Submitted for instructor review."
	FeedbackEssayPending  = "Submitted; instructor will grade."
)

// Result 单题判分结果；Pending 表示需要教师人工评分
type Result struct {
	IsCorrect    bool
	PointsEarned int
	Feedback     string
	Pending      bool
}

// Grade 根据题目定义给出判分结果。答案类型与题型不符时按错误处理。
func Grade(q model.Question, v model.AnswerValue) Result {
	switch q.Type {
	case model.SingleChoice:
		return binary(q, gradeSingle(q, v))
	case model.MultiChoice:
		return binary(q, gradeMulti(q, v))
	case model.Numeric:
		r := binary(q, gradeNumeric(q, v))
		if !r.IsCorrect {
			r.Feedback = numericFeedback(q)
		}
		return r
	case model.FileUpload:
		return Result{Feedback: FeedbackUploadPending, Pending: true}
	case model.LongAnswer:
		return Result{Feedback: FeedbackEssayPending, Pending: true}
	}
	return Result{Feedback: FeedbackIncorrect}
}

func binary(q model.Question, correct bool) Result {
	if correct {
		return Result{IsCorrect: true, PointsEarned: q.Points, Feedback: FeedbackCorrect}
	}
	return Result{Feedback: FeedbackIncorrect}
}

func gradeSingle(q model.Question, v model.AnswerValue) bool {
	if v.Text == nil {
		return false
	}
	expected := q.CorrectAnswer
	if expected == "" {
		// 兼容未经 Normalize 的题目
		if correct := q.CorrectOptionTexts(); len(correct) == 1 {
			expected = correct[0]
		}
	}
	return expected != "" && strings.TrimSpace(*v.Text) == expected
}

func gradeMulti(q model.Question, v model.AnswerValue) bool {
	submitted := make(map[string]struct{}, len(v.Choices))
	for _, c := range v.Choices {
		submitted[strings.TrimSpace(c)] = struct{}{}
	}
	if len(submitted) == 0 {
		return false
	}

	expected := make(map[string]struct{})
	for _, c := range q.CorrectOptionTexts() {
		expected[c] = struct{}{}
	}
	if len(submitted) != len(expected) {
		return false
	}
	for c := range submitted {
		if _, ok := expected[c]; !ok {
			return false
		}
	}
	return true
}

// ulpSlack 只吸收 float64 的表示误差（若干个 ulp），
// 使 3.15 对 3.14±0.01 的边界判为正确，而不会随数值增大放宽容差
const ulpSlack = 4 * 0x1p-52

func gradeNumeric(q model.Question, v model.AnswerValue) bool {
	if v.Number == nil || q.NumericAnswer == nil {
		return false
	}
	got, want := *v.Number, *q.NumericAnswer
	if math.IsNaN(got) || math.IsInf(got, 0) {
		return false
	}
	diff := math.Abs(got - want)
	return diff <= q.NumericTolerance+ulpSlack*math.Max(math.Abs(got), math.Abs(want))
}

func numericFeedback(q model.Question) string {
	if q.NumericAnswer == nil {
		return FeedbackIncorrect
	}
	want := strconv.FormatFloat(*q.NumericAnswer, 'f', -1, 64)
	if q.NumericTolerance == 0 {
		return fmt.Sprintf("Incorrect. Expected %s.", want)
	}
	tol := strconv.FormatFloat(q.NumericTolerance, 'f', -1, 64)
	return fmt.Sprintf("Incorrect. Expected %s ± %s.", want, tol)
}
