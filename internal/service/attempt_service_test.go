package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"learnpath_backend/internal/model"
	"learnpath_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answer(questionID string, v interface{}) SubmittedAnswer {
	raw, _ := json.Marshal(v)
	return SubmittedAnswer{QuestionID: questionID, Answer: raw}
}

func TestStartAssignsSequentialAttemptNumbers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{AllowRetakes: true, MaxAttempts: 3})

	first, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.AttemptNumber)
	assert.Equal(t, 3, first.QuestionCount)
	assert.Equal(t, 30, first.TimeLimitMinutes)

	second, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNumber)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)
}

func TestStartEnforcesAttemptLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{AllowRetakes: true, MaxAttempts: 2})

	for i := 0; i < 2; i++ {
		_, err := env.Attempts.Start(ctx, studentID, quiz.ID)
		require.NoError(t, err)
	}
	_, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	assert.ErrorIs(t, err, util.ErrAttemptLimitExceeded)
}

func TestStartWithoutRetakesAllowsOneAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{AllowRetakes: false, MaxAttempts: 5})

	_, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	_, err = env.Attempts.Start(ctx, studentID, quiz.ID)
	assert.ErrorIs(t, err, util.ErrAttemptLimitExceeded)
}

func TestStartAbandonedAttemptsDoNotCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	first, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(&model.QuizAttempt{}).
		Where("id = ?", first.AttemptID).
		Update("status", model.AttemptAbandoned).Error)

	second, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNumber, "numbers keep increasing past abandoned attempts")
}

func TestStartRequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	_, err := env.Attempts.Start(context.Background(), outsiderID, quiz.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = env.Attempts.Start(context.Background(), studentID, "missing")
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestSubmitGradesAndCompletesAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	env.advance(90 * time.Second)

	resp, err := env.Attempts.Submit(ctx, studentID, quiz.ID, SubmitAttemptReq{
		AttemptID: started.AttemptID,
		Answers: []SubmittedAnswer{
			answer("capital", "Paris"),
			answer("essay", "States and the union share power."),
			answer("pi", 3.15),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, resp.MaxScore)
	assert.Equal(t, 5, resp.Score)
	assert.Equal(t, 50, resp.Percentage)
	assert.False(t, resp.Passed)
	require.Len(t, resp.Answers, 3)
	assert.True(t, resp.Answers[0].IsCorrect)
	assert.Equal(t, "Paris has been the capital since 987.", resp.Answers[0].Explanation)
	assert.True(t, resp.Answers[1].NeedsReview)
	assert.True(t, resp.Answers[2].IsCorrect)

	detail, err := env.Attempts.Get(ctx, started.AttemptID, studentID, model.Student)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCompleted, detail.Status)
	require.NotNil(t, detail.CompletedAt)
	assert.Equal(t, 90, detail.TimeSpentSeconds)
	assert.Contains(t, detail.Explanations, "capital")
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)

	req := SubmitAttemptReq{AttemptID: started.AttemptID, Answers: []SubmittedAnswer{answer("capital", "Paris")}}
	_, err = env.Attempts.Submit(ctx, studentID, quiz.ID, req)
	require.NoError(t, err)

	again := SubmitAttemptReq{AttemptID: started.AttemptID, Answers: []SubmittedAnswer{answer("capital", "London")}}
	_, err = env.Attempts.Submit(ctx, studentID, quiz.ID, again)
	assert.ErrorIs(t, err, util.ErrInvalidState)
	assert.Contains(t, err.Error(), util.ErrAttemptCompleted.Error())

	detail, err := env.Attempts.Get(ctx, started.AttemptID, studentID, model.Student)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.TotalScore, "first submission is preserved")
}

func TestSubmitDropsUnknownAndDuplicateAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)

	resp, err := env.Attempts.Submit(ctx, studentID, quiz.ID, SubmitAttemptReq{
		AttemptID: started.AttemptID,
		Answers: []SubmittedAnswer{
			answer("capital", "Paris"),
			answer("ghost", "boo"),
			answer("capital", "London"),
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "capital", resp.Answers[0].QuestionID)
	assert.Equal(t, 2, resp.Score, "first answer for a question wins")
}

func TestSubmitRejectsMalformedAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)

	_, err = env.Attempts.Submit(ctx, studentID, quiz.ID, SubmitAttemptReq{
		AttemptID: started.AttemptID,
		Answers:   []SubmittedAnswer{answer("essay", "fine"), answer("capital", 7)},
	})
	var verr *util.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Issues, 1)
	// 位置指向提交的答案列表，而不是测验题目
	assert.Equal(t, "answers[1].answer", verr.Issues[0].Field)
	assert.Nil(t, verr.Issues[0].QuestionIndex)

	detail, err := env.Attempts.Get(ctx, started.AttemptID, studentID, model.Student)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, detail.Status, "attempt stays open after a rejected submission")
}

func TestSubmitChecksOwnershipAndQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := env.seedPath(t)
	quiz := env.seedQuiz(t, path, QuizPolicyReq{})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)

	_, err = env.Attempts.Submit(ctx, outsiderID, quiz.ID, SubmitAttemptReq{AttemptID: started.AttemptID})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = env.Attempts.Submit(ctx, studentID, "other-quiz", SubmitAttemptReq{AttemptID: started.AttemptID})
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)

	_, err = env.Attempts.Submit(ctx, studentID, quiz.ID, SubmitAttemptReq{AttemptID: "nope"})
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestSubmitEmptyAnswersScoresZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{PassingScorePercent: intPtr(0)})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)

	resp, err := env.Attempts.Submit(ctx, studentID, quiz.ID, SubmitAttemptReq{AttemptID: started.AttemptID})
	require.NoError(t, err)
	assert.Zero(t, resp.Score)
	assert.Zero(t, resp.Percentage)
	assert.True(t, resp.Passed, "a zero passing threshold passes everyone")
	assert.Empty(t, resp.Answers)
}

func submitMixed(t *testing.T, env *testEnv, quiz *model.Quiz) string {
	t.Helper()
	ctx := context.Background()
	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	_, err = env.Attempts.Submit(ctx, studentID, quiz.ID, SubmitAttemptReq{
		AttemptID: started.AttemptID,
		Answers: []SubmittedAnswer{
			answer("capital", "Paris"),
			answer("essay", "An essay."),
			answer("pi", 3.16),
		},
	})
	require.NoError(t, err)
	return started.AttemptID
}

func TestRegradeRecomputesFromAllAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})
	attemptID := submitMixed(t, env, quiz)

	feedback := "Clear and well argued."
	graded, err := env.Attempts.Regrade(ctx, instructorID, attemptID, RegradeReq{
		Grades: []GradePatch{{QuestionID: "essay", PointsEarned: 5, Feedback: &feedback}},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, graded.TotalScore)
	assert.Equal(t, 70, graded.Percentage)
	assert.True(t, graded.Passed)
	assert.Equal(t, model.AttemptCompleted, graded.Status)

	essay, ok := graded.AnswerFor("essay")
	require.True(t, ok)
	assert.False(t, essay.NeedsReview)
	assert.Equal(t, feedback, essay.Feedback)
	require.NotNil(t, essay.GradedBy)
	assert.Equal(t, instructorID, *essay.GradedBy)

	// 第二次评分只覆盖本题，总分仍从全部作答重算
	graded, err = env.Attempts.Regrade(ctx, instructorID, attemptID, RegradeReq{
		Grades: []GradePatch{{QuestionID: "essay", PointsEarned: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, graded.TotalScore)
	assert.False(t, graded.Passed)
	essay, _ = graded.AnswerFor("essay")
	assert.Equal(t, feedback, essay.Feedback, "feedback is kept when not supplied")
}

func TestRegradeTwoEssays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{Questions: []model.Question{
		{ID: "e1", Text: "Essay one", Type: model.LongAnswer, Guidelines: "g", Points: 5},
		{ID: "e2", Text: "Essay two", Type: model.LongAnswer, Guidelines: "g", Points: 5},
	}})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	resp, err := env.Attempts.Submit(ctx, studentID, quiz.ID, SubmitAttemptReq{
		AttemptID: started.AttemptID,
		Answers:   []SubmittedAnswer{answer("e1", "a"), answer("e2", "b")},
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Score)

	graded, err := env.Attempts.Regrade(ctx, instructorID, started.AttemptID, RegradeReq{
		Grades: []GradePatch{{QuestionID: "e1", PointsEarned: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, graded.TotalScore)

	graded, err = env.Attempts.Regrade(ctx, instructorID, started.AttemptID, RegradeReq{
		Grades: []GradePatch{{QuestionID: "e2", PointsEarned: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, graded.TotalScore)
	assert.Equal(t, 100, graded.Percentage)
}

func TestRegradeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})
	attemptID := submitMixed(t, env, quiz)

	_, err := env.Attempts.Regrade(ctx, instructorID, attemptID, RegradeReq{
		Grades: []GradePatch{
			{QuestionID: "essay", PointsEarned: 6},
			{QuestionID: "ghost", PointsEarned: 1},
			{QuestionID: "capital", PointsEarned: -1},
		},
	})
	var verr *util.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Issues, 3)
	assert.Equal(t, "grades[0].pointsEarned", verr.Issues[0].Field)
	assert.Equal(t, "grades[1].questionId", verr.Issues[1].Field)
	assert.Equal(t, "grades[2].pointsEarned", verr.Issues[2].Field)
	for _, issue := range verr.Issues {
		assert.Nil(t, issue.QuestionIndex)
	}

	detail, err := env.Attempts.Get(ctx, attemptID, instructorID, model.Instructor)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.TotalScore, "nothing is applied when any patch is invalid")

	_, err = env.Attempts.Regrade(ctx, outsiderID, attemptID, RegradeReq{
		Grades: []GradePatch{{QuestionID: "essay", PointsEarned: 1}},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestRegradeRequiresCompletedAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)

	_, err = env.Attempts.Regrade(ctx, instructorID, started.AttemptID, RegradeReq{
		Grades: []GradePatch{{QuestionID: "essay", PointsEarned: 1}},
	})
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestAttemptKeepsMaxScoreAfterQuizEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})
	attemptID := submitMixed(t, env, quiz)

	_, err := env.Quizzes.Update(ctx, instructorID, quiz.ID, UpdateQuizReq{QuizPolicyReq{
		Title:     "Checkpoint v2",
		Questions: mixedQuestions()[:1],
	}})
	require.NoError(t, err)

	detail, err := env.Attempts.Get(ctx, attemptID, studentID, model.Student)
	require.NoError(t, err)
	assert.Equal(t, 10, detail.MaxScore)

	// 被删除题目的作答不能再评分
	_, err = env.Attempts.Regrade(ctx, instructorID, attemptID, RegradeReq{
		Grades: []GradePatch{{QuestionID: "essay", PointsEarned: 1}},
	})
	var verr *util.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestQuizEditBetweenStartAndSubmitUsesStartedPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	policy := QuizPolicyReq{AllowRetakes: true, MaxAttempts: 2}
	quiz := env.seedQuiz(t, env.seedPath(t), policy)

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)

	edited := mixedQuestions()
	edited[0].Points = 10
	edited = append(edited, model.Question{
		ID:      "bonus",
		Text:    "Largest planet?",
		Type:    model.SingleChoice,
		Options: []model.Option{{Text: "Mars"}, {Text: "Jupiter", IsCorrect: true}},
		Points:  4,
	})
	policy.Title = "Checkpoint v2"
	policy.Questions = edited
	updated, err := env.Quizzes.Update(ctx, instructorID, quiz.ID, UpdateQuizReq{policy})
	require.NoError(t, err)
	require.Equal(t, 22, updated.TotalPoints)

	resp, err := env.Attempts.Submit(ctx, studentID, quiz.ID, SubmitAttemptReq{
		AttemptID: started.AttemptID,
		Answers: []SubmittedAnswer{
			answer("capital", "Paris"),
			answer("bonus", "Jupiter"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Score, "points come from the quiz as it was when the attempt started")
	assert.Equal(t, 10, resp.MaxScore)
	assert.Equal(t, 20, resp.Percentage)
	require.Len(t, resp.Answers, 1, "questions added after start are not graded")
	assert.Equal(t, "capital", resp.Answers[0].QuestionID)

	_, err = env.Attempts.Regrade(ctx, instructorID, started.AttemptID, RegradeReq{
		Grades: []GradePatch{{QuestionID: "capital", PointsEarned: 3}},
	})
	var verr *util.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Issues[0].Reason, "between 0 and 2")

	// 新开始的作答使用新分值
	next, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	detail, err := env.Attempts.Get(ctx, next.AttemptID, studentID, model.Student)
	require.NoError(t, err)
	assert.Equal(t, 22, detail.MaxScore)
}

func TestGetAttemptVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	started, err := env.Attempts.Start(ctx, studentID, quiz.ID)
	require.NoError(t, err)

	detail, err := env.Attempts.Get(ctx, started.AttemptID, studentID, model.Student)
	require.NoError(t, err)
	assert.Nil(t, detail.Explanations, "explanations are hidden until completion")

	_, err = env.Attempts.Get(ctx, started.AttemptID, outsiderID, model.Student)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = env.Attempts.Get(ctx, started.AttemptID, outsiderID, model.Instructor)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	mine, err := env.Attempts.ListMine(ctx, studentID, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
