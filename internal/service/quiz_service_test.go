package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"learnpath_backend/internal/model"
	"learnpath_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuizAppliesDefaultsAndLinksStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := env.seedPath(t)

	quiz := env.seedQuiz(t, path, QuizPolicyReq{})
	assert.Equal(t, 30, quiz.TimeLimitMinutes)
	assert.Equal(t, 60, quiz.PassingScorePercent)
	assert.Equal(t, 1, quiz.MaxAttempts)
	assert.Equal(t, 10, quiz.TotalPoints)
	assert.Equal(t, path.ClassroomID, quiz.ClassroomID)

	step, err := env.PathRepo.FindStep(ctx, path.ID, path.Steps[0].ID)
	require.NoError(t, err)
	assert.True(t, step.HasQuiz)
	require.NotNil(t, step.QuizID)
	assert.Equal(t, quiz.ID, *step.QuizID)

	_, err = env.Quizzes.Create(ctx, instructorID, CreateQuizReq{
		LearningPathID: path.ID,
		StepID:         path.Steps[0].ID,
		QuizPolicyReq:  QuizPolicyReq{Title: "Again", Questions: mixedQuestions()},
	})
	assert.ErrorIs(t, err, util.ErrInvalidState, "a step holds at most one quiz")
}

func TestCreateQuizReportsEveryIssue(t *testing.T) {
	env := newTestEnv(t)
	path := env.seedPath(t)

	_, err := env.Quizzes.Create(context.Background(), instructorID, CreateQuizReq{
		LearningPathID: path.ID,
		StepID:         path.Steps[1].ID,
		QuizPolicyReq: QuizPolicyReq{
			Title:            "Broken",
			TimeLimitMinutes: 500,
			Questions: []model.Question{
				{Text: "pick", Type: model.SingleChoice, Options: []model.Option{{Text: "a"}, {Text: "b"}}},
				{Text: "essay", Type: model.LongAnswer},
			},
		},
	})
	var verr *util.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Issues, 3)

	step, err := env.PathRepo.FindStep(context.Background(), path.ID, path.Steps[1].ID)
	require.NoError(t, err)
	assert.False(t, step.HasQuiz)
}

func TestCreateQuizOwnershipAndStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := env.seedPath(t)

	_, err := env.Quizzes.Create(ctx, outsiderID, CreateQuizReq{
		LearningPathID: path.ID,
		StepID:         path.Steps[0].ID,
		QuizPolicyReq:  QuizPolicyReq{Title: "x", Questions: mixedQuestions()},
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = env.Quizzes.Create(ctx, instructorID, CreateQuizReq{
		LearningPathID: path.ID,
		StepID:         9999,
		QuizPolicyReq:  QuizPolicyReq{Title: "x", Questions: mixedQuestions()},
	})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestDeleteQuizClearsStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := env.seedPath(t)
	quiz := env.seedQuiz(t, path, QuizPolicyReq{})

	assert.ErrorIs(t, env.Quizzes.Delete(ctx, outsiderID, quiz.ID), util.ErrPermissionDenied)
	require.NoError(t, env.Quizzes.Delete(ctx, instructorID, quiz.ID))

	step, err := env.PathRepo.FindStep(ctx, path.ID, path.Steps[0].ID)
	require.NoError(t, err)
	assert.False(t, step.HasQuiz)
	assert.Nil(t, step.QuizID)

	_, err = env.Quizzes.Get(ctx, quiz.ID, instructorID, model.Instructor)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	// 删除后步骤可以重新挂测验
	env.seedQuiz(t, path, QuizPolicyReq{})
}

func TestGetQuizHidesAnswersFromStudents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})

	full, err := env.Quizzes.Get(ctx, quiz.ID, instructorID, model.Instructor)
	require.NoError(t, err)
	assert.IsType(t, &model.Quiz{}, full)

	got, err := env.Quizzes.Get(ctx, quiz.ID, studentID, model.Student)
	require.NoError(t, err)
	view, ok := got.(*QuizView)
	require.True(t, ok)
	require.Len(t, view.Questions, 3)
	assert.Equal(t, "capital", view.Questions[0].ID)
	assert.Len(t, view.Questions[0].Options, 2)
	assert.Equal(t, 10, view.TotalPoints)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	for _, secret := range []string{"isCorrect", "correctAnswer", "numericAnswer", "explanation", "3.14"} {
		assert.NotContains(t, string(raw), secret)
	}

	_, err = env.Quizzes.Get(ctx, quiz.ID, outsiderID, model.Student)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestListAttemptsForOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, env.seedPath(t), QuizPolicyReq{})
	submitMixed(t, env, quiz)

	attempts, err := env.Quizzes.ListAttempts(ctx, instructorID, quiz.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, studentID, attempts[0].StudentID)

	_, err = env.Quizzes.ListAttempts(ctx, outsiderID, quiz.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	top, err := env.Quizzes.TopStudents(ctx, instructorID, quiz.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, top, "leaderboard is empty without redis")
}

func TestStudentViewCopiesQuestions(t *testing.T) {
	quiz := &model.Quiz{Title: "Checkpoint", Questions: mixedQuestions()}
	quiz.ID = "quiz-1"

	view, err := StudentView(quiz)
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)
	assert.Equal(t, "quiz-1", view.ID)
	assert.Equal(t, []string{"capital", "essay", "pi"},
		[]string{view.Questions[0].ID, view.Questions[1].ID, view.Questions[2].ID})
	assert.Equal(t, model.Numeric, view.Questions[2].Type)
	assert.Equal(t, 3, view.Questions[2].Points)

	empty, err := StudentView(&model.Quiz{})
	require.NoError(t, err)
	assert.NotNil(t, empty.Questions)
	assert.Empty(t, empty.Questions)
}
