package service

import (
	"context"
	"testing"
	"time"

	"learnpath_backend/internal/config"
	"learnpath_backend/internal/model"
	"learnpath_backend/internal/repository"
	"learnpath_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	instructorID uint = 1
	studentID    uint = 2
	outsiderID   uint = 3
)

type testEnv struct {
	DB *gorm.DB

	Quizzes    *QuizService
	Attempts   *AttemptService
	Paths      *LearningPathService
	Classrooms *ClassroomService
	Progress   *ProgressService

	PathRepo    *repository.LearningPathRepository
	PendingRepo *repository.PendingProjectionRepository

	now time.Time
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, "test")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openTestDB(t)

	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewQuizAttemptRepository(db)
	pathRepo := repository.NewLearningPathRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	pendingRepo := repository.NewPendingProjectionRepository(db)

	leaderboard := NewLeaderboardService(nil)
	progress := NewProgressService(pathRepo, pendingRepo)

	env := &testEnv{
		DB:          db,
		Quizzes:     NewQuizService(quizRepo, attemptRepo, pathRepo, classroomRepo, leaderboard),
		Attempts:    NewAttemptService(quizRepo, attemptRepo, classroomRepo, progress, leaderboard),
		Paths:       NewLearningPathService(pathRepo, classroomRepo),
		Classrooms:  NewClassroomService(classroomRepo),
		Progress:    progress,
		PathRepo:    pathRepo,
		PendingRepo: pendingRepo,
		now:         time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	env.Attempts.Now = clock
	progress.Now = clock
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

// seedPath 建一个班级（学生已加入）和一条两步的学习路径
func (e *testEnv) seedPath(t *testing.T) *model.LearningPath {
	t.Helper()
	ctx := context.Background()

	classroom, err := e.Classrooms.Create(ctx, instructorID, CreateClassroomReq{Title: "Civics 101"})
	require.NoError(t, err)
	require.NoError(t, e.Classrooms.Enroll(ctx, instructorID, classroom.ID, studentID))

	path, err := e.Paths.Create(ctx, instructorID, CreateLearningPathReq{
		ClassroomID: classroom.ID,
		Title:       "Government",
		Steps: []LearningPathStepReq{
			{Title: "Intro"},
			{Title: "Federalism"},
		},
	})
	require.NoError(t, err)
	require.Len(t, path.Steps, 2)
	return path
}

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func mixedQuestions() []model.Question {
	return []model.Question{
		{
			ID:   "capital",
			Text: "Capital of France?",
			Type: model.SingleChoice,
			Options: []model.Option{
				{Text: "London"},
				{Text: "Paris", IsCorrect: true},
			},
			Points:      2,
			Explanation: "Paris has been the capital since 987.",
		},
		{
			ID:         "essay",
			Text:       "Explain federalism",
			Type:       model.LongAnswer,
			Guidelines: "Two paragraphs",
			Points:     5,
		},
		{
			ID:               "pi",
			Text:             "Value of pi to two places",
			Type:             model.Numeric,
			NumericAnswer:    floatPtr(3.14),
			NumericTolerance: 0.01,
			Points:           3,
		},
	}
}

func (e *testEnv) seedQuiz(t *testing.T, path *model.LearningPath, policy QuizPolicyReq) *model.Quiz {
	t.Helper()
	if policy.Title == "" {
		policy.Title = "Checkpoint"
	}
	if policy.Questions == nil {
		policy.Questions = mixedQuestions()
	}
	quiz, err := e.Quizzes.Create(context.Background(), instructorID, CreateQuizReq{
		LearningPathID: path.ID,
		StepID:         path.Steps[0].ID,
		QuizPolicyReq:  policy,
	})
	require.NoError(t, err)
	return quiz
}
