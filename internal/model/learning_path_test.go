package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeQuizResults(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []QuizResultEntry{
		{QuizID: "q1", AttemptID: "a1", Percentage: 40, RecordedAt: t0},
		{QuizID: "q1", AttemptID: "a2", Percentage: 90, Passed: true, RecordedAt: t0.Add(time.Hour)},
		{QuizID: "q2", AttemptID: "b1", Percentage: 70, Passed: true, RecordedAt: t0.Add(2 * time.Hour)},
		{QuizID: "q1", AttemptID: "a3", Percentage: 55, RecordedAt: t0.Add(3 * time.Hour)},
		// 重评分追加的记录不增加作答次数
		{QuizID: "q1", AttemptID: "a1", Percentage: 90, Passed: true, Source: ResultSourceRegrade, RecordedAt: t0.Add(4 * time.Hour)},
	}

	out := SummarizeQuizResults(entries)
	require.Len(t, out, 2)

	q1 := out[0]
	assert.Equal(t, "q1", q1.QuizID)
	assert.Equal(t, 3, q1.Attempts)
	assert.Equal(t, "a1", q1.Best.AttemptID, "ties on percentage go to the later entry")
	assert.Equal(t, ResultSourceRegrade, q1.Latest.Source)
	assert.True(t, q1.Passed)

	q2 := out[1]
	assert.Equal(t, 1, q2.Attempts)
	assert.Equal(t, 70, q2.Best.Percentage)
}

func TestSummarizeQuizResultsEmpty(t *testing.T) {
	assert.Empty(t, SummarizeQuizResults(nil))
}
