package service

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// LeaderboardService 每个测验一个有序集合，成员为学生 ID，分数为其最佳百分比。
// Redis 未启用时所有方法都是空操作。
type LeaderboardService struct {
	Redis *redis.Client
}

func NewLeaderboardService(rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{Redis: rdb}
}

type LeaderboardEntry struct {
	Rank       int  `json:"rank"`
	StudentID  uint `json:"studentId"`
	Percentage int  `json:"percentage"`
}

func leaderboardKey(quizID string) string {
	return "leaderboard:quiz:" + quizID
}

func (s *LeaderboardService) enabled() bool {
	return s != nil && s.Redis != nil
}

// Set 写入学生当前最佳成绩；重评分可能降低最佳成绩，因此直接覆盖
func (s *LeaderboardService) Set(ctx context.Context, quizID string, studentID uint, percentage int) error {
	if !s.enabled() {
		return nil
	}
	return s.Redis.ZAdd(ctx, leaderboardKey(quizID), &redis.Z{
		Score:  float64(percentage),
		Member: strconv.FormatUint(uint64(studentID), 10),
	}).Err()
}

func (s *LeaderboardService) Top(ctx context.Context, quizID string, n int) ([]LeaderboardEntry, error) {
	entries := []LeaderboardEntry{}
	if !s.enabled() {
		return entries, nil
	}
	if n <= 0 {
		n = 10
	}

	results, err := s.Redis.ZRevRangeWithScores(ctx, leaderboardKey(quizID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	for i, z := range results {
		member, _ := z.Member.(string)
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			StudentID:  uint(id),
			Percentage: int(z.Score),
		})
	}
	return entries, nil
}

func (s *LeaderboardService) Clear(ctx context.Context, quizID string) error {
	if !s.enabled() {
		return nil
	}
	return s.Redis.Del(ctx, leaderboardKey(quizID)).Err()
}
