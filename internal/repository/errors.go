package repository

import "errors"

var (
	// ErrStepUnavailable 步骤不存在、不属于该路径或已绑定测验
	ErrStepUnavailable = errors.New("step unavailable")
	// ErrAttemptLimit 有效作答次数已达上限
	ErrAttemptLimit = errors.New("attempt limit reached")
	// ErrAttemptNotInProgress 条件更新未命中：作答已不是进行中状态
	ErrAttemptNotInProgress = errors.New("attempt not in progress")
)
