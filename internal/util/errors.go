package util

import (
	"errors"
	"strings"

	"learnpath_backend/internal/model"
)

var (
	ErrNotFound             = errors.New("resource not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	ErrInvalidState         = errors.New("invalid state")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptCompleted     = errors.New("attempt already completed")
)

// ValidationError 收集全部校验问题而不是遇到第一个就返回
type ValidationError struct {
	Issues []model.FieldIssue
}

func NewValidationError(issues ...model.FieldIssue) *ValidationError {
	return &ValidationError{Issues: issues}
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(issue model.FieldIssue) {
	e.Issues = append(e.Issues, issue)
}

// OrNil 没有问题时返回 nil，避免返回包着 nil 指针的 error
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrQuizNotFound) || errors.Is(err, ErrAttemptNotFound)
}
