package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnpath_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleServiceErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"permission", fmt.Errorf("%w: not the owner", ErrPermissionDenied), http.StatusForbidden},
		{"attempt limit", fmt.Errorf("%w: maximum of 2 attempts reached", ErrAttemptLimitExceeded), http.StatusConflict},
		{"already completed", fmt.Errorf("%w: %s", ErrInvalidState, ErrAttemptCompleted), http.StatusConflict},
		{"quiz missing", fmt.Errorf("%w: q1", ErrQuizNotFound), http.StatusNotFound},
		{"attempt missing", fmt.Errorf("%w: a1", ErrAttemptNotFound), http.StatusNotFound},
		{"generic missing", ErrNotFound, http.StatusNotFound},
		{"gorm missing", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			HandleServiceError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestHandleServiceErrorListsValidationIssues(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	index := 2
	verr := NewValidationError(
		model.FieldIssue{Field: "title", Reason: "must not be empty"},
		model.FieldIssue{QuestionIndex: &index, Field: "options", Reason: "at least 2 options are required"},
	)
	HandleServiceError(c, fmt.Errorf("create quiz: %w", verr))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Message string             `json:"message"`
		Errors  []model.FieldIssue `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 2)
	assert.Nil(t, resp.Errors[0].QuestionIndex)
	require.NotNil(t, resp.Errors[1].QuestionIndex)
	assert.Equal(t, 2, *resp.Errors[1].QuestionIndex)
	assert.Contains(t, resp.Message, "question 2: options")
}

func TestValidationErrorOrNil(t *testing.T) {
	var empty *ValidationError
	assert.NoError(t, empty.OrNil())
	assert.NoError(t, (&ValidationError{}).OrNil())

	v := &ValidationError{}
	v.Add(model.FieldIssue{Field: "x", Reason: "y"})
	assert.Error(t, v.OrNil())
}

func TestJWTRoundTrip(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	token, err := GenerateJWT(42, model.Instructor, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Instructor, claims.Role)

	_, err = ParseJWT(token, "another-secret")
	assert.Error(t, err)

	bad, err := GenerateJWT(42, model.UserRole("admin"), secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(bad, secret)
	assert.Error(t, err, "unknown roles are rejected")

	expired, err := GenerateJWT(42, model.Student, secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, secret)
	assert.Error(t, err)
}
