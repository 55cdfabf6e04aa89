package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NewValidation("bad"), CodeValidation, http.StatusBadRequest},
		{NewNotFound("site", "x"), CodeNotFound, http.StatusNotFound},
		{NewInvalidState("transfer", "x", "approved", "decide"), CodeInvalidState, http.StatusConflict},
		{NewInsufficientStock("s", "30", "10"), CodeInsufficientStock, http.StatusUnprocessableEntity},
		{NewUnauthorized("decide transfer", "viewer"), CodeUnauthorized, http.StatusForbidden},
		{NewUnauthenticated("missing token"), CodeUnauthenticated, http.StatusUnauthorized},
		{NewInternal(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.status, StatusOf(tc.err))
		})
	}
}

func TestCodeSurvivesWrapping(t *testing.T) {
	base := NewInvalidState("attendance", "a1", "paid", "mark paid")
	wrapped := fmt.Errorf("mark batch: %w", base)

	assert.True(t, IsInvalidState(wrapped))
	assert.Equal(t, CodeInvalidState, Code(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "paid", appErr.Details["state"])
}

func TestCodeOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, Code(errors.New("db down")))
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("x")))
}

func TestInternalHidesCause(t *testing.T) {
	err := NewInternal(errors.New("password=secret"))
	assert.Equal(t, "Internal server error", err.Message)
	assert.ErrorContains(t, err, "password=secret")
	assert.NotContains(t, err.Message, "secret")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(NewFieldValidation("amount", "must be positive")))
	assert.Equal(t, KindInsufficientStock, KindOf(fmt.Errorf("approve: %w", NewInsufficientStock("s", "5", "1"))))
	assert.Equal(t, KindConflict, KindOf(NewLockNotObtained("transfer:1")))
	assert.Equal(t, KindConflict, KindOf(NewIdempotencyConflict("k")))
	assert.Equal(t, KindOperational, KindOf(errors.New("db down")))
}
