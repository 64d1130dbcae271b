package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, Internal))
}

func TestWrap_PreservesExistingAppError(t *testing.T) {
	original := New(NotFound, "missing row")
	wrapped := Wrap(original, Internal)
	assert.Same(t, original, wrapped)
	assert.Equal(t, NotFound, wrapped.Code)
}

func TestWrap_PlainErrorGetsNewCode(t *testing.T) {
	wrapped := Wrap(stderrors.New("boom"), DatabaseError)
	assert.Equal(t, DatabaseError, wrapped.Code)
	assert.Equal(t, "boom", wrapped.Message)
}

func TestIsCode_MatchesOnlyWrappedAppErrors(t *testing.T) {
	appErr := New(Conflict, "dup key")
	assert.True(t, IsCode(appErr, Conflict))
	assert.False(t, IsCode(appErr, NotFound))
	assert.False(t, IsCode(stderrors.New("plain"), Conflict))
}

func TestRetryable_OnlyResourceExhaustedAndDatabaseError(t *testing.T) {
	assert.True(t, New(ResourceExhausted, "x").Retryable())
	assert.True(t, New(DatabaseError, "x").Retryable())
	assert.False(t, New(Internal, "x").Retryable())
	assert.False(t, New(Conflict, "x").Retryable())
}

func TestError_FormatsCodeAndMessage(t *testing.T) {
	err := New(InputMalformed, "bad json")
	assert.Equal(t, "INPUT_MALFORMED: bad json", err.Error())
}
