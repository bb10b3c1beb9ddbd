package citest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors(t *testing.T) {
	cause := errors.New("config missing")
	runtimeErr := NewRuntimeError(cause)
	assert.True(t, IsRuntimeError(runtimeErr))
	assert.True(t, IsRuntimeError(fmt.Errorf("wrapped: %w", runtimeErr)))
	assert.ErrorIs(t, runtimeErr, cause)
	assert.False(t, IsTestFailureError(runtimeErr))
	assert.Equal(t, "runtime error: config missing", runtimeErr.Error())

	failure := NewTestFailureError("2 failed batches")
	assert.True(t, IsTestFailureError(failure))
	assert.False(t, IsRuntimeError(failure))
	assert.Equal(t, "test failure: 2 failed batches", failure.Error())

	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsTestFailureError(nil))
}
