package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeShape, "override is 3x3").WithDetail("want 4x4")
	assert.Equal(t, "[SHAPE] override is 3x3: want 4x4", err.Error())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "noop"))
}

func TestWrap_PreservesCodeWhenUnknown(t *testing.T) {
	inner := Range("history 4 + horizon 2 exceeds 5 bins")
	outer := Wrap(inner, CodeUnknown, "temporal assembly failed")
	assert.Equal(t, CodeRange, outer.Code)
	assert.True(t, IsCode(outer, CodeRange))
}

func TestIsCode_ThroughFmtWrap(t *testing.T) {
	inner := Config("unknown scaler %q", "robust")
	wrapped := fmt.Errorf("failed to assemble: %w", inner)
	assert.True(t, IsCode(wrapped, CodeConfig))
	assert.False(t, IsCode(wrapped, CodeShape))
}

func TestIsCode_NestedAppErrors(t *testing.T) {
	err := Wrap(Shape("bad"), CodeInternal, "outer")
	assert.True(t, IsCode(err, CodeInternal))
	assert.True(t, IsCode(err, CodeShape))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(io.EOF))
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("x: %w", NotFound("run %s", "abc"))))
}

func TestUnwrap_StandardIs(t *testing.T) {
	err := Wrap(io.EOF, CodeBadRequest, "read events")
	assert.True(t, Is(err, io.EOF))
}
