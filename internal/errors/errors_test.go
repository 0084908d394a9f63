package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatchesThroughWrapping(t *testing.T) {
	base := SingularDesign("linear_hba1c: design matrix has rank %d < %d", 4, 6)
	wrapped := fmt.Errorf("multivariate stage: %w", Wrap(base, "fit linear_hba1c"))

	assert.True(t, stderrors.Is(wrapped, ErrSingularDesign))
	assert.False(t, stderrors.Is(wrapped, ErrNonConvergence))
	assert.Equal(t, CodeSingularDesign, GetCode(wrapped))
}

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(FileNotFound("data.csv"), "load dataset")
	assert.Equal(t, CodeFileNotFound, GetCode(err))
	assert.Contains(t, err.Error(), "data.csv")
}

func TestWrapForeignError(t *testing.T) {
	err := Wrap(stderrors.New("boom"), "context")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
	assert.False(t, IsAppError(stderrors.New("plain")))
}
