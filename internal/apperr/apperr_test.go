package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappersPreserveClass(t *testing.T) {
	err := Transient("qdrant search failed: %v", "deadline exceeded")
	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestClassSurvivesFurtherWrapping(t *testing.T) {
	inner := Permanent("k must be positive, got %d", -1)
	outer := fmt.Errorf("recommend: %w", inner)
	assert.True(t, IsPermanent(outer))
	assert.True(t, errors.Is(outer, ErrPermanentInput))
}

func TestModelUnavailable(t *testing.T) {
	err := ModelUnavailable("model server unreachable after %d retries", 3)
	assert.True(t, IsModelUnavailable(err))
	assert.False(t, IsTransient(err))
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrIndexBuild, ErrSyncApply))
	assert.False(t, errors.Is(ErrTransientBackend, ErrModelUnavailable))
}
