package registryerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_MatchesWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("tool %q not found: %w", "x", ErrNotFound)
	assert.Equal(t, KindNotFound, Classify(err))
}

func TestClassify_UnrecognizedErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, Classify(errors.New("boom")))
}

func TestClassify_NilIsEmpty(t *testing.T) {
	assert.Equal(t, Kind(""), Classify(nil))
}

func TestClassify_JoinedErrorsStillResolve(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", errors.Join(ErrStorage, errors.New("disk full")))
	assert.Equal(t, KindStorage, Classify(err))
}
