package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maric-labs/registrytools/internal/model"
)

func TestLazySemantic_DefersConstruction(t *testing.T) {
	constructed := 0
	lazy := NewLazySemantic(func() *SemanticAlgorithm {
		constructed++
		return NewSemantic("cpu", zap.NewNop().Sugar())
	})

	assert.Equal(t, 0, constructed)
	assert.Equal(t, model.SearchMethodSemantic, lazy.Method())
	assert.Equal(t, 0, constructed, "Method must not trigger construction")

	require.NoError(t, lazy.Index(sampleTools()))
	assert.Equal(t, 1, constructed)

	_, err := lazy.Search(context.Background(), "pull request", sampleTools(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, constructed, "construction happens at most once")
}

func TestLazySemantic_UnloadBeforeConstructIsNoop(t *testing.T) {
	lazy := NewLazySemantic(func() *SemanticAlgorithm {
		t.Fatal("construct must not be called")
		return nil
	})
	assert.NoError(t, lazy.Unload())
}
