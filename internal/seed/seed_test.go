package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTools_HasEnoughToolsAcrossExpectedCategories(t *testing.T) {
	tools := Tools()
	assert.GreaterOrEqual(t, len(tools), 20)

	categories := make(map[string]bool)
	names := make(map[string]bool)
	for _, tool := range tools {
		categories[tool.Category] = true
		assert.False(t, names[tool.Name], "duplicate tool name %s", tool.Name)
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
		assert.True(t, tool.DeferLoading)
	}

	for _, want := range []string{"github", "aws", "slack"} {
		assert.True(t, categories[want], "expected category %s in seed set", want)
	}
}
