package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomHairstyleShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		prompt := RandomHairstyle()
		assert.True(t, strings.HasPrefix(prompt, "change hairstyle to "), prompt)
		assert.True(t, strings.HasSuffix(prompt, "preserve original face and facial features exactly"), prompt)
		seen[prompt] = true
	}
	assert.Greater(t, len(seen), 1, "prompts should vary")
}
