package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhitelistContains(t *testing.T) {
	w := NewWhitelist([]string{"12345", "@Founder", "beta_tester", " ", ""})

	assert.True(t, w.Contains(12345, ""))
	assert.False(t, w.Contains(54321, ""))

	// Handles match case-insensitively, with or without the @.
	assert.True(t, w.Contains(0, "founder"))
	assert.True(t, w.Contains(0, "@FOUNDER"))
	assert.True(t, w.Contains(0, "Beta_Tester"))
	assert.False(t, w.Contains(0, "stranger"))
}

func TestWhitelistEmpty(t *testing.T) {
	assert.True(t, NewWhitelist(nil).Empty())
	assert.True(t, NewWhitelist([]string{"", "  "}).Empty())
	assert.False(t, NewWhitelist([]string{"1"}).Empty())
}
