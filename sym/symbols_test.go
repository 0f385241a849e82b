package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForCommand(t *testing.T) {
	assert.Equal(t, Build, ForCommand("build"))
	assert.Equal(t, Ack, ForCommand("ack"))
	assert.Equal(t, "", ForCommand("unknown"))
}

func TestGlyphsAreUnique(t *testing.T) {
	seen := make(map[string]string)
	for _, command := range Commands() {
		glyph := ForCommand(command)
		assert.NotEmpty(t, glyph, "command %s has no glyph", command)
		if prev, dup := seen[glyph]; dup {
			t.Errorf("glyph %s shared by %s and %s", glyph, prev, command)
		}
		seen[glyph] = command
	}
}
