// ABOUTME: Audio output interface tests
// ABOUTME: Verifies the oto implementation and volume helpers
package output

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestOtoNewPlayerBeforeOpen(t *testing.T) {
	out := NewOto(nil)

	_, err := out.NewPlayer(io.NopCloser(strings.NewReader("")))
	assert.EqualError(t, err, "output not initialized")
	assert.NoError(t, out.Close())
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0, ClampVolume(-5))
	assert.Equal(t, 42, ClampVolume(42))
	assert.Equal(t, 100, ClampVolume(150))
}

func TestGain(t *testing.T) {
	assert.InDelta(t, 1.0, Gain(100, false), 1e-9)
	assert.InDelta(t, 0.5, Gain(50, false), 1e-9)
	assert.InDelta(t, 0.0, Gain(80, true), 1e-9)
	assert.InDelta(t, 1.0, Gain(200, false), 1e-9)
}
