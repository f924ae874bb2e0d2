package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIconsAreEmbeddedAndCached(t *testing.T) {
	for _, name := range []string{IconIdle, IconRunning} {
		first, err := Icon(name)
		require.NoError(t, err)
		assert.Equal(t, name, first.Name())
		assert.Contains(t, string(first.Content()), "<svg")

		second := MustIcon(name)
		assert.Same(t, first, second)
	}
}

func TestMissingIcon(t *testing.T) {
	_, err := Icon("missing.svg")
	assert.Error(t, err)
	assert.Panics(t, func() { MustIcon("missing.svg") })
}
