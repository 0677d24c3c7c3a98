package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessage(t *testing.T) {
	t.Run("short text stays whole", func(t *testing.T) {
		chunks := splitMessage("hello", 100)
		assert.Equal(t, []string{"hello"}, chunks)
	})

	t.Run("splits on line boundaries", func(t *testing.T) {
		text := strings.Repeat("0123456789\n", 100)
		chunks := splitMessage(text, 95)

		require.Greater(t, len(chunks), 1)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, len(chunk), 95)
			assert.False(t, strings.HasPrefix(chunk, "\n"))
		}
		assert.Equal(t, strings.ReplaceAll(text, "\n", ""), strings.ReplaceAll(strings.Join(chunks, ""), "\n", ""))
	})

	t.Run("hard-splits a single long line", func(t *testing.T) {
		text := strings.Repeat("a", 250)
		chunks := splitMessage(text, 100)

		require.Len(t, chunks, 3)
		assert.Equal(t, 100, len(chunks[0]))
		assert.Equal(t, 100, len(chunks[1]))
		assert.Equal(t, 50, len(chunks[2]))
	})
}
