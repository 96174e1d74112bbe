package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeUserAgent(t *testing.T) {
	t.Run("desktop browser", func(t *testing.T) {
		c := SummarizeUserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36")
		assert.Equal(t, "chrome", c.Name)
		assert.Equal(t, "120", c.Major)
		assert.Equal(t, "linux", c.OS)
		assert.False(t, c.Mobile)
		assert.False(t, c.Bot)
		assert.Equal(t, "chrome/120 (linux)", c.String())
	})

	t.Run("crawler", func(t *testing.T) {
		c := SummarizeUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
		assert.True(t, c.Bot)
	})

	t.Run("empty header", func(t *testing.T) {
		c := SummarizeUserAgent("")
		assert.Equal(t, "unknown/unknown (unknown)", c.String())
	})
}
