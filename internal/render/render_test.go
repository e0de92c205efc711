package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_Render(t *testing.T) {
	r := New()

	t.Run("tags substituted", func(t *testing.T) {
		out := r.Render("Hi {name}, your code is {code}", map[string]string{
			"name": "Alice",
			"code": "4821",
		})
		assert.Equal(t, "Hi Alice, your code is 4821", out)
	})

	t.Run("unknown tags left in place", func(t *testing.T) {
		out := r.Render("Hi {name}, see {link}", map[string]string{"name": "Bob"})
		assert.Equal(t, "Hi Bob, see {link}", out)
	})

	t.Run("no merge data", func(t *testing.T) {
		assert.Equal(t, "Hi {name}", r.Render("Hi {name}", nil))
	})

	t.Run("template without tags", func(t *testing.T) {
		assert.Equal(t, "plain text", r.Render("plain text", map[string]string{"name": "Eve"}))
	})

	t.Run("repeated tag", func(t *testing.T) {
		out := r.Render("{otp} is your code. Never share {otp}.", map[string]string{"otp": "112233"})
		assert.Equal(t, "112233 is your code. Never share 112233.", out)
	})
}
