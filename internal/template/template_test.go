package template_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mailjob/internal/template"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"user.register.yaml": {Data: []byte(`subject: "Welcome {{.email}}"
text: |
  Hello {{.email}}, thanks for registering.
html: |
  <p>Hello {{.email}}</p>
`)},
		"user.reset.yaml":  {Data: []byte("subject: Reset\ntext: \"{{.email}} {{.token}}\"\n")},
		"broken.yaml":      {Data: []byte("subject: [unterminated\n")},
		"nobody.yaml":      {Data: []byte("subject: Hi\n")},
		"bad.syntax.yaml":  {Data: []byte("subject: \"{{.email\"\ntext: body\n")},
		"README.md":        {Data: []byte("not a template")},
		"nested/dir.yaml":  {Data: []byte("subject: x\ntext: y\n")},
	}
}

func TestFSStore_Load(t *testing.T) {
	store := template.NewFSStore(testFS())
	ctx := context.Background()

	t.Run("existing", func(t *testing.T) {
		c, err := store.Load(ctx, "user.register")
		require.NoError(t, err)
		assert.Equal(t, "user.register", c.Key)
		assert.Equal(t, "Welcome {{.email}}", c.Subject)
		assert.Contains(t, c.Text, "thanks for registering")
		assert.Contains(t, c.HTML, "<p>")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.Load(ctx, "invalid.type")
		require.Error(t, err)
		assert.True(t, errors.Is(err, template.ErrTemplateNotFound))
	})

	t.Run("path traversal is not found", func(t *testing.T) {
		for _, key := range []string{"../etc/passwd", "nested/dir", "", "a..b", ".hidden"} {
			_, err := store.Load(ctx, key)
			assert.True(t, errors.Is(err, template.ErrTemplateNotFound), key)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := store.Load(ctx, "broken")
		require.Error(t, err)
		assert.True(t, errors.Is(err, template.ErrMalformedTemplate))
		assert.False(t, errors.Is(err, template.ErrTemplateNotFound))
	})

	t.Run("missing body", func(t *testing.T) {
		_, err := store.Load(ctx, "nobody")
		assert.True(t, errors.Is(err, template.ErrMalformedTemplate))
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Load(cctx, "user.register")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFSStore_Keys(t *testing.T) {
	keys, err := template.NewFSStore(testFS()).Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"bad.syntax", "broken", "nobody", "user.register", "user.reset"}, keys)
}

func TestResolver(t *testing.T) {
	r := template.NewResolver(template.NewFSStore(testFS()))
	ctx := context.Background()

	c, err := r.Resolve(ctx, "user.register")
	require.NoError(t, err)
	assert.Equal(t, "user.register", c.Key)

	// Repeated resolution returns fresh content each time.
	c2, err := r.Resolve(ctx, "user.register")
	require.NoError(t, err)
	assert.Equal(t, c, c2)
	assert.NotSame(t, c, c2)

	_, err = r.Resolve(ctx, "")
	assert.True(t, errors.Is(err, template.ErrTemplateNotFound))

	_, err = r.Resolve(ctx, "invalid.type")
	assert.True(t, errors.Is(err, template.ErrTemplateNotFound))
}

func TestRenderer(t *testing.T) {
	store := template.NewFSStore(testFS())
	ctx := context.Background()
	var renderer template.Renderer

	t.Run("renders all parts", func(t *testing.T) {
		c, err := store.Load(ctx, "user.register")
		require.NoError(t, err)

		out, err := renderer.Render(c, map[string]any{"email": "a@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "Welcome a@example.com", out.Subject)
		assert.Equal(t, "Hello a@example.com, thanks for registering.\n", out.Text)
		assert.Equal(t, "<p>Hello a@example.com</p>\n", out.HTML)
	})

	t.Run("html is escaped", func(t *testing.T) {
		c := &template.Content{Key: "k", Subject: "s", HTML: "<b>{{.name}}</b>"}
		out, err := renderer.Render(c, map[string]any{"name": "<script>"})
		require.NoError(t, err)
		assert.Equal(t, "<b>&lt;script&gt;</b>", out.HTML)
		assert.Empty(t, out.Text)
	})

	t.Run("missing payload field", func(t *testing.T) {
		c, err := store.Load(ctx, "user.reset")
		require.NoError(t, err)

		_, err = renderer.Render(c, map[string]any{"email": "a@example.com"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, template.ErrRender))
	})

	t.Run("syntax error", func(t *testing.T) {
		c, err := store.Load(ctx, "bad.syntax")
		require.NoError(t, err)

		_, err = renderer.Render(c, map[string]any{"email": "a@example.com"})
		assert.True(t, errors.Is(err, template.ErrRender))
	})
}
