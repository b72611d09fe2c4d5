package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mailjob/internal/config"
)

func testConfig(t *testing.T, templates map[string]string) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	for name, body := range templates {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return &config.AppConfig{
		TemplatesDir:   dir,
		Transport:      config.TransportLog,
		RecipientField: "email",
		LogLevel:       "info",
	}
}

const registerTemplate = `subject: "Welcome {{.name}}"
text: "Hi {{.name}}, your login is {{.email}}."
`

func runCmd(t *testing.T, cfg *config.AppConfig, args ...string) (string, error) {
	t.Helper()
	root := rootCmdFor(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSend_DryRun(t *testing.T) {
	cfg := testConfig(t, map[string]string{"user.register.yaml": registerTemplate})

	out, err := runCmd(t, cfg, "send", "user.register", "--dry-run",
		"--payload", `{"email":"ada@example.com","name":"Ada"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome Ada")
	assert.Contains(t, out, "Hi Ada, your login is ada@example.com.")
}

func TestSend_LogTransport(t *testing.T) {
	cfg := testConfig(t, map[string]string{"user.register.yaml": registerTemplate})

	out, err := runCmd(t, cfg, "send", "user.register",
		"--payload", `{"email":"ada@example.com","name":"Ada"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "ada@example.com")
}

func TestSend_Failures(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantKind string
	}{
		{
			name:     "unknown event type",
			args:     []string{"send", "invalid.type", "--payload", `{"email":"a@example.com"}`},
			wantKind: "template_not_found",
		},
		{
			name:     "missing template field",
			args:     []string{"send", "user.register", "--payload", `{"email":"a@example.com"}`},
			wantKind: "render_error",
		},
		{
			name:     "payload not an object",
			args:     []string{"send", "user.register", "--payload", `[1,2,3]`},
			wantKind: "malformed_message",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, map[string]string{"user.register.yaml": registerTemplate})
			out, err := runCmd(t, cfg, tt.args...)
			require.Error(t, err)
			assert.Contains(t, out, tt.wantKind)
		})
	}
}

func TestTemplates(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"user.register.yaml": registerTemplate,
		"user.broken.yaml":   "subject: only a subject\n",
		"README.md":          "not a template",
	})

	out, err := runCmd(t, cfg, "templates")
	require.Error(t, err)
	assert.Contains(t, out, "user.register")
	assert.Contains(t, out, "Welcome {{.name}}")
	assert.Contains(t, out, "user.broken")
	assert.NotContains(t, out, "README")
}

func TestTemplates_Empty(t *testing.T) {
	cfg := testConfig(t, nil)

	out, err := runCmd(t, cfg, "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "no templates")
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, testConfig(t, nil), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mailjob dev")
}
