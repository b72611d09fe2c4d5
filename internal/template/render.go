package template

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/cockroachdb/errors"
)

// ErrRender reports a template that failed to parse or execute against a payload.
var ErrRender = errors.New("render failed")

// Rendered is template output ready for a transport.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer executes template content against payload data. It holds no state.
type Renderer struct{}

// Render renders every non-empty part of c. Fields referenced by the template
// must be present in payload.
func (Renderer) Render(c *Content, payload map[string]any) (*Rendered, error) {
	subject, err := renderText(c.Key+".subject", c.Subject, payload)
	if err != nil {
		return nil, err
	}
	out := &Rendered{Subject: subject}
	if c.Text != "" {
		if out.Text, err = renderText(c.Key+".text", c.Text, payload); err != nil {
			return nil, err
		}
	}
	if c.HTML != "" {
		if out.HTML, err = renderHTML(c.Key+".html", c.HTML, payload); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func renderText(name, src string, data map[string]any) (string, error) {
	t, err := texttemplate.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "parsing %s", name), ErrRender)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "executing %s", name), ErrRender)
	}
	return buf.String(), nil
}

func renderHTML(name, src string, data map[string]any) (string, error) {
	t, err := htmltemplate.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "parsing %s", name), ErrRender)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "executing %s", name), ErrRender)
	}
	return buf.String(), nil
}
