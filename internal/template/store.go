// Package template resolves event types to mail templates and renders them
// against event payloads.
package template

import (
	"context"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const fileExt = ".yaml"

var (
	// ErrTemplateNotFound reports that the store holds no template for a key.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMalformedTemplate reports a template that exists but cannot be used.
	ErrMalformedTemplate = errors.New("malformed template")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

// Content is a template as stored: a subject line plus text and/or HTML bodies.
type Content struct {
	Key     string `yaml:"-" json:"key"`
	Subject string `yaml:"subject" json:"subject"`
	Text    string `yaml:"text" json:"text"`
	HTML    string `yaml:"html" json:"html"`
}

// Store loads template content by key.
type Store interface {
	Load(ctx context.Context, key string) (*Content, error)
}

// FSStore reads templates from <key>.yaml files in a filesystem.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore returns a store backed by fsys. Use os.DirFS for a directory on disk.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// Load reads and decodes the template stored under key.
func (s *FSStore) Load(ctx context.Context, key string) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !keyPattern.MatchString(key) {
		return nil, errors.Wrapf(ErrTemplateNotFound, "invalid template key %q", key)
	}

	raw, err := fs.ReadFile(s.fsys, key+fileExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrTemplateNotFound, "template %q", key)
		}
		return nil, errors.Wrapf(err, "reading template %q", key)
	}

	var c Content
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decoding template %q", key), ErrMalformedTemplate)
	}
	c.Key = key
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Keys lists the template keys available in the store, sorted.
func (s *FSStore) Keys() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, errors.Wrap(err, "listing templates")
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != fileExt {
			continue
		}
		key := strings.TrimSuffix(e.Name(), fileExt)
		if keyPattern.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Content) validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return errors.Wrapf(ErrMalformedTemplate, "template %q has no subject", c.Key)
	}
	if strings.TrimSpace(c.Text) == "" && strings.TrimSpace(c.HTML) == "" {
		return errors.Wrapf(ErrMalformedTemplate, "template %q has neither text nor html body", c.Key)
	}
	return nil
}
