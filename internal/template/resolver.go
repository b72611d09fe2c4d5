package template

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Resolver maps event types to template content. It resolves through the
// store on every call.
type Resolver struct {
	store Store
}

// NewResolver returns a Resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the template for eventType. A missing template yields an
// error matching ErrTemplateNotFound.
func (r *Resolver) Resolve(ctx context.Context, eventType string) (*Content, error) {
	if eventType == "" {
		return nil, errors.Wrap(ErrTemplateNotFound, "empty event type")
	}
	c, err := r.store.Load(ctx, eventType)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.Wrapf(ErrTemplateNotFound, "template %q", eventType)
	}
	return c, nil
}
