package db

import (
	"context"
	"fmt"

	"ideagraph/semnet/internal/network"
)

// Resolve implements network.ObjectResolver.
func (d *DB) Resolve(ctx context.Context, ref network.ObjectRef) (*network.Object, error) {
	o, err := d.GetObject(ctx, ref.Type, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}
	if o == nil {
		return nil, fmt.Errorf("%s: %w", ref, network.ErrNotFound)
	}
	props := o.Properties()
	props["title"] = o.Title
	if o.Content != nil {
		props["content"] = *o.Content
	}
	obj := &network.Object{
		Ref:        network.ObjectRef{Type: o.Type, ID: o.ID},
		Title:      o.Title,
		Properties: props,
	}
	if o.Content != nil {
		obj.Content = *o.Content
	}
	return obj, nil
}

// Parents implements network.HierarchySource. An object has at most one
// parent; a dangling parent reference yields no relatives.
func (d *DB) Parents(ctx context.Context, ref network.ObjectRef) ([]network.Relative, error) {
	o, err := d.GetObject(ctx, ref.Type, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", ref, err)
	}
	if o == nil || o.ParentID == nil || o.ParentType == nil {
		return nil, nil
	}
	p, err := d.GetObject(ctx, *o.ParentType, *o.ParentID)
	if err != nil {
		return nil, fmt.Errorf("loading parent of %s: %w", ref, err)
	}
	if p == nil {
		return nil, nil
	}
	return []network.Relative{{
		Ref:   network.ObjectRef{Type: p.Type, ID: p.ID},
		Title: p.Title,
	}}, nil
}

// Children implements network.HierarchySource.
func (d *DB) Children(ctx context.Context, ref network.ObjectRef) ([]network.Relative, error) {
	children, err := d.ChildrenOf(ctx, ref.Type, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("loading children of %s: %w", ref, err)
	}
	out := make([]network.Relative, 0, len(children))
	for _, c := range children {
		out = append(out, network.Relative{
			Ref:             network.ObjectRef{Type: c.Type, ID: c.ID},
			Title:           c.Title,
			InheritsContext: c.InheritsContext,
		})
	}
	return out, nil
}
