package model

import (
	"fmt"
	"slices"

	"github.com/roach88/kvrecord/internal/dispatch"
	"github.com/roach88/kvrecord/internal/engine"
)

// Collection is an ordered set of models of one type.
//
// Thread-safety: Collection is not safe for concurrent use.
type Collection struct {
	typ     *Type
	storage *engine.Engine
	models  []*Model
}

// NewCollection creates an empty collection of type t.
func NewCollection(t *Type) *Collection {
	return &Collection{typ: t}
}

// SetStorage gives the collection its own engine. Models in the collection
// without storage of their own or from their type fall back to it.
func (c *Collection) SetStorage(e *engine.Engine) {
	c.storage = e
}

// ResolveStorage returns the collection's engine, else its type's.
func (c *Collection) ResolveStorage() (*engine.Engine, error) {
	if c.storage != nil {
		return c.storage, nil
	}
	if c.typ.Storage != nil {
		return c.typ.Storage, nil
	}
	return nil, fmt.Errorf("collection %s: %w", c.typ.Name, engine.ErrNoStorage)
}

// Models returns the collection's models in order.
func (c *Collection) Models() []*Model {
	return slices.Clone(c.models)
}

// Len returns the number of models.
func (c *Collection) Len() int {
	return len(c.models)
}

// Get returns the model with identifier id, or nil.
func (c *Collection) Get(id string) *Model {
	for _, m := range c.models {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// Add appends m and makes the collection its fallback storage owner.
func (c *Collection) Add(m *Model) {
	m.collection = c
	c.models = append(c.models, m)
}

// Remove drops m from the collection.
func (c *Collection) Remove(m *Model) {
	c.models = slices.DeleteFunc(c.models, func(x *Model) bool { return x == m })
	if m.collection == c {
		m.collection = nil
	}
}

// Reset replaces the collection's models with one model per attribute map.
func (c *Collection) Reset(items []any) {
	for _, m := range c.models {
		m.collection = nil
	}
	c.models = c.models[:0]
	for _, item := range items {
		attrs, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c.Add(New(c.typ, attrs))
	}
}

// Fetch reads every stored record of the collection and rebuilds its models.
func (c *Collection) Fetch(opts *dispatch.Options) error {
	out := &dispatch.Options{}
	if opts != nil {
		*out = *opts
	}
	user := out.Success
	out.Success = func(resp any) {
		if items, ok := resp.([]any); ok {
			c.Reset(items)
		}
		if user != nil {
			user(resp)
		}
	}
	return c.typ.sync(dispatch.VerbRead, c, out)
}

// Create builds a model from attrs, adds it to the collection and saves it.
func (c *Collection) Create(attrs map[string]any, opts *dispatch.Options) (*Model, error) {
	m := New(c.typ, attrs)
	c.Add(m)
	if err := m.Save(opts); err != nil {
		c.Remove(m)
		return nil, err
	}
	return m, nil
}
