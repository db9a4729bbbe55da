package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"

	"github.com/roach88/kvrecord/internal/dispatch"
	"github.com/roach88/kvrecord/internal/engine"
	"github.com/roach88/kvrecord/internal/substrate"
)

// DefaultIDAttribute is used when a Type does not name its id attribute.
const DefaultIDAttribute = "id"

// SyncFunc performs a persistence verb for a target.
type SyncFunc func(verb dispatch.Verb, target dispatch.Resolver, opts *dispatch.Options) error

// Type describes a kind of model and carries the storage hooks shared by all
// of its instances.
type Type struct {
	// Name identifies the type in logs.
	Name string

	// IDAttribute names the attribute holding the identifier. Default "id".
	IDAttribute string

	// Storage is the engine installed by Attach.
	Storage *engine.Engine

	// Sync performs persistence verbs. Nil uses dispatch.Sync.
	Sync SyncFunc
}

// Attach creates an engine for collection name over sub, installs it as the
// type's storage and routes the type's sync through a dispatcher sharing the
// engine's logger.
func Attach(t *Type, sub substrate.Substrate, name string, opts ...engine.Option) error {
	store, err := engine.New(sub, name, opts...)
	if err != nil {
		return fmt.Errorf("attach %s: %w", t.Name, err)
	}
	t.Storage = store
	t.Sync = dispatch.New(store.Logger()).Sync
	return nil
}

func (t *Type) idAttribute() string {
	if t.IDAttribute == "" {
		return DefaultIDAttribute
	}
	return t.IDAttribute
}

func (t *Type) sync(verb dispatch.Verb, target dispatch.Resolver, opts *dispatch.Options) error {
	if t.Sync == nil {
		return dispatch.Sync(verb, target, opts)
	}
	return t.Sync(verb, target, opts)
}

// Model is a record held as an attribute map.
//
// Thread-safety: Model is not safe for concurrent use.
type Model struct {
	typ        *Type
	attrs      map[string]any
	storage    *engine.Engine
	collection *Collection
}

// New creates a model of type t with a copy of attrs.
func New(t *Type, attrs map[string]any) *Model {
	m := &Model{typ: t, attrs: make(map[string]any, len(attrs))}
	maps.Copy(m.attrs, attrs)
	return m
}

// Type returns the model's type.
func (m *Model) Type() *Type {
	return m.typ
}

// Collection returns the collection the model belongs to, if any.
func (m *Model) Collection() *Collection {
	return m.collection
}

// SetStorage gives this model its own engine, overriding the type's.
func (m *Model) SetStorage(e *engine.Engine) {
	m.storage = e
}

// Get returns the value of attribute key.
func (m *Model) Get(key string) any {
	return m.attrs[key]
}

// Set merges attrs into the model's attributes.
func (m *Model) Set(attrs map[string]any) {
	maps.Copy(m.attrs, attrs)
}

// Attributes returns a copy of the model's attributes.
func (m *Model) Attributes() map[string]any {
	return maps.Clone(m.attrs)
}

// IsNew reports whether the model has no identifier yet.
func (m *Model) IsNew() bool {
	return m.ID() == ""
}

// ID returns the identifier attribute in string form, or "" when unset.
func (m *Model) ID() string {
	return formatID(m.attrs[m.typ.idAttribute()])
}

// IDAttribute returns the name of the identifier attribute.
func (m *Model) IDAttribute() string {
	return m.typ.idAttribute()
}

// SetID assigns the identifier attribute.
func (m *Model) SetID(id string) {
	m.attrs[m.typ.idAttribute()] = id
}

// Serialize returns a copy of the attributes.
func (m *Model) Serialize() (any, error) {
	return maps.Clone(m.attrs), nil
}

// ResolveStorage returns the model's own engine, else its type's, else its
// collection's.
func (m *Model) ResolveStorage() (*engine.Engine, error) {
	switch {
	case m.storage != nil:
		return m.storage, nil
	case m.typ.Storage != nil:
		return m.typ.Storage, nil
	case m.collection != nil:
		return m.collection.ResolveStorage()
	}
	return nil, fmt.Errorf("model %s: %w", m.typ.Name, engine.ErrNoStorage)
}

// Save creates the model when it is new and updates it otherwise. On success
// the stored attributes are merged back into the model before opts.Success
// runs.
func (m *Model) Save(opts *dispatch.Options) error {
	verb := dispatch.VerbUpdate
	if m.IsNew() {
		verb = dispatch.VerbCreate
	}
	return m.typ.sync(verb, m, m.wrap(opts, m.merge))
}

// Fetch reads the model's stored state and merges it into the attributes.
func (m *Model) Fetch(opts *dispatch.Options) error {
	return m.typ.sync(dispatch.VerbRead, m, m.wrap(opts, m.merge))
}

// Destroy deletes the model's stored state and removes it from its
// collection.
func (m *Model) Destroy(opts *dispatch.Options) error {
	return m.typ.sync(dispatch.VerbDelete, m, m.wrap(opts, func(any) {
		if m.collection != nil {
			m.collection.Remove(m)
		}
	}))
}

func (m *Model) merge(resp any) {
	if attrs, ok := resp.(map[string]any); ok {
		m.Set(attrs)
	}
}

// wrap returns options whose Success first runs apply.
func (m *Model) wrap(opts *dispatch.Options, apply func(any)) *dispatch.Options {
	out := &dispatch.Options{}
	if opts != nil {
		*out = *opts
	}
	user := out.Success
	out.Success = func(resp any) {
		apply(resp)
		if user != nil {
			user(resp)
		}
	}
	return out
}

// formatID renders an identifier value as a string.
func formatID(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}
