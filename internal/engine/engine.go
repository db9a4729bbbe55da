package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/kvrecord/internal/codec"
	"github.com/roach88/kvrecord/internal/substrate"
)

// Record is the view of a domain object the engine needs.
type Record interface {
	// ID returns the record's identifier in string form, or "" when unset.
	ID() string

	// IDAttribute names the attribute holding the identifier.
	IDAttribute() string

	// SetID assigns the identifier attribute.
	SetID(id string)

	// Serialize returns the record's plain value form.
	Serialize() (any, error)
}

// indexSeparator joins ids in the persisted collection index.
const indexSeparator = ","

// Engine stores the records of one named collection.
type Engine struct {
	name    string
	sub     substrate.Substrate
	records []string
	ids     IDGenerator
	log     *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithIDGenerator sets the generator used for records created without an id.
//
// Default: a GUIDGenerator on the global random source.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine for collection name over sub and loads the
// collection index.
//
// Returns a KindSubstrateUnavailable error when sub is nil, including a nil
// pointer wrapped in the interface.
func New(sub substrate.Substrate, name string, opts ...Option) (*Engine, error) {
	if isNil(sub) {
		return nil, &Error{Kind: KindSubstrateUnavailable, Op: "open", Key: name, Err: substrate.ErrUnavailable}
	}
	if name == "" {
		return nil, &Error{Kind: KindStorage, Op: "open", Err: errors.New("collection name is required")}
	}

	e := &Engine{
		name: name,
		sub:  sub,
		ids:  NewGUIDGenerator(nil),
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	stored, _, err := sub.Get(name)
	if err != nil {
		return nil, wrap("open", name, err)
	}
	if stored != "" {
		e.records = strings.Split(stored, indexSeparator)
	}

	e.log.Debug("collection loaded", "collection", name, "records", len(e.records))
	return e, nil
}

// Name returns the collection name.
func (e *Engine) Name() string {
	return e.name
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.log
}

// Records returns a copy of the collection index in insertion order.
func (e *Engine) Records() []string {
	return slices.Clone(e.records)
}

// ItemKey returns the substrate key of the record with the given id.
func (e *Engine) ItemKey(id string) string {
	return e.name + "-" + id
}

// Create stores a new record, assigning a generated id when it has none,
// and adds it to the collection index.
//
// Returns the payload read back from the substrate.
func (e *Engine) Create(rec Record) (any, error) {
	if rec.ID() == "" {
		rec.SetID(e.ids.Generate())
	}
	id := rec.ID()

	written, err := e.write("create", rec)
	if err != nil {
		return nil, err
	}

	if err := e.addToIndex("create", id); err != nil {
		return nil, err
	}

	e.log.Debug("record created", "collection", e.name, "id", id)
	return e.readBack("create", id, written)
}

// Update overwrites a record's entry. The index is only rewritten when the
// id was not already a member.
//
// Returns the payload read back from the substrate.
func (e *Engine) Update(rec Record) (any, error) {
	id := rec.ID()

	written, err := e.write("update", rec)
	if err != nil {
		return nil, err
	}

	if err := e.addToIndex("update", id); err != nil {
		return nil, err
	}

	e.log.Debug("record updated", "collection", e.name, "id", id)
	return e.readBack("update", id, written)
}

// Find returns the stored payload for rec, or nil when there is none.
func (e *Engine) Find(rec Record) (any, error) {
	return e.find("find", rec.ID())
}

// FindAll returns the payloads of every indexed record in index order.
// Ids whose entry is missing or unparsable are skipped.
func (e *Engine) FindAll() ([]any, error) {
	result := make([]any, 0, len(e.records))
	for _, id := range e.records {
		key := e.ItemKey(id)
		raw, _, err := e.sub.Get(key)
		if err != nil {
			return nil, wrap("findAll", key, err)
		}
		payload, err := codec.Deserialize(raw)
		if err != nil {
			e.log.Warn("skipping unparsable record", "collection", e.name, "id", id, "error", err)
			continue
		}
		if payload == nil {
			continue
		}
		result = append(result, payload)
	}
	return result, nil
}

// Destroy removes rec's entry and every occurrence of its id from the index.
// Destroying a record that is not stored is not an error.
//
// Returns rec.
func (e *Engine) Destroy(rec Record) (Record, error) {
	id := rec.ID()
	if id == "" {
		// Never stored: nothing to remove and the index is left untouched.
		return rec, nil
	}

	key := e.ItemKey(id)
	if err := e.sub.Remove(key); err != nil {
		return nil, wrap("destroy", key, err)
	}

	e.records = slices.DeleteFunc(e.records, func(r string) bool { return r == id })
	if err := e.save("destroy"); err != nil {
		return nil, err
	}

	e.log.Debug("record destroyed", "collection", e.name, "id", id)
	return rec, nil
}

// Clear removes the collection index and every entry of the collection.
//
// Entries are located through the index. Substrates implementing
// substrate.PrefixScanner are additionally swept for "name-" keys the index
// has lost track of.
func (e *Engine) Clear() error {
	if err := e.sub.Remove(e.name); err != nil {
		return wrap("clear", e.name, err)
	}

	for _, id := range e.records {
		key := e.ItemKey(id)
		if err := e.sub.Remove(key); err != nil {
			return wrap("clear", key, err)
		}
	}

	if ps, ok := e.sub.(substrate.PrefixScanner); ok {
		orphans, err := ps.KeysWithPrefix(e.name + "-")
		if err != nil {
			return wrap("clear", e.name, err)
		}
		for _, key := range orphans {
			if err := e.sub.Remove(key); err != nil {
				return wrap("clear", key, err)
			}
		}
	}

	e.records = nil
	e.log.Debug("collection cleared", "collection", e.name)
	return nil
}

// Size returns the total number of keys in the substrate, across all
// collections.
func (e *Engine) Size() (int, error) {
	n, err := e.sub.Len()
	if err != nil {
		return 0, wrap("size", "", err)
	}
	return n, nil
}

// write serializes rec and stores it at its item key.
func (e *Engine) write(op string, rec Record) (string, error) {
	id := rec.ID()
	if id == "" {
		return "", &Error{Kind: KindInvalidID, Op: op, Err: errors.New("record has no id")}
	}
	if strings.Contains(id, indexSeparator) {
		return "", &Error{Kind: KindInvalidID, Op: op, Err: fmt.Errorf("id %q contains %q", id, indexSeparator)}
	}

	key := e.ItemKey(id)
	value, err := rec.Serialize()
	if err != nil {
		return "", &Error{Kind: KindStorage, Op: op, Key: key, Err: err}
	}
	data, err := codec.Serialize(value)
	if err != nil {
		return "", &Error{Kind: KindStorage, Op: op, Key: key, Err: err}
	}

	if err := e.sub.Set(key, data); err != nil {
		return "", wrap(op, key, err)
	}
	return data, nil
}

// readBack confirms the entry for id holds written and returns its payload.
func (e *Engine) readBack(op, id, written string) (any, error) {
	key := e.ItemKey(id)
	raw, ok, err := e.sub.Get(key)
	if err != nil {
		return nil, wrap(op, key, err)
	}
	if !ok {
		return nil, &Error{Kind: KindNotFound, Op: op, Key: key, Err: ErrNotFound}
	}
	if raw != written {
		return nil, &Error{Kind: KindStorage, Op: op, Key: key, Err: ErrReadBackMismatch}
	}

	payload, err := codec.Deserialize(raw)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Op: op, Key: key, Err: err}
	}
	if payload == nil {
		return nil, &Error{Kind: KindNotFound, Op: op, Key: key, Err: ErrNotFound}
	}
	return payload, nil
}

func (e *Engine) find(op, id string) (any, error) {
	if id == "" {
		return nil, nil
	}
	key := e.ItemKey(id)
	raw, _, err := e.sub.Get(key)
	if err != nil {
		return nil, wrap(op, key, err)
	}
	payload, err := codec.Deserialize(raw)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Op: op, Key: key, Err: err}
	}
	return payload, nil
}

// addToIndex appends id to the index and persists it, unless id is already
// a member. A failed save leaves the in-memory index unchanged.
func (e *Engine) addToIndex(op, id string) error {
	if slices.Contains(e.records, id) {
		return nil
	}
	e.records = append(e.records, id)
	if err := e.save(op); err != nil {
		e.records = e.records[:len(e.records)-1]
		return err
	}
	return nil
}

// save persists the collection index.
func (e *Engine) save(op string) error {
	if err := e.sub.Set(e.name, strings.Join(e.records, indexSeparator)); err != nil {
		return wrap(op, e.name, err)
	}
	return nil
}

func isNil(sub substrate.Substrate) bool {
	if sub == nil {
		return true
	}
	v := reflect.ValueOf(sub)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
