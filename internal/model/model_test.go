package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvrecord/internal/codec"
	"github.com/roach88/kvrecord/internal/dispatch"
	"github.com/roach88/kvrecord/internal/engine"
	"github.com/roach88/kvrecord/internal/substrate"
)

const namespace = "Model"

func testValues() map[string]any {
	return map[string]any{
		"stringProp":  "stringValue",
		"numberProp":  1,
		"booleanProp": true,
	}
}

func testValues2() map[string]any {
	return map[string]any{
		"stringProp":  "",
		"numberProp":  0,
		"booleanProp": false,
	}
}

// reset attaches a fresh type to an empty substrate.
func reset(t *testing.T) (*Type, *substrate.Memory) {
	t.Helper()
	mem := substrate.NewMemory()
	typ := &Type{Name: "TestModel"}
	require.NoError(t, Attach(typ, mem, namespace))
	return typ, mem
}

// toStr serializes the model's current state.
func toStr(t *testing.T, m *Model) string {
	t.Helper()
	v, err := m.Serialize()
	require.NoError(t, err)
	s, err := codec.Serialize(v)
	require.NoError(t, err)
	return s
}

// getLocal returns the stored entry for id.
func getLocal(t *testing.T, mem *substrate.Memory, id string) (string, bool) {
	t.Helper()
	v, ok, err := mem.Get(namespace + "-" + id)
	require.NoError(t, err)
	return v, ok
}

func TestSave(t *testing.T) {
	typ, mem := reset(t)
	m := New(typ, testValues())

	require.NoError(t, m.Save(nil))

	stored, ok := getLocal(t, mem, m.ID())
	require.True(t, ok)
	assert.Equal(t, toStr(t, m), stored, "model should persist to the substrate")
	assert.Regexp(t, engine.GUIDPattern, m.ID())
}

func TestFetch(t *testing.T) {
	typ, mem := reset(t)
	m := New(typ, testValues())
	require.NoError(t, m.Save(nil))
	serialized, _ := getLocal(t, mem, m.ID())

	m.Set(testValues2())
	require.NoError(t, m.Fetch(nil))

	assert.Equal(t, serialized, toStr(t, m), "model should restore state from the substrate")
}

func TestUpdate(t *testing.T) {
	typ, mem := reset(t)
	m := New(typ, testValues())
	require.NoError(t, m.Save(nil))

	m.Set(testValues2())
	require.NoError(t, m.Save(nil))

	stored, _ := getLocal(t, mem, m.ID())
	assert.Equal(t, toStr(t, m), stored, "substrate should have new model state")
	assert.Equal(t, []string{m.ID()}, typ.Storage.Records())
}

func TestDestroy(t *testing.T) {
	typ, mem := reset(t)
	m := New(typ, testValues())
	require.NoError(t, m.Save(nil))
	id := m.ID()

	require.NoError(t, m.Destroy(nil))

	_, ok := getLocal(t, mem, id)
	assert.False(t, ok)
}

func TestSave_CallbacksSeeStoredState(t *testing.T) {
	typ, _ := reset(t)
	m := New(typ, map[string]any{"n": 1})

	var got any
	var completed bool
	require.NoError(t, m.Save(&dispatch.Options{
		Success:  func(resp any) { got = resp },
		Error:    func(msg string) { t.Fatalf("unexpected error callback: %s", msg) },
		Complete: func(any) { completed = true },
	}))

	require.IsType(t, map[string]any{}, got)
	assert.Equal(t, m.ID(), got.(map[string]any)["id"])
	assert.True(t, completed)
}

func TestFetch_Missing(t *testing.T) {
	typ, _ := reset(t)
	m := New(typ, map[string]any{"id": "nope", "x": 1})

	var msg string
	require.NoError(t, m.Fetch(&dispatch.Options{Error: func(s string) { msg = s }}))

	assert.Equal(t, dispatch.MsgRecordNotFound, msg)
	assert.Equal(t, 1, m.Get("x"))
}

func TestCustomIDAttribute(t *testing.T) {
	mem := substrate.NewMemory()
	typ := &Type{Name: "Keyed", IDAttribute: "key"}
	require.NoError(t, Attach(typ, mem, "Keyed", engine.WithIDGenerator(engine.NewFixedGenerator("k1"))))

	m := New(typ, map[string]any{"v": true})
	require.NoError(t, m.Save(nil))

	assert.Equal(t, "k1", m.Get("key"))
	stored, ok, err := mem.Get("Keyed-k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"key":"k1","v":true}`, stored)
}

func TestNumericID(t *testing.T) {
	typ, mem := reset(t)
	m := New(typ, map[string]any{"id": 7})

	assert.False(t, m.IsNew())
	require.NoError(t, m.Save(nil))

	_, ok := getLocal(t, mem, "7")
	assert.True(t, ok)
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "", formatID(nil))
	assert.Equal(t, "abc", formatID("abc"))
	assert.Equal(t, "12", formatID(12))
	assert.Equal(t, "1.5", formatID(1.5))
	assert.Equal(t, "3", formatID(float64(3)))
}

func TestAttach_NilSubstrate(t *testing.T) {
	typ := &Type{Name: "Broken"}
	err := Attach(typ, nil, "Broken")

	require.Error(t, err)
	assert.Equal(t, engine.KindSubstrateUnavailable, engine.KindOf(err))
	assert.Nil(t, typ.Storage)
}

func TestResolveStorage_Order(t *testing.T) {
	own, err := engine.New(substrate.NewMemory(), "Own")
	require.NoError(t, err)
	shared, err := engine.New(substrate.NewMemory(), "Shared")
	require.NoError(t, err)

	typ := &Type{Name: "Bare"}
	m := New(typ, nil)

	_, err = m.ResolveStorage()
	assert.ErrorIs(t, err, engine.ErrNoStorage)

	c := NewCollection(typ)
	c.SetStorage(shared)
	c.Add(m)
	got, err := m.ResolveStorage()
	require.NoError(t, err)
	assert.Same(t, shared, got)

	m.SetStorage(own)
	got, err = m.ResolveStorage()
	require.NoError(t, err)
	assert.Same(t, own, got)
}

func TestSave_WithoutStorageReturnsError(t *testing.T) {
	m := New(&Type{Name: "Bare"}, nil)
	assert.ErrorIs(t, m.Save(nil), engine.ErrNoStorage)
}
