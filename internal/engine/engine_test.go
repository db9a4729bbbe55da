package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvrecord/internal/substrate"
	"github.com/roach88/kvrecord/internal/substrate/mocks"
)

func TestNew_NilSubstrate(t *testing.T) {
	_, err := New(nil, "Model")
	require.Error(t, err)
	assert.Equal(t, KindSubstrateUnavailable, KindOf(err))
	assert.ErrorIs(t, err, substrate.ErrUnavailable)
}

func TestNew_TypedNilSubstrate(t *testing.T) {
	var mem *substrate.Memory
	_, err := New(mem, "Model")
	require.Error(t, err)
	assert.Equal(t, KindSubstrateUnavailable, KindOf(err))
	assert.ErrorIs(t, err, substrate.ErrUnavailable)
}

func TestNew_EmptyName(t *testing.T) {
	_, err := New(substrate.NewMemory(), "")
	require.Error(t, err)
}

func TestNew_LoadsIndex(t *testing.T) {
	mem := substrate.NewMemory()
	require.NoError(t, mem.Set("Model", "a,b,c"))

	e, err := New(mem, "Model")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, e.Records())
}

func TestNew_EmptyIndexValue(t *testing.T) {
	mem := substrate.NewMemory()
	require.NoError(t, mem.Set("Model", ""))

	e, err := New(mem, "Model")
	require.NoError(t, err)
	assert.Empty(t, e.Records())
}

func TestNew_GetFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockSubstrate(ctrl)
	m.EXPECT().Get("Model").Return("", false, errors.New("disk on fire"))

	_, err := New(m, "Model")
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))
}

func TestItemKey(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Equal(t, "Model-abc", e.ItemKey("abc"))
	assert.Equal(t, "Model", e.Name())
}

func TestCreate_AssignsGeneratedID(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := newRecord(testValues())

	_, err := e.Create(rec)
	require.NoError(t, err)
	assert.Regexp(t, GUIDPattern, rec.ID())
	assert.Equal(t, []string{rec.ID()}, e.Records())
}

func TestCreate_KeepsSuppliedID(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := newRecord(map[string]any{"id": 42, "name": "answer"})

	_, err := e.Create(rec)
	require.NoError(t, err)
	assert.Equal(t, "42", rec.ID())
	assert.Equal(t, []string{"42"}, e.Records())
}

func TestCreate_RoundTrip(t *testing.T) {
	e, mem := newTestEngine(t, WithIDGenerator(NewFixedGenerator("fixed-1")))
	rec := newRecord(testValues())

	payload, err := e.Create(rec)
	require.NoError(t, err)

	want := `{"booleanProp":true,"id":"fixed-1","numberProp":1,"stringProp":"stringValue"}`
	stored, ok, err := mem.Get("Model-fixed-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, stored)

	index, _, _ := mem.Get("Model")
	assert.Equal(t, "fixed-1", index)

	found, err := e.Find(rec)
	require.NoError(t, err)
	assert.Equal(t, payload, found)
	assert.Equal(t, map[string]any{
		"booleanProp": true,
		"id":          "fixed-1",
		"numberProp":  json.Number("1"),
		"stringProp":  "stringValue",
	}, found)
}

func TestCreate_DecomposedStringsRoundTrip(t *testing.T) {
	e, mem := newTestEngine(t)
	rec := newRecord(map[string]any{"id": "a", "name": "e\u0301", "caf\u0065\u0301": "x"})

	payload, err := e.Create(rec)
	require.NoError(t, err)
	want := map[string]any{"id": "a", "name": "e\u0301", "cafe\u0301": "x"}
	assert.Equal(t, want, payload)

	stored, _, err := mem.Get("Model-a")
	require.NoError(t, err)
	assert.Equal(t, "{\"cafe\u0301\":\"x\",\"id\":\"a\",\"name\":\"e\u0301\"}", stored)

	found, err := e.Find(rec)
	require.NoError(t, err)
	assert.Equal(t, want, found)
}

func TestCreate_ExistingIDNotDuplicated(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Create(newRecord(map[string]any{"id": "a"}))
	require.NoError(t, err)
	_, err = e.Create(newRecord(map[string]any{"id": "a", "v": 2}))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, e.Records())
}

func TestCreate_RejectsSeparatorInID(t *testing.T) {
	e, mem := newTestEngine(t)

	_, err := e.Create(newRecord(map[string]any{"id": "a,b"}))
	require.Error(t, err)
	assert.Equal(t, KindInvalidID, KindOf(err))

	n, _ := mem.Len()
	assert.Zero(t, n)
}

func TestCreate_QuotaExceeded(t *testing.T) {
	mem := substrate.NewMemory(substrate.WithQuota(8))
	e, err := New(mem, "Model")
	require.NoError(t, err)

	_, err = e.Create(newRecord(testValues()))
	require.Error(t, err)
	assert.True(t, IsQuotaExceeded(err))

	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Contains(t, ee.Message(), "QuotaExceededError")
	assert.Empty(t, e.Records())
}

func TestCreate_IndexSaveFailureLeavesIndexUnchanged(t *testing.T) {
	// Entry "Model-a" -> {"id":"a"} costs 17 bytes; the index "Model" -> "a"
	// would bring usage to 23.
	mem := substrate.NewMemory(substrate.WithQuota(20))
	e, err := New(mem, "Model")
	require.NoError(t, err)

	_, err = e.Create(newRecord(map[string]any{"id": "a"}))
	require.Error(t, err)
	assert.True(t, IsQuotaExceeded(err))
	assert.Empty(t, e.Records())
}

func TestCreate_ReadBackMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockSubstrate(ctrl)
	gomock.InOrder(
		m.EXPECT().Get("Model").Return("", false, nil),
		m.EXPECT().Set("Model-a", `{"id":"a"}`).Return(nil),
		m.EXPECT().Set("Model", "a").Return(nil),
		m.EXPECT().Get("Model-a").Return(`{"id":"b"}`, true, nil),
	)

	e, err := New(m, "Model")
	require.NoError(t, err)

	_, err = e.Create(newRecord(map[string]any{"id": "a"}))
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.ErrorIs(t, err, ErrReadBackMismatch)
}

func TestCreate_ReadBackMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockSubstrate(ctrl)
	m.EXPECT().Get("Model").Return("", false, nil)
	m.EXPECT().Set(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	m.EXPECT().Get("Model-a").Return("", false, nil)

	e, err := New(m, "Model")
	require.NoError(t, err)

	_, err = e.Create(newRecord(map[string]any{"id": "a"}))
	assert.True(t, IsNotFound(err))
}

func TestUpdate_OverwritesEntry(t *testing.T) {
	e, mem := newTestEngine(t)
	rec := newRecord(testValues())
	_, err := e.Create(rec)
	require.NoError(t, err)

	rec.attrs["stringProp"] = ""
	rec.attrs["numberProp"] = 0
	rec.attrs["booleanProp"] = false

	_, err = e.Update(rec)
	require.NoError(t, err)

	stored, _, _ := mem.Get(e.ItemKey(rec.ID()))
	assert.Equal(t, `{"booleanProp":false,"id":"`+rec.ID()+`","numberProp":0,"stringProp":""}`, stored)
	assert.Equal(t, []string{rec.ID()}, e.Records())
}

func TestUpdate_PersistsIndexOnlyOnce(t *testing.T) {
	sub := newCounting(substrate.NewMemory())
	e, err := New(sub, "Model")
	require.NoError(t, err)

	rec := newRecord(map[string]any{"id": "u1"})
	_, err = e.Update(rec)
	require.NoError(t, err)
	_, err = e.Update(rec)
	require.NoError(t, err)

	assert.Equal(t, 1, sub.sets["Model"], "index should be persisted by the first update only")
	assert.Equal(t, 2, sub.sets["Model-u1"])
	assert.Equal(t, []string{"u1"}, e.Records())
}

func TestUpdate_WithoutID(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Update(newRecord(nil))
	require.Error(t, err)
	assert.Equal(t, KindInvalidID, KindOf(err))
}

func TestFind_Missing(t *testing.T) {
	e, _ := newTestEngine(t)

	payload, err := e.Find(newRecord(map[string]any{"id": "nope"}))
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestFind_EmptyValue(t *testing.T) {
	e, mem := newTestEngine(t)
	require.NoError(t, mem.Set("Model-a", ""))

	payload, err := e.Find(newRecord(map[string]any{"id": "a"}))
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestFind_Corrupt(t *testing.T) {
	e, mem := newTestEngine(t)
	require.NoError(t, mem.Set("Model-a", "{not json"))

	_, err := e.Find(newRecord(map[string]any{"id": "a"}))
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))
}

func TestFind_ReturnsStoredStateNotMemoryState(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := newRecord(testValues())
	_, err := e.Create(rec)
	require.NoError(t, err)

	rec.attrs["stringProp"] = ""

	found, err := e.Find(rec)
	require.NoError(t, err)
	assert.Equal(t, "stringValue", found.(map[string]any)["stringProp"])
}

func TestFindAll_OrderAndSkipping(t *testing.T) {
	e, mem := newTestEngine(t, WithIDGenerator(NewFixedGenerator("x", "y", "z", "w")))
	for i := 0; i < 4; i++ {
		_, err := e.Create(newRecord(map[string]any{"n": i}))
		require.NoError(t, err)
	}

	require.NoError(t, mem.Set("Model-y", "not json"))
	require.NoError(t, mem.Remove("Model-z"))

	all, err := e.FindAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "x", all[0].(map[string]any)["id"])
	assert.Equal(t, "w", all[1].(map[string]any)["id"])
}

func TestFindAll_Empty(t *testing.T) {
	e, _ := newTestEngine(t)

	all, err := e.FindAll()
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestDestroy_RemovesEntryAndIndex(t *testing.T) {
	e, mem := newTestEngine(t)
	rec := newRecord(testValues())
	_, err := e.Create(rec)
	require.NoError(t, err)
	id := rec.ID()

	got, err := e.Destroy(rec)
	require.NoError(t, err)
	assert.Same(t, rec, got)

	_, ok, _ := mem.Get("Model-" + id)
	assert.False(t, ok)

	found, err := e.Find(rec)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Empty(t, e.Records())

	index, ok, _ := mem.Get("Model")
	assert.True(t, ok)
	assert.Equal(t, "", index)
}

func TestDestroy_RemovesDuplicateIndexEntries(t *testing.T) {
	mem := substrate.NewMemory()
	require.NoError(t, mem.Set("Model", "a,b,a,a"))
	require.NoError(t, mem.Set("Model-a", `{"id":"a"}`))
	require.NoError(t, mem.Set("Model-b", `{"id":"b"}`))

	e, err := New(mem, "Model")
	require.NoError(t, err)

	_, err = e.Destroy(newRecord(map[string]any{"id": "a"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, e.Records())
	index, _, _ := mem.Get("Model")
	assert.Equal(t, "b", index)
}

func TestDestroy_MissingIsNotAnError(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := newRecord(map[string]any{"id": "ghost"})

	got, err := e.Destroy(rec)
	require.NoError(t, err)
	assert.Same(t, rec, got)
}

func TestDestroy_WithoutID(t *testing.T) {
	mem := substrate.NewMemory()
	require.NoError(t, mem.Set("Model", "a"))
	require.NoError(t, mem.Set("Model-a", `{"id":"a"}`))
	counting := newCounting(mem)
	e, err := New(counting, "Model")
	require.NoError(t, err)

	rec := newRecord(nil)
	got, err := e.Destroy(rec)
	require.NoError(t, err)
	assert.Same(t, rec, got)
	assert.Equal(t, []string{"a"}, e.Records())
	assert.Zero(t, counting.sets["Model"])
	entry, ok, err := mem.Get("Model-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"a"}`, entry)
	n, err := mem.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClear(t *testing.T) {
	mem := substrate.NewMemory()
	models, err := New(mem, "Model")
	require.NoError(t, err)
	others, err := New(mem, "Other")
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		_, err := models.Create(newRecord(map[string]any{"id": id}))
		require.NoError(t, err)
		_, err = others.Create(newRecord(map[string]any{"id": id}))
		require.NoError(t, err)
	}
	// An entry the index does not know about.
	require.NoError(t, mem.Set("Model-orphan", `{"id":"orphan"}`))

	require.NoError(t, models.Clear())

	assert.Empty(t, models.Records())
	keys, err := mem.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"Other", "Other-a", "Other-b"}, keys)
}

func TestClear_WithoutPrefixScanner(t *testing.T) {
	mem := substrate.NewMemory()
	e, err := New(struct{ substrate.Substrate }{mem}, "Model")
	require.NoError(t, err)

	_, err = e.Create(newRecord(map[string]any{"id": "a"}))
	require.NoError(t, err)
	require.NoError(t, mem.Set("Model-orphan", "{}"))

	require.NoError(t, e.Clear())

	keys, _ := mem.Keys()
	assert.Equal(t, []string{"Model-orphan"}, keys, "only indexed entries are reachable without a scanner")
}

func TestSize(t *testing.T) {
	e, mem := newTestEngine(t)
	require.NoError(t, mem.Set("unrelated", "x"))

	_, err := e.Create(newRecord(map[string]any{"id": "a"}))
	require.NoError(t, err)

	n, err := e.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEngines_ShareSubstrate(t *testing.T) {
	mem := substrate.NewMemory()
	first, err := New(mem, "Model")
	require.NoError(t, err)
	_, err = first.Create(newRecord(map[string]any{"id": "a"}))
	require.NoError(t, err)

	second, err := New(mem, "Model")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, second.Records())

	all, err := second.FindAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
