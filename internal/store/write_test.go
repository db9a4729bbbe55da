package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvrecord/internal/substrate"
)

func TestSet_InsertAndReplace(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.Set("Model-1", `{"id":"1"}`))
	require.NoError(t, s.Set("Model-1", `{"id":"1","n":2}`))

	v, ok, err := s.Get("Model-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"1","n":2}`, v)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSet_EmptyValue(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Set("Model", ""))

	v, ok, err := s.Get("Model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestSet_Quota(t *testing.T) {
	s := createTestStore(t, WithQuota(12))

	require.NoError(t, s.Set("a", "12345")) // 6 bytes

	err := s.Set("b", "1234567") // 6 + 8 = 14 > 12
	require.Error(t, err)
	assert.True(t, substrate.IsQuotaExceeded(err))

	var qe *substrate.QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, int64(14), qe.Need)

	_, ok, err := s.Get("b")
	require.NoError(t, err)
	assert.False(t, ok, "rejected write must not be stored")

	// Replacing an entry only counts the difference.
	require.NoError(t, s.Set("a", "1234567890")) // 11 bytes

	used, err := s.Used()
	require.NoError(t, err)
	assert.Equal(t, int64(11), used)
}

func TestSet_QuotaCountsBytes(t *testing.T) {
	s := createTestStore(t, WithQuota(5))

	// U+00E9 is two bytes in UTF-8: 1 + 2*2 = 5.
	require.NoError(t, s.Set("k", "\u00e9\u00e9"))

	err := s.Set("k", "\u00e9\u00e9\u00e9")
	assert.True(t, substrate.IsQuotaExceeded(err))
}

func TestRemove(t *testing.T) {
	s := createTestStore(t)
	mustSet(t, s, "a", "1")

	require.NoError(t, s.Remove("a"))
	_, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Absent key
	require.NoError(t, s.Remove("a"))
}

func TestClear(t *testing.T) {
	s := createTestStore(t)
	mustSet(t, s, "a", "1")
	mustSet(t, s, "b", "2")

	require.NoError(t, s.Clear())

	n, err := s.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}
