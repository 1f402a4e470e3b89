package redisstore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projects/internal/rowstore"
)

func TestEncodeReadsBackThroughConvert(t *testing.T) {
	hired := time.Date(2022, 5, 17, 8, 45, 0, 0, time.FixedZone("BST", 3600))

	tests := []struct {
		value any
		typ   rowstore.Type
		want  any
	}{
		{int64(42), rowstore.TypeInteger, int64(42)},
		{7, rowstore.TypeInteger, int64(7)},
		{true, rowstore.TypeBool, true},
		{"ada@example.com", rowstore.TypeString, "ada@example.com"},
		{31000.75, rowstore.TypeDouble, 31000.75},
		{float32(12.5), rowstore.TypeFloat, float32(12.5)},
	}
	for _, tt := range tests {
		got, err := rowstore.Convert(encode(tt.value), tt.typ)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	got, err := rowstore.Convert(encode(hired), rowstore.TypeTime)
	require.NoError(t, err)
	assert.True(t, hired.Equal(got.(time.Time)))

	got, err = rowstore.Convert(encode(decimal.RequireFromString("10.10")), rowstore.TypeDecimal)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.1").Equal(got.(decimal.Decimal)))
}

func TestEncodeMatchesAcrossIntegerWidths(t *testing.T) {
	assert.Equal(t, encode(int64(5)), encode(int32(5)))
	assert.Equal(t, encode(int64(5)), encode(5))
	assert.Equal(t, nullMarker, encode(nil))
}

func TestSortKeys(t *testing.T) {
	keys := []string{"10", "9", "2"}
	sortKeys(keys)
	assert.Equal(t, []string{"2", "9", "10"}, keys)

	mixed := []string{"b", "a", "3"}
	sortKeys(mixed)
	assert.Equal(t, []string{"3", "a", "b"}, mixed)
}

func TestKeyLayout(t *testing.T) {
	s := New(nil, WithPrefix("test:"), WithKey("bookings", "booking_id"))
	assert.Equal(t, "booking_id", s.keyColumn("bookings"))
	assert.Equal(t, "id", s.keyColumn("employees"))
	assert.Equal(t, "test:row:employees:1", s.rowKey("employees", "1"))
	assert.Equal(t, "test:idx:employees:email:ada@example.com", s.indexKey("employees", "email", "ada@example.com"))
}

func TestUniqueKeysCoverCheckedIndexes(t *testing.T) {
	s := New(nil, WithUnique("employees", "email", "badge"))

	keys := s.uniqueKeys("employees", rowstore.Values{"id": int64(4), "email": "ada@example.com", "badge": nil, "wage": 1.0})
	assert.Equal(t, []string{"idx:employees:email:ada@example.com"}, keys)

	assert.Empty(t, s.uniqueKeys("rooms", rowstore.Values{"name": "Blue"}))
}
