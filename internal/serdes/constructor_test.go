package serdes

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projects/internal/rowstore"
	dErrors "projects/pkg/domain-errors"
)

type room struct {
	id       int64
	capacity int32
}

func TestConstructorNeverMisassigns(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemory()
	store.Seed("rooms", rowstore.Values{"id": int64(1), "capacity": int64(math.MaxInt32) + 1})
	engine := NewEngine(store)

	rooms := Define[room, int64]("rooms").
		Primary(Primary("id", func(r *room) int64 { return r.id })).
		Field(Immutable("capacity", func(r *room) int32 { return r.capacity })).
		Construct(Construct2(func(id int64, capacity int32) *room { return &room{id: id, capacity: capacity} })).
		MustBuild(engine)

	_, err := rooms.Deserialize(ctx, 1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoSuchConstructor), "got %v", err)
	assert.Zero(t, rooms.Loaded())
}

func TestConstructWithFactoryError(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemory()
	store.Seed("rooms", rowstore.Values{"id": int64(1), "capacity": int64(8)})
	engine := NewEngine(store)

	rooms := Define[room, int64]("rooms").
		Primary(Primary("id", func(r *room) int64 { return r.id })).
		Field(Immutable("capacity", func(r *room) int32 { return r.capacity })).
		Construct(ConstructWith([]rowstore.Type{rowstore.TypeInteger, rowstore.TypeInteger}, func(args []any) (*room, error) {
			return nil, errors.New("rooms are read only")
		})).
		MustBuild(engine)

	_, err := rooms.Deserialize(ctx, 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoSuchConstructor))
}

func TestConstructArgumentNormalization(t *testing.T) {
	hired := time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC)
	c := Construct4(func(id int, hired time.Time, budget decimal.Decimal, area float32) *room {
		return &room{id: int64(id), capacity: int32(area)}
	})
	assert.Equal(t, []rowstore.Type{rowstore.TypeInteger, rowstore.TypeTime, rowstore.TypeDecimal, rowstore.TypeFloat}, c.Params())

	r, err := c.call([]any{int64(3), hired, decimal.NewFromInt(1), float32(12)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.id)
	assert.Equal(t, int32(12), r.capacity)

	_, err = c.call([]any{"3", hired, decimal.NewFromInt(1), float32(12)})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoSuchConstructor))

	_, err = c.call([]any{int64(3)})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoSuchConstructor))
}

func TestFromColumn(t *testing.T) {
	n, err := fromColumn[int](int64(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	f, err := fromColumn[float64](float32(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	s, err := fromColumn[string](nil)
	require.NoError(t, err)
	assert.Equal(t, "", s)

	_, err = fromColumn[bool]("true")
	assert.ErrorIs(t, err, errNarrow)

	_, err = fromColumn[int32](int64(math.MinInt32) - 1)
	assert.ErrorIs(t, err, errNarrow)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, rowstore.TypeBool, typeOf[bool]())
	assert.Equal(t, rowstore.TypeInteger, typeOf[int32]())
	assert.Equal(t, rowstore.TypeDouble, typeOf[float64]())
	assert.Equal(t, rowstore.TypeFloat, typeOf[float32]())
	assert.Equal(t, rowstore.TypeDecimal, typeOf[decimal.Decimal]())
	assert.Equal(t, rowstore.TypeTime, typeOf[time.Time]())
}
