package param

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindArrays(t *testing.T) {
	assert.True(t, IntArray.IsArray())
	assert.True(t, StrArray.IsArray())
	assert.False(t, Integer.IsArray())
	assert.False(t, Binary.IsArray())

	assert.Equal(t, Integer, IntArray.Elem())
	assert.Equal(t, String, StrArray.Elem())
	assert.Equal(t, Boolean, Boolean.Elem())

	assert.Equal(t, "integer[]", IntArray.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestTypeMarkers(t *testing.T) {
	assert.True(t, Type{}.IsZero())
	assert.False(t, KindOf(String).IsZero())
	assert.True(t, KindOf(IntArray).IsArray())
	assert.False(t, Named("json").IsArray())
	assert.Equal(t, KindOf(Integer), KindOf(IntArray).Elem())
	assert.Equal(t, "untyped", Type{}.String())
	assert.Equal(t, "json", Named("json").String())
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{name: "empty", params: Params{}},
		{name: "ordinal", params: Positional(1, 2).WithKinds(Integer)},
		{name: "named", params: NamedValues(map[string]any{"id": 1})},
		{
			name:    "mixed values",
			params:  Params{Ordinal: []any{1}, Named: map[string]any{"id": 1}},
			wantErr: true,
		},
		{
			name:    "ordinal types with named values",
			params:  NamedValues(map[string]any{"id": 1}).WithKinds(Integer),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameterStyle)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParamsLookupColonPrefix(t *testing.T) {
	p := NamedValues(map[string]any{":id": 7, "name": "x"}).
		WithNamedTypes(map[string]Type{"ids": KindOf(IntArray)})

	v, ok := p.Lookup("id")
	require.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok = p.Lookup(":name")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = p.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, KindOf(IntArray), p.LookupType(":ids"))
	assert.True(t, p.LookupType("name").IsZero())
	assert.True(t, p.Empty() == false)
	assert.True(t, Params{}.Empty())
}

func TestRegistryConvert(t *testing.T) {
	r := NewRegistry()
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name     string
		value    any
		typ      Type
		want     any
		wantKind Kind
	}{
		{name: "raw kind passes through", value: 5, typ: KindOf(Integer), want: 5, wantKind: Integer},
		{name: "integer from string", value: "42", typ: Named("integer"), want: int64(42), wantKind: Integer},
		{name: "boolean from string", value: "true", typ: Named("boolean"), want: true, wantKind: Boolean},
		{name: "datetime", value: ts, typ: Named("datetime"), want: "2024-03-01 12:30:00+00:00", wantKind: String},
		{name: "json", value: map[string]int{"a": 1}, typ: Named("json"), want: `{"a":1}`, wantKind: String},
		{name: "uuid", value: id, typ: Named("uuid"), want: id.String(), wantKind: String},
		{name: "binary from string", value: "ab", typ: Named("binary"), want: []byte("ab"), wantKind: Binary},
		{name: "nil stays nil", value: nil, typ: Named("json"), want: nil, wantKind: Null},
		{name: "nil time pointer", value: (*time.Time)(nil), typ: Named("datetime"), want: nil, wantKind: Null},
		{name: "time pointer", value: &ts, typ: Named("datetime"), want: "2024-03-01 12:30:00+00:00", wantKind: String},
		{name: "max int64 from uint64", value: uint64(math.MaxInt64), typ: Named("integer"), want: int64(math.MaxInt64), wantKind: Integer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind, err := r.Convert(tt.value, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Convert(1, Named("money"))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, _, err = r.Convert("abc", Named("integer"))
	assert.Error(t, err)

	_, _, err = r.Convert(uint64(math.MaxUint64), Named("integer"))
	assert.ErrorContains(t, err, "overflows int64")

	r.Register("money", String, func(v any) (any, error) {
		return nil, errors.New("no money")
	})
	_, _, err = r.Convert(1, Named("money"))
	assert.EqualError(t, err, "param: convert int to money: no money")
}

func TestConvertDatetimeNilPointer(t *testing.T) {
	got, err := convertDatetime((*time.Time)(nil))
	require.NoError(t, err)
	assert.Nil(t, got)
}
