package dialect

import (
	"math"
	"testing"

	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresQuote(t *testing.T) {
	d := NewPostgresDialect()

	tests := []struct {
		name  string
		value any
		kind  param.Kind
		want  string
	}{
		{name: "string", value: "O'Brien", kind: param.String, want: `'O''Brien'`},
		{name: "string with backslash", value: `a\b`, kind: param.ASCII, want: ` E'a\\b'`},
		{name: "nil string", value: nil, kind: param.String, want: "NULL"},
		{name: "integer", value: 42, kind: param.Integer, want: "42"},
		{name: "integer from string", value: "-7", kind: param.Integer, want: "-7"},
		{name: "largest unsigned that fits", value: uint64(math.MaxInt64), kind: param.Integer, want: "9223372036854775807"},
		{name: "boolean true", value: true, kind: param.Boolean, want: "TRUE"},
		{name: "boolean from zero", value: 0, kind: param.Boolean, want: "FALSE"},
		{name: "null", value: "ignored", kind: param.Null, want: "NULL"},
		{name: "binary", value: []byte("ab"), kind: param.Binary, want: ` E'\\x6162'::bytea`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Quote(tt.value, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostgresQuoteUnsupported(t *testing.T) {
	d := NewPostgresDialect()

	_, err := d.Quote([]int{1}, param.IntArray)
	assert.ErrorIs(t, err, ErrUnsupportedBindingKind)

	_, err = d.Quote("x", param.Integer)
	assert.Error(t, err)

	_, err = d.Quote(uint64(math.MaxUint64), param.Integer)
	assert.ErrorContains(t, err, "overflows bigint")

	_, err = d.Quote(uint64(math.MaxInt64)+1, param.Integer)
	assert.Error(t, err)
}

func TestPostgresIdentifiers(t *testing.T) {
	d := NewPostgresDialect()
	assert.Equal(t, `"users"`, d.QuoteIdentifier("users"))
	assert.Equal(t, `"we""ird"`, d.QuoteIdentifier(`we"ird`))
	assert.Equal(t, "$3", d.Placeholder(3))
}
