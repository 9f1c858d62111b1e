package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeArgs(t *testing.T) {
	m := pgtype.NewMap()

	values, err := encodeArgs(m, []param.Arg{
		{Value: nil},
		{Value: "abc", Kind: param.String},
		{Value: 42, Kind: param.Integer},
		{Value: true, Kind: param.Boolean},
		{Value: []byte("ab"), Kind: param.Binary},
		{Value: "", Kind: param.String},
	})
	require.NoError(t, err)
	require.Len(t, values, 6)

	assert.Nil(t, values[0])
	assert.Equal(t, "abc", string(values[1]))
	assert.Equal(t, "42", string(values[2]))
	assert.Equal(t, "t", string(values[3]))
	assert.Equal(t, `\x6162`, string(values[4]))
	assert.NotNil(t, values[5])
	assert.Empty(t, values[5])
}

func TestEncodeArgsEmpty(t *testing.T) {
	values, err := encodeArgs(pgtype.NewMap(), nil)
	require.NoError(t, err)
	assert.Nil(t, values)
}

type opaque struct{ n int }

func (o opaque) String() string { return fmt.Sprintf("opaque-%d", o.n) }

func TestEncodeArgFallsBackToSprint(t *testing.T) {
	b, err := encodeArg(pgtype.NewMap(), param.Arg{Value: opaque{n: 3}})
	require.NoError(t, err)
	assert.Equal(t, "opaque-3", string(b))
}

func TestDecodeRow(t *testing.T) {
	m := pgtype.NewMap()
	fields := []pgconn.FieldDescription{
		{Name: "id", DataTypeOID: pgtype.Int8OID, Format: pgtype.TextFormatCode},
		{Name: "name", DataTypeOID: pgtype.TextOID, Format: pgtype.TextFormatCode},
		{Name: "active", DataTypeOID: pgtype.BoolOID, Format: pgtype.TextFormatCode},
		{Name: "missing", DataTypeOID: pgtype.TextOID, Format: pgtype.TextFormatCode},
		{Name: "custom", DataTypeOID: 999999, Format: pgtype.TextFormatCode},
	}

	row := decodeRow(m, fields, [][]byte{
		[]byte("7"),
		[]byte("ann"),
		[]byte("t"),
		nil,
		[]byte("raw"),
	})

	assert.Equal(t, []any{int64(7), "ann", true, nil, "raw"}, row)
	assert.Equal(t, []string{"id", "name", "active", "missing", "custom"}, columnNames(fields))
	assert.Nil(t, columnNames(nil))
}

func TestServerResult(t *testing.T) {
	res, err := serverResult(&Result{Err: &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "42P01", SQLState(res.Err))

	ioErr := errors.New("connection reset")
	res, err = serverResult(&Result{Err: ioErr})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ioErr)

	assert.Equal(t, "", SQLState(ioErr))
	assert.Equal(t, "42601", SQLState(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "42601"})))
}
