package transport

import (
	"fmt"

	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// encodeArgs renders every argument in the text format. A nil entry is sent
// as SQL NULL.
func encodeArgs(m *pgtype.Map, args []param.Arg) ([][]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	values := make([][]byte, len(args))
	for i, a := range args {
		b, err := encodeArg(m, a)
		if err != nil {
			return nil, fmt.Errorf("encode $%d: %w", i+1, err)
		}
		values[i] = b
	}
	return values, nil
}

func encodeArg(m *pgtype.Map, a param.Arg) ([]byte, error) {
	if a.Value == nil {
		return nil, nil
	}

	switch a.Kind {
	case param.Binary, param.LargeObject:
		switch v := a.Value.(type) {
		case []byte:
			return m.Encode(pgtype.ByteaOID, pgtype.TextFormatCode, v, nil)
		case string:
			return m.Encode(pgtype.ByteaOID, pgtype.TextFormatCode, []byte(v), nil)
		}
	case param.Boolean:
		if v, ok := a.Value.(bool); ok {
			return m.Encode(pgtype.BoolOID, pgtype.TextFormatCode, v, nil)
		}
	}

	switch v := a.Value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return m.Encode(pgtype.ByteaOID, pgtype.TextFormatCode, v, nil)
	}

	if t, ok := m.TypeForValue(a.Value); ok {
		return m.Encode(t.OID, pgtype.TextFormatCode, a.Value, nil)
	}
	return []byte(fmt.Sprint(a.Value)), nil
}

func decodeRow(m *pgtype.Map, fields []pgconn.FieldDescription, raw [][]byte) []any {
	row := make([]any, len(raw))
	for i, src := range raw {
		if i < len(fields) {
			row[i] = decodeValue(m, fields[i], src)
			continue
		}
		row[i] = string(src)
	}
	return row
}

// decodeValue converts one column to its natural Go value. Types the map does
// not know come back as their text rendering.
func decodeValue(m *pgtype.Map, fd pgconn.FieldDescription, src []byte) any {
	if src == nil {
		return nil
	}
	if t, ok := m.TypeForOID(fd.DataTypeOID); ok {
		if v, err := t.Codec.DecodeValue(m, fd.DataTypeOID, fd.Format, src); err == nil {
			return v
		}
	}
	if fd.Format == pgtype.TextFormatCode {
		return string(src)
	}
	return append([]byte(nil), src...)
}
