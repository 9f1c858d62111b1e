package dialect

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/lib/pq"
)

type Postgres struct{}

func NewPostgresDialect() Dialect {
	return &Postgres{}
}

func (p Postgres) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (p Postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// Quote renders value as an SQL literal for the given binding kind.
func (p Postgres) Quote(value any, kind param.Kind) (string, error) {
	switch kind {
	case param.Null:
		return "NULL", nil
	case param.String, param.ASCII, param.LargeObject:
		if value == nil {
			return "NULL", nil
		}
		return pq.QuoteLiteral(toText(value)), nil
	case param.Integer:
		if value == nil {
			return "NULL", nil
		}
		n, err := toInt(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case param.Binary:
		if value == nil {
			return "NULL", nil
		}
		return pq.QuoteLiteral(`\x` + hex.EncodeToString([]byte(toText(value)))) + "::bytea", nil
	case param.Boolean:
		if truthy(value) {
			return "TRUE", nil
		}
		return "FALSE", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedBindingKind, kind)
}

func toText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

func toInt(v any) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return uintToInt(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return uintToInt(val)
	case float32:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("dialect: %q is not an integer", val)
		}
		return n, nil
	}
	return 0, fmt.Errorf("dialect: cannot quote %T as integer", v)
}

func uintToInt(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("dialect: %d overflows bigint", v)
	}
	return int64(v), nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	}
	n, err := toInt(v)
	return err == nil && n != 0
}
