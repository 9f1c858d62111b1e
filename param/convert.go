package param

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownType is returned when a named type has no registered conversion.
var ErrUnknownType = errors.New("param: unknown type")

// Converter turns a typed value into the value sent to the server and the
// kind it is bound with.
type Converter interface {
	Convert(value any, t Type) (any, Kind, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(value any, t Type) (any, Kind, error)

func (f ConverterFunc) Convert(value any, t Type) (any, Kind, error) {
	return f(value, t)
}

// ConvertFunc converts a value for a single named type.
type ConvertFunc func(value any) (any, error)

type namedConversion struct {
	fn   ConvertFunc
	kind Kind
}

// Registry is the default Converter. Raw kinds pass through untouched, named
// types are looked up among registered conversions.
type Registry struct {
	mu    sync.RWMutex
	types map[string]namedConversion
}

// NewRegistry returns a Registry preloaded with the built-in types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]namedConversion)}
	r.Register("string", String, convertString)
	r.Register("integer", Integer, convertInteger)
	r.Register("boolean", Boolean, convertBoolean)
	r.Register("binary", Binary, convertBinary)
	r.Register("datetime", String, convertDatetime)
	r.Register("json", String, convertJSON)
	r.Register("uuid", String, convertUUID)
	return r
}

// DefaultRegistry is shared by engines that are not given their own Converter.
var DefaultRegistry = NewRegistry()

// Register adds or replaces the conversion for name.
func (r *Registry) Register(name string, kind Kind, fn ConvertFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = namedConversion{fn: fn, kind: kind}
}

// Convert implements Converter.
func (r *Registry) Convert(value any, t Type) (any, Kind, error) {
	if t.Name == "" {
		return value, t.Kind, nil
	}

	r.mu.RLock()
	conv, ok := r.types[t.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, Null, fmt.Errorf("%w: %s", ErrUnknownType, t.Name)
	}
	if isNil(value) {
		return nil, Null, nil
	}

	out, err := conv.fn(value)
	if err != nil {
		return nil, Null, fmt.Errorf("param: convert %T to %s: %w", value, t.Name, err)
	}
	return out, conv.kind, nil
}

func convertString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(value), nil
}

func convertInteger(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		return uint64ToInt(uint64(v))
	case uint64:
		return uint64ToInt(v)
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return nil, fmt.Errorf("unsupported integer source %T", value)
}

func uint64ToInt(v uint64) (any, error) {
	if v > math.MaxInt64 {
		return nil, fmt.Errorf("%d overflows int64", v)
	}
	return int64(v), nil
}

// isNil reports whether value is nil or a nil pointer, map, slice or
// interface.
func isNil(value any) bool {
	if value == nil {
		return true
	}
	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func convertBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	case int, int64, int32:
		n, _ := convertInteger(v)
		return n.(int64) != 0, nil
	}
	return nil, fmt.Errorf("unsupported boolean source %T", value)
}

func convertBinary(value any) (any, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unsupported binary source %T", value)
}

func convertDatetime(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format("2006-01-02 15:04:05.999999-07:00"), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.Format("2006-01-02 15:04:05.999999-07:00"), nil
	case string:
		return v, nil
	}
	return nil, fmt.Errorf("unsupported datetime source %T", value)
}

func convertJSON(value any) (any, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return string(raw), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func convertUUID(value any) (any, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v.String(), nil
	case [16]byte:
		return uuid.UUID(v).String(), nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	case []byte:
		id, err := uuid.FromBytes(v)
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	}
	return nil, fmt.Errorf("unsupported uuid source %T", value)
}
