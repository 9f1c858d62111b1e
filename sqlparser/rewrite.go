// Package sqlparser rewrites statements carrying list parameters into plain
// ordinal placeholder lists the server understands.
package sqlparser

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Konsultn-Engineering/pgswarm/cache"
	"github.com/Konsultn-Engineering/pgswarm/dialect"
	"github.com/Konsultn-Engineering/pgswarm/param"
)

var (
	ErrMissingParameter      = errors.New("sqlparser: missing parameter")
	ErrInvalidListValue      = errors.New("sqlparser: list parameter is not a slice")
	ErrInvalidParameterStyle = param.ErrInvalidParameterStyle
)

// MissingParameterError names the placeholder that has no value.
type MissingParameterError struct {
	Placeholder string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("sqlparser: value for %s not found", e.Placeholder)
}

func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// Result is the rewritten statement with flattened values and types.
type Result struct {
	SQL    string
	Values []any
	Types  []param.Type
}

// Rewriter expands list parameters. Placeholder positions are cached per SQL
// text, so a Rewriter is meant to be shared; it is safe for concurrent use.
type Rewriter struct {
	dialect dialect.Dialect
	scans   *cache.QueryCache[[]placeholder]
}

// New returns a Rewriter emitting placeholders for d and caching the scans of
// up to cacheSize distinct statements.
func New(d dialect.Dialect, cacheSize int) *Rewriter {
	if d == nil {
		d = dialect.NewPostgresDialect()
	}
	return &Rewriter{
		dialect: d,
		scans:   cache.NewQueryCache[[]placeholder](cacheSize),
	}
}

var defaultRewriter = New(nil, cache.DefaultQueryCacheSize)

// Rewrite runs the shared default Rewriter.
func Rewrite(sql string, params param.Params) (Result, error) {
	return defaultRewriter.Rewrite(sql, params)
}

// Rewrite returns sql with every list parameter replaced by one placeholder
// per element, and the values and types flattened to match. Named parameters
// and '?' markers are always turned into ordinal placeholders.
func (r *Rewriter) Rewrite(sql string, params param.Params) (Result, error) {
	if params.Empty() {
		return Result{SQL: sql}, nil
	}
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	if params.IsNamed() {
		return r.rewriteNamed(sql, params)
	}
	return r.rewritePositional(sql, params)
}

func (r *Rewriter) placeholders(sql string, st style) []placeholder {
	key := "p" + sql
	if st == named {
		key = "n" + sql
	}
	return r.scans.GetOrCompute(key, func() []placeholder {
		return scan(sql, st)
	})
}

func (r *Rewriter) rewritePositional(sql string, params param.Params) (Result, error) {
	values := params.Ordinal
	types := padTypes(params.OrdinalTypes, len(values))

	expandable := false
	for _, t := range types {
		if t.IsArray() {
			expandable = true
			break
		}
	}
	phs := r.placeholders(sql, positional)
	if !expandable && !hasQuestionMarks(phs) {
		return Result{SQL: sql, Values: values, Types: types}, nil
	}

	lists := make([][]any, len(values))
	starts := make([]int, len(values))
	next := 1
	for i, v := range values {
		starts[i] = next
		if !types[i].IsArray() {
			next++
			continue
		}
		elems, err := listElems(v)
		if err != nil {
			return Result{}, fmt.Errorf("%w: $%d is %T", err, i+1, v)
		}
		lists[i] = elems
		next += len(elems)
	}

	var b strings.Builder
	b.Grow(len(sql) + 4*next)
	last, seq := 0, 0
	for _, ph := range phs {
		idx := ph.ordinal
		if idx < 0 {
			idx = seq
			seq++
		}
		if idx >= len(values) {
			name := sql[ph.pos:ph.end]
			if ph.ordinal < 0 {
				name = fmt.Sprintf("positional parameter #%d", idx+1)
			}
			return Result{}, &MissingParameterError{Placeholder: name}
		}
		b.WriteString(sql[last:ph.pos])
		if types[idx].IsArray() {
			r.writeList(&b, starts[idx], len(lists[idx]))
		} else {
			b.WriteString(r.dialect.Placeholder(starts[idx]))
		}
		last = ph.end
	}
	b.WriteString(sql[last:])

	outValues := make([]any, 0, next-1)
	outTypes := make([]param.Type, 0, next-1)
	for i, v := range values {
		if !types[i].IsArray() {
			outValues = append(outValues, v)
			outTypes = append(outTypes, types[i])
			continue
		}
		elem := types[i].Elem()
		for _, e := range lists[i] {
			outValues = append(outValues, e)
			outTypes = append(outTypes, elem)
		}
	}

	return Result{SQL: b.String(), Values: outValues, Types: outTypes}, nil
}

func (r *Rewriter) rewriteNamed(sql string, params param.Params) (Result, error) {
	var (
		b      strings.Builder
		values []any
		types  []param.Type
	)
	b.Grow(len(sql))
	last, next := 0, 1

	for _, ph := range r.placeholders(sql, named) {
		v, ok := params.Lookup(ph.name)
		if !ok {
			return Result{}, &MissingParameterError{Placeholder: ":" + ph.name}
		}
		t := params.LookupType(ph.name)

		b.WriteString(sql[last:ph.pos])
		last = ph.end

		if !t.IsArray() {
			b.WriteString(r.dialect.Placeholder(next))
			next++
			values = append(values, v)
			types = append(types, t)
			continue
		}

		elems, err := listElems(v)
		if err != nil {
			return Result{}, fmt.Errorf("%w: :%s is %T", err, ph.name, v)
		}
		r.writeList(&b, next, len(elems))
		next += len(elems)
		elem := t.Elem()
		for _, e := range elems {
			values = append(values, e)
			types = append(types, elem)
		}
	}
	b.WriteString(sql[last:])

	return Result{SQL: b.String(), Values: values, Types: types}, nil
}

// writeList writes n consecutive placeholders starting at start, or NULL for
// an empty list.
func (r *Rewriter) writeList(b *strings.Builder, start, n int) {
	if n == 0 {
		b.WriteString("NULL")
		return
	}
	for k := 0; k < n; k++ {
		if k > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.dialect.Placeholder(start + k))
	}
}

// padTypes returns types cut or extended with untyped markers to length n.
func padTypes(types []param.Type, n int) []param.Type {
	if len(types) >= n {
		return types[:n]
	}
	out := make([]param.Type, n)
	copy(out, types)
	return out
}

func hasQuestionMarks(phs []placeholder) bool {
	for _, ph := range phs {
		if ph.ordinal < 0 {
			return true
		}
	}
	return false
}

func listElems(v any) ([]any, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return list, nil
	case []int:
		out := make([]any, len(list))
		for i, e := range list {
			out[i] = e
		}
		return out, nil
	case []int64:
		out := make([]any, len(list))
		for i, e := range list {
			out[i] = e
		}
		return out, nil
	case []string:
		out := make([]any, len(list))
		for i, e := range list {
			out[i] = e
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, ErrInvalidListValue
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
