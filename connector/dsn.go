package connector

import (
	"sort"
	"strconv"
	"strings"
)

type dsnField struct {
	key, value string
}

// DSNBuilder provides a fluent interface for building keyword/value
// connection strings. Fields are written in the order they were added and
// empty values are left out.
type DSNBuilder struct {
	fields []dsnField
}

// NewDSNBuilder creates a new DSN builder
func NewDSNBuilder() *DSNBuilder {
	return &DSNBuilder{}
}

// Host sets the host and port
func (b *DSNBuilder) Host(host string, port int) *DSNBuilder {
	b.Param("host", host)
	if port > 0 {
		b.Param("port", strconv.Itoa(port))
	}
	return b
}

// Database sets the database name
func (b *DSNBuilder) Database(name string) *DSNBuilder {
	return b.Param("dbname", name)
}

// Auth sets username and password
func (b *DSNBuilder) Auth(username, password string) *DSNBuilder {
	return b.Param("user", username).Param("password", password)
}

// Charset sets the client encoding through the server options field.
func (b *DSNBuilder) Charset(encoding string) *DSNBuilder {
	if encoding == "" {
		return b
	}
	return b.Param("options", "--client_encoding="+encoding)
}

// Param adds a single parameter. A key added twice keeps its first position
// and takes the latest value.
func (b *DSNBuilder) Param(key, value string) *DSNBuilder {
	if value == "" {
		return b
	}
	for i := range b.fields {
		if b.fields[i].key == key {
			b.fields[i].value = value
			return b
		}
	}
	b.fields = append(b.fields, dsnField{key: key, value: value})
	return b
}

// Params adds multiple parameters, sorted by key.
func (b *DSNBuilder) Params(params map[string]string) *DSNBuilder {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Param(k, params[k])
	}
	return b
}

// Build constructs the final DSN string
func (b *DSNBuilder) Build() string {
	var dsn strings.Builder
	for i, f := range b.fields {
		if i > 0 {
			dsn.WriteByte(' ')
		}
		dsn.WriteString(f.key)
		dsn.WriteByte('=')
		dsn.WriteString(quoteDSNValue(f.value))
	}
	return dsn.String()
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
