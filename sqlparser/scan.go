package sqlparser

import "strings"

type style uint8

const (
	positional style = iota
	named
)

// placeholder is one parameter marker found outside of quoted text.
type placeholder struct {
	pos, end int
	// ordinal is the 0-based parameter index of a $N marker, -1 for '?'.
	ordinal int
	name    string
}

// scan collects the placeholders of sql in order of appearance. Single,
// double, backtick and dollar quoted text, comments and bracket spans are
// skipped. A bracket span that follows the ARRAY keyword is an array
// constructor and is scanned like regular text.
//
// A '?' is a placeholder only in statements without any $N marker. Once $N
// appears, '?' is the jsonb key-exists operator and stays untouched.
func scan(sql string, st style) []placeholder {
	var (
		out     []placeholder
		ordinal bool
	)

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(sql, i, c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = skipLine(sql, i+2)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = skipBlock(sql, i+2)
		case c == '[':
			if followsArray(sql, i) {
				i++
				continue
			}
			i = skipBracket(sql, i)
		case c == '$':
			if i > 0 && isIdentChar(sql[i-1]) {
				i++
				continue
			}
			if i+1 < len(sql) && isDigit(sql[i+1]) {
				j := i + 1
				n := 0
				for j < len(sql) && isDigit(sql[j]) {
					n = n*10 + int(sql[j]-'0')
					j++
				}
				if st == positional && n > 0 {
					out = append(out, placeholder{pos: i, end: j, ordinal: n - 1})
					ordinal = true
				}
				i = j
				continue
			}
			if tag, ok := dollarTag(sql, i); ok {
				i = skipDollarQuoted(sql, i, tag)
				continue
			}
			i++
		case c == '?':
			if st == positional {
				out = append(out, placeholder{pos: i, end: i + 1, ordinal: -1})
			}
			i++
		case c == ':':
			if i+1 < len(sql) && sql[i+1] == ':' {
				i += 2
				continue
			}
			if st == named && i+1 < len(sql) && isIdentStart(sql[i+1]) {
				j := i + 2
				for j < len(sql) && isIdentChar(sql[j]) && sql[j] != '$' {
					j++
				}
				out = append(out, placeholder{pos: i, end: j, ordinal: -1, name: sql[i+1 : j]})
				i = j
				continue
			}
			i++
		default:
			i++
		}
	}

	if ordinal {
		return dropQuestionMarks(out)
	}
	return out
}

func dropQuestionMarks(phs []placeholder) []placeholder {
	out := phs[:0]
	for _, ph := range phs {
		if ph.ordinal >= 0 {
			out = append(out, ph)
		}
	}
	return out
}

// skipQuoted returns the offset just past the literal opened at sql[i].
// Doubled quotes and backslash escapes stay inside the literal.
func skipQuoted(sql string, i int, quote byte) int {
	for j := i + 1; j < len(sql); j++ {
		switch sql[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case quote:
			if j+1 < len(sql) && sql[j+1] == quote {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(sql)
}

func skipLine(sql string, i int) int {
	if n := strings.IndexAny(sql[i:], "\r\n"); n >= 0 {
		return i + n + 1
	}
	return len(sql)
}

func skipBlock(sql string, i int) int {
	if n := strings.Index(sql[i:], "*/"); n >= 0 {
		return i + n + 2
	}
	return len(sql)
}

func skipBracket(sql string, i int) int {
	if n := strings.IndexByte(sql[i+1:], ']'); n >= 0 {
		return i + 1 + n + 1
	}
	return len(sql)
}

// dollarTag reports whether sql[i] opens a $tag$ quote and returns the full tag.
func dollarTag(sql string, i int) (string, bool) {
	j := i + 1
	if j < len(sql) && sql[j] == '$' {
		return "$$", true
	}
	if j >= len(sql) || !isIdentStart(sql[j]) {
		return "", false
	}
	for j < len(sql) && isIdentChar(sql[j]) && sql[j] != '$' {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		return sql[i : j+1], true
	}
	return "", false
}

func skipDollarQuoted(sql string, i int, tag string) int {
	body := i + len(tag)
	if n := strings.Index(sql[body:], tag); n >= 0 {
		return body + n + len(tag)
	}
	return len(sql)
}

// followsArray reports whether the bracket at sql[i] belongs to an ARRAY[...]
// constructor.
func followsArray(sql string, i int) bool {
	j := i
	for j > 0 && isSpace(sql[j-1]) {
		j--
	}
	const kw = "array"
	if j < len(kw) || !strings.EqualFold(sql[j-len(kw):j], kw) {
		return false
	}
	return j == len(kw) || !isIdentChar(sql[j-len(kw)-1])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
