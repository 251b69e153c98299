package rql

import (
	"strings"
	"time"
)

/*
Fixed textual timestamp format used for `time.Time` comparison values:
ISO-8601 with a numeric zone offset, such as "2016-01-02T15:04:05+0000".
*/
const TimeFormat = `2006-01-02T15:04:05-0700`

/*
Wildcard pattern. `*` matches any run of characters, `?` matches one character,
and a backslash makes the next character literal. Produced by the parser for
unescaped wildcards and by the `glob:` cast.
*/
type Glob string

/*
Converts the pattern to SQL "like" syntax, escaping literal "%", "_" and "\"
with a backslash:

	Glob(`*go?`).ToLike()     == `%go_`
	Glob(`100%*`).ToLike()    == `100\%%`
	Glob(`a\*b`).ToLike()     == `a*b`
*/
func (self Glob) ToLike() string {
	var buf strings.Builder
	buf.Grow(len(self))
	escaped := false

	for _, char := range string(self) {
		if escaped {
			appendLikeLiteral(&buf, char)
			escaped = false
			continue
		}

		switch char {
		case '\\':
			escaped = true
		case '*':
			buf.WriteByte('%')
		case '?':
			buf.WriteByte('_')
		default:
			appendLikeLiteral(&buf, char)
		}
	}

	// Trailing lone backslash is a literal backslash.
	if escaped {
		appendLikeLiteral(&buf, '\\')
	}
	return buf.String()
}

func (self Glob) String() string { return string(self) }

func appendLikeLiteral(buf *strings.Builder, char rune) {
	switch char {
	case '%', '_', '\\':
		buf.WriteByte('\\')
	}
	buf.WriteRune(char)
}

/*
Normalizes a comparison value before it's passed to a builder: globs become
"like" patterns, timestamps become `TimeFormat` strings, nil timestamp pointers
become nil.
*/
func normValue(val interface{}) interface{} {
	switch val := val.(type) {
	case Glob:
		return val.ToLike()
	case *Glob:
		if val == nil {
			return nil
		}
		return val.ToLike()
	case time.Time:
		return val.Format(TimeFormat)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.Format(TimeFormat)
	default:
		return val
	}
}

func normValues(vals []interface{}) []interface{} {
	out := make([]interface{}, len(vals))
	for i, val := range vals {
		out[i] = normValue(val)
	}
	return out
}
