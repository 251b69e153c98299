package rql

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	intReg   = regexp.MustCompile(`^-?\d+$`)
	floatReg = regexp.MustCompile(`^-?\d+\.\d+(?:[eE][+-]?\d+)?$`)
	dateReg  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)
	castReg  = regexp.MustCompile(`^(string|integer|float|boolean|glob):`)
)

// Layouts accepted for unquoted datetime values, tried in order.
var TimeLayouts = []string{
	time.RFC3339Nano,
	`2006-01-02T15:04:05Z0700`,
	`2006-01-02T15:04:05`,
	`2006-01-02T15:04`,
}

/*
Parses RQL text, typically taken from a URL query, such as:

	and(eq(status,published),or(lt(rating,3),eq(deletedAt,null())))&sort(-createdAt)&limit(10,20)

Supported syntax:

	eq(field,value)   ne  lt  gt  le  ge  like       comparison
	in(field,(a,b))   out(field,(a,b))               membership
	and(q,q)  or(q,q)  not(q)                        grouping
	q&q  q|q  (q)                                    infix grouping
	field=value  field=op=value  field=in=(a,b)      FIQL shorthand
	select(a,b)  sort(+a,-b)  limit(n)  limit(n,m)   top level only

Values are percent-decoded. Integers become `int64`, decimals `float64`,
ISO-8601 datetimes `time.Time` (see `TimeLayouts`), `true`/`false` booleans,
`null`/`null()` nil, `empty()` the empty string. Values containing unescaped
"*" or "?" become `Glob`; the value of "like" is always a `Glob`. Explicit
casts are supported: `string:`, `integer:`, `float:`, `boolean:`, `glob:`.

Multiple top-level terms joined by "&" are combined with "and"; the select,
sort and limit terms are extracted into the corresponding `Query` fields.
Errors wrap `ErrRejected` and mention the byte position.
*/
func ParseQuery(src string) (_ Query, err error) {
	defer rec(&err)
	par := parser{src: src}
	return par.query(), nil
}

/*
Like `ParseQuery`, but for text that has already been percent-decoded, such as
a value obtained from `url.Values`. Values are taken as-is, so "%" is literal.
Since decoding already happened, "*" and "?" are always wildcards; use the
`string:` cast for a literal value.
*/
func ParseQueryDecoded(src string) (_ Query, err error) {
	defer rec(&err)
	par := parser{src: src, decoded: true}
	return par.query(), nil
}

// Implement `encoding.TextUnmarshaler` via `ParseQuery`.
func (self *Query) UnmarshalText(input []byte) error {
	query, err := ParseQuery(string(input))
	if err != nil {
		return err
	}
	*self = query
	return nil
}

type parser struct {
	src     string
	pos     int
	decoded bool
}

func (self *parser) query() (out Query) {
	self.skipSpace()
	if !self.more() {
		return
	}

	groups := self.orGroups()
	if self.more() {
		panic(self.errf(`unexpected %q`, self.src[self.pos:]))
	}

	if len(groups) > 1 {
		nodes := make([]Node, len(groups))
		for i, group := range groups {
			nodes[i] = self.andNode(group)
		}
		out.Filter = Or(nodes...)
		return
	}

	var filters []Node
	for _, node := range groups[0] {
		switch node := node.(type) {
		case Select:
			if out.Select != nil {
				panic(self.errf(`duplicate "select"`))
			}
			out.Select = &node
		case Sort:
			if out.Sort != nil {
				panic(self.errf(`duplicate "sort"`))
			}
			out.Sort = &node
		case Limit:
			if out.Limit != nil {
				panic(self.errf(`duplicate "limit"`))
			}
			out.Limit = &node
		default:
			filters = append(filters, node)
		}
	}

	switch len(filters) {
	case 0:
	case 1:
		out.Filter = filters[0]
	default:
		out.Filter = And(filters...)
	}
	return
}

// Nested expression. Select, sort and limit are not allowed here.
func (self *parser) expr() Node {
	groups := self.orGroups()
	if len(groups) == 1 {
		return self.andNode(groups[0])
	}

	nodes := make([]Node, len(groups))
	for i, group := range groups {
		nodes[i] = self.andNode(group)
	}
	return Or(nodes...)
}

func (self *parser) andNode(nodes []Node) Node {
	for _, node := range nodes {
		switch node.(type) {
		case Select, Sort, Limit:
			panic(self.errf(`%q is only allowed at the top level of a query`, node.NodeName()))
		}
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	return And(nodes...)
}

func (self *parser) orGroups() (out [][]Node) {
	for {
		out = append(out, self.andTerms())
		if !self.skip('|') {
			return
		}
	}
}

func (self *parser) andTerms() (out []Node) {
	for {
		out = append(out, self.term())
		if !self.skip('&') {
			return
		}
	}
}

func (self *parser) term() Node {
	self.skipSpace()
	if self.skip('(') {
		node := self.expr()
		self.expect(')')
		return node
	}

	start := self.pos
	tok := self.token()
	if tok == `` {
		panic(self.errf(`expected a query term`))
	}

	switch self.peek() {
	case '(':
		return self.call(tok)
	case '=':
		return self.fiql(tok)
	}

	self.pos = start
	panic(self.errf(`expected a call or a comparison, found %q`, tok))
}

func (self *parser) call(name string) Node {
	start := self.pos
	self.expect('(')
	op := Op(name)

	if _, ok := ScalarOps[op]; ok {
		field := self.field()
		self.expect(',')
		val := self.value()
		self.expect(')')
		return scalarNode(op, field, val)
	}

	if _, ok := ArrayOps[op]; ok {
		field := self.field()
		self.expect(',')
		vals := self.values()
		self.expect(')')
		return Array{Op: op, Field: field, Values: vals}
	}

	if LogicalOps[op] {
		var nodes []Node
		for {
			nodes = append(nodes, self.expr())
			if !self.skip(',') {
				break
			}
		}
		self.expect(')')
		return Logical{Op: op, Queries: nodes}
	}

	switch name {
	case `select`:
		return Select{Fields: self.fields()}
	case `sort`:
		return self.sort()
	case `limit`:
		return self.limit()
	}

	self.pos = start - len(name)
	panic(self.errf(`unknown operation %q`, name))
}

func (self *parser) fiql(field string) Node {
	if !dottedPathReg.MatchString(field) {
		panic(self.errf(`expected a valid dot-separated identifier, got %q`, field))
	}
	self.expect('=')

	start := self.pos
	tok := self.token()

	if self.skip('=') {
		op := Op(tok)
		if _, ok := ArrayOps[op]; ok {
			return Array{Op: op, Field: field, Values: self.values()}
		}
		if _, ok := ScalarOps[op]; ok {
			return scalarNode(op, field, self.value())
		}
		self.pos = start
		panic(self.errf(`unknown operation %q`, tok))
	}

	return scalarNode(OpEq, field, self.valueFrom(tok))
}

func scalarNode(op Op, field string, val interface{}) Scalar {
	if str, ok := val.(string); ok && op == OpLike {
		val = Glob(escapeGlob(str))
	}
	return Scalar{Op: op, Field: field, Value: val}
}

func (self *parser) field() string {
	self.skipSpace()
	tok := self.token()
	field := self.unescape(tok)
	if !dottedPathReg.MatchString(field) {
		panic(self.errf(`expected a valid dot-separated identifier, got %q`, tok))
	}
	return field
}

func (self *parser) fields() (out []string) {
	for {
		out = append(out, self.field())
		if !self.skip(',') {
			break
		}
	}
	self.expect(')')
	return
}

func (self *parser) sort() Sort {
	var out Sort
	for {
		self.skipSpace()
		tok := self.token()
		match := sortTermReg.FindStringSubmatch(tok)
		if match == nil {
			panic(self.errf(`%q is not a valid sort term; expected "[+|-]<ident>"`, tok))
		}
		out.Fields = append(out.Fields, SortField{Field: match[2], IsDesc: match[1] == `-`})
		if !self.skip(',') {
			break
		}
	}
	self.expect(')')
	return out
}

func (self *parser) limit() Limit {
	var out Limit
	out.Limit = self.count()
	if self.skip(',') {
		out.Offset = self.count()
	}
	self.expect(')')
	return out
}

func (self *parser) count() int {
	self.skipSpace()
	tok := self.token()
	num, err := strconv.Atoi(tok)
	if err != nil || num < 0 {
		panic(self.errf(`expected a non-negative integer, found %q`, tok))
	}
	return num
}

// Either a parenthesized list or a sequence of bare values up to ")".
func (self *parser) values() (out []interface{}) {
	self.skipSpace()

	if self.skip('(') {
		if self.skip(')') {
			return []interface{}{}
		}
		out = self.valueSeq()
		self.expect(')')
		return
	}
	return self.valueSeq()
}

func (self *parser) valueSeq() (out []interface{}) {
	for {
		out = append(out, self.value())
		if !self.skip(',') {
			return
		}
	}
}

func (self *parser) value() interface{} {
	self.skipSpace()
	return self.valueFrom(self.token())
}

// Converts a raw token, consuming the trailing "()" of value functions.
func (self *parser) valueFrom(raw string) interface{} {
	if self.peek() == '(' {
		start := self.pos
		self.pos++
		self.expect(')')

		switch raw {
		case `true`:
			return true
		case `false`:
			return false
		case `null`:
			return nil
		case `empty`:
			return ``
		}
		self.pos = start
		panic(self.errf(`unknown value function %q`, raw))
	}

	if match := castReg.FindStringSubmatch(raw); match != nil {
		return self.cast(match[1], raw[len(match[0]):])
	}

	if strings.ContainsAny(raw, `*?`) {
		return self.glob(raw)
	}

	return self.autoValue(self.unescape(raw))
}

func (self *parser) cast(typ, raw string) interface{} {
	str := self.unescape(raw)

	switch typ {
	case `string`:
		return str

	case `integer`:
		out, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			panic(self.errf(`invalid integer %q`, str))
		}
		return out

	case `float`:
		out, err := strconv.ParseFloat(str, 64)
		if err != nil {
			panic(self.errf(`invalid float %q`, str))
		}
		return out

	case `boolean`:
		out, err := strconv.ParseBool(str)
		if err != nil {
			panic(self.errf(`invalid boolean %q`, str))
		}
		return out

	case `glob`:
		return Glob(str)
	}

	panic(self.errf(`unknown cast %q`, typ))
}

func (self *parser) autoValue(str string) interface{} {
	switch str {
	case `true`:
		return true
	case `false`:
		return false
	case `null`:
		return nil
	}

	if intReg.MatchString(str) {
		if out, err := strconv.ParseInt(str, 10, 64); err == nil {
			return out
		}
		// Outside the range of `int64`.
		if out, err := strconv.ParseFloat(str, 64); err == nil {
			return out
		}
	}

	if floatReg.MatchString(str) {
		if out, err := strconv.ParseFloat(str, 64); err == nil {
			return out
		}
	}

	if dateReg.MatchString(str) {
		for _, layout := range TimeLayouts {
			if out, err := time.Parse(layout, str); err == nil {
				return out
			}
		}
		panic(self.errf(`invalid datetime %q`, str))
	}

	return str
}

/*
Unescaped "*" and "?" are wildcards. Everything between them is percent-decoded
and escaped, so "%2A" stays a literal asterisk.
*/
func (self *parser) glob(raw string) Glob {
	var buf strings.Builder
	seg := 0

	for i := 0; i < len(raw); i++ {
		if raw[i] == '*' || raw[i] == '?' {
			buf.WriteString(escapeGlob(self.unescape(raw[seg:i])))
			buf.WriteByte(raw[i])
			seg = i + 1
		}
	}
	buf.WriteString(escapeGlob(self.unescape(raw[seg:])))
	return Glob(buf.String())
}

func escapeGlob(str string) string {
	if !strings.ContainsAny(str, `*?\`) {
		return str
	}

	var buf strings.Builder
	for _, char := range str {
		switch char {
		case '*', '?', '\\':
			buf.WriteByte('\\')
		}
		buf.WriteRune(char)
	}
	return buf.String()
}

func (self *parser) unescape(raw string) string {
	if self.decoded {
		return raw
	}
	out, err := url.PathUnescape(raw)
	if err != nil {
		panic(self.errf(`invalid percent-encoding in %q`, raw))
	}
	return out
}

// Reads raw text up to the next delimiter. May return "".
func (self *parser) token() string {
	start := self.pos
	for self.more() && !isDelim(self.src[self.pos]) {
		self.pos++
	}
	return strings.TrimSpace(self.src[start:self.pos])
}

func isDelim(char byte) bool {
	switch char {
	case '(', ')', ',', '&', '|', '=':
		return true
	default:
		return false
	}
}

func (self *parser) more() bool { return self.pos < len(self.src) }

func (self *parser) peek() byte {
	self.skipSpace()
	if self.more() {
		return self.src[self.pos]
	}
	return 0
}

func (self *parser) skip(char byte) bool {
	if self.peek() == char && char != 0 {
		self.pos++
		return true
	}
	return false
}

func (self *parser) expect(char byte) {
	if !self.skip(char) {
		if self.more() {
			panic(self.errf(`expected %q, found %q`, char, self.src[self.pos]))
		}
		panic(self.errf(`expected %q, found end of input`, char))
	}
}

func (self *parser) skipSpace() {
	for self.more() && isWhitespaceChar(rune(self.src[self.pos])) {
		self.pos++
	}
}

func (self *parser) errf(pattern string, args ...interface{}) error {
	args = append(args, self.pos)
	return rejectf(pattern+` at position %v`, args...)
}
