package rql

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/mitranim/sqlb"
)

/*
Short for "orderings". Structured representation of an SQL ordering such as:

	`order by "some_col" asc`

	`order by "some_col" asc, "nested"."other_col" desc`

When encoding to a string, identifiers are quoted for safety. An ordering with
empty `.Items` represents no ordering: "".

`.Type` is used for parsing external input. It must be a struct type. Every
field name or path must be found in the struct type, possibly in nested
structs. The decoding process will convert every JSON field name into the
corresponding DB column name. Identifiers without the corresponding pair of
`json` and `db` tags cause a parse error.

Usage for parsing:

	input := []byte(`["one asc", "two.three desc"]`)

	ords := OrdsFor(SomeStructType{})

	err := ords.UnmarshalJSON(input)
	panic(err)

The same orderings may be parsed from a JSON:API "sort" parameter or from an
RQL `sort(...)` node:

	err := ords.ParseSort(`one,-two.three`)

	err := ords.FromSort(query.Sort)

The result is equivalent to:

	OrdsFrom(OrdAsc(`one`), OrdDesc(`two`, `three`))

Usage for SQL:

	ords.String()

`Ords` implements `sqlb.Expr` and can be directly used as a sub-expression:

	text, args := sqlb.Reify(
		sqlb.Str(`select * from some_table`),
		OrdsFrom(OrdAsc(`some_col`)),
	)
*/
type Ords struct {
	Items []Ord
	Type  reflect.Type
}

// Shortcut for creating `Ords` without a type.
func OrdsFrom(items ...Ord) Ords { return Ords{Items: items} }

/*
Shortcut for empty `Ords` intended for parsing. The input is used only as a type
carrier. The parsing process will consult the provided type; see
`Ords.UnmarshalJSON`.
*/
func OrdsFor(val interface{}) Ords { return Ords{Type: elemTypeOf(val)} }

/*
Implement decoding from JSON. Consults `.Type` to determine known field paths,
and converts them to DB column paths, rejecting unknown identifiers.
*/
func (self *Ords) UnmarshalJSON(input []byte) error {
	var vals []string
	err := json.Unmarshal(input, &vals)
	if err != nil {
		return rejectWrap(err, `failed to decode orderings`)
	}
	return self.ParseSlice(vals)
}

/*
Convenience method for parsing string slices, which may come from URL queries,
form-encoded data, and so on.
*/
func (self *Ords) ParseSlice(vals []string) error {
	self.Items = make([]Ord, 0, len(vals))

	for _, val := range vals {
		var ord Ord
		err := self.parseOrd(val, &ord)
		if err != nil {
			return err
		}
		self.Items = append(self.Items, ord)
	}

	return nil
}

/*
Parses a comma-separated JSON:API sort string such as "title,-author.name".
A leading "-" means descending, a leading "+" or no prefix means ascending.
Empty terms are ignored. An empty string produces empty orderings.
*/
func (self *Ords) ParseSort(str string) error {
	var vals []string
	for _, val := range strings.Split(str, `,`) {
		val = strings.TrimSpace(val)
		if val != `` {
			vals = append(vals, val)
		}
	}
	return self.ParseSlice(vals)
}

/*
Converts an RQL sort node into orderings, consulting `.Type` like the other
parsing methods. A nil node produces empty orderings.
*/
func (self *Ords) FromSort(node *Sort) error {
	self.Items = nil
	if node == nil {
		return nil
	}

	self.Items = make([]Ord, 0, len(node.Fields))
	for _, field := range node.Fields {
		_, path, err := structFieldByJsonPath(self.Type, field.Field)
		if err != nil {
			return err
		}
		self.Items = append(self.Items, Ord{Path: path, IsDesc: field.IsDesc})
	}
	return nil
}

/*
Accepts either "<ident> asc|desc" or the JSON:API form "[+|-]<ident>".
*/
func (self Ords) parseOrd(str string, ord *Ord) error {
	var ident string

	if match := ordReg.FindStringSubmatch(str); match != nil {
		ident = match[1]
		ord.IsDesc = strings.EqualFold(match[2], `desc`)
	} else if match := sortTermReg.FindStringSubmatch(str); match != nil {
		ident = match[2]
		ord.IsDesc = match[1] == `-`
	} else {
		return rejectf(`%q is not a valid ordering string; expected format: "<ident> asc|desc" or "[+|-]<ident>"`, str)
	}

	_, path, err := structFieldByJsonPath(self.Type, ident)
	if err != nil {
		return err
	}

	ord.Path = path
	return nil
}

// Converts to `sqlb.Ords`, which is used for SQL encoding.
func (self Ords) Sqlb() sqlb.Ords {
	out := make(sqlb.Ords, 0, len(self.Items))
	for _, ord := range self.Items {
		out = append(out, ord.Sqlb())
	}
	return out
}

/*
Implement `sqlb.Expr`, allowing this to be used as a sub-expression in other
`sqlb` expressions. Empty orderings append nothing.
*/
func (self Ords) AppendExpr(text []byte, args []interface{}) ([]byte, []interface{}) {
	return self.Sqlb().AppendExpr(text, args)
}

/*
Generates an SQL string like:

	`order by "some_col" asc, "other_col" desc`

If the sequence is empty, returns "".
*/
func (self Ords) String() string { return exprString(self) }

// Appends an SQL string to the buffer. See `.String()`.
func (self Ords) AppendBytes(buf *[]byte) { *buf = exprAppend(self, *buf) }

// True if the item slice is empty. Doesn't care if `.Type` is set.
func (self Ords) IsEmpty() bool { return len(self.Items) == 0 }

// Convenience method for appending orderings.
func (self *Ords) Append(items ...Ord) {
	self.Items = append(self.Items, items...)
}

// If empty, replaces items with the provided fallback. Otherwise does nothing.
func (self *Ords) Or(items ...Ord) {
	if self.IsEmpty() {
		self.Items = items
	}
}

/*
Shortcut:

	OrdAsc(`one`, `two) ≡ Ord{Path: []string{`one`, `two`}, IsDesc: false}
*/
func OrdAsc(path ...string) Ord { return Ord{Path: path, IsDesc: false} }

/*
Shortcut:

	OrdDesc(`one`, `two) ≡ Ord{Path: []string{`one`, `two`}, IsDesc: true}
*/
func OrdDesc(path ...string) Ord { return Ord{Path: path, IsDesc: true} }

/*
Short for "ordering". Describes an SQL ordering like:

	`"some_col" asc`

	`("nested")."other_col" desc`

but in a structured format. When encoding for SQL, identifiers are quoted for
safety. Identifier case is preserved. Parsing of "asc" and "desc" is
case-insensitive and doesn't preserve case.

Note on `IsDesc`: the default value `false` corresponds to "ascending", which is
the default in SQL.

Also see `Ords`.
*/
type Ord struct {
	Path   []string
	IsDesc bool
}

// Converts to `sqlb.Ord`, which is used for SQL encoding.
func (self Ord) Sqlb() sqlb.Ord {
	if self.IsDesc {
		return sqlb.Ord{Path: sqlb.Path(self.Path), Dir: sqlb.DirDesc}
	}
	return sqlb.Ord{Path: sqlb.Path(self.Path), Dir: sqlb.DirAsc}
}

// Implement `sqlb.Expr`.
func (self Ord) AppendExpr(text []byte, args []interface{}) ([]byte, []interface{}) {
	return self.Sqlb().AppendExpr(text, args)
}

/*
Returns an SQL string like:

	"some_col" asc

	("some_col")."other_col" asc
*/
func (self Ord) String() string { return exprString(self) }
