package rql

import (
	"reflect"

	"github.com/mitranim/sqlb"
)

/*
Shortcut for instantiating `Cond` with the type of the given value. The input
is used only as a type carrier.
*/
func CondFor(val interface{}) Cond {
	return Cond{Type: elemTypeOf(val)}
}

/*
SQL implementation of `Builder`. Accumulates predicates of a boolean SQL
expression. Values are never inlined: when encoding, each becomes an ordinal
parameter such as $1, numbered after the arguments already present in the
enclosing expression.

`.Type` must be a struct type. It serves as a whitelist of filterable fields:
every field name or dot-separated path must be found on the struct by its
`json` tag, and is converted to the column name from its `db` tag. Unknown
fields are rejected.

Implements `sqlb.Expr`, so it can be used as a sub-expression for other `sqlb`
expressions:

	cond := CondFor(Person{})
	err := cond.Filter(query)
	if err != nil {
		return err
	}

	text, args := sqlb.Reify(sqlb.Str(`select * from persons where`), cond)

An empty `Cond` encodes as `true`, so the caller can always expect a valid
expression.
*/
type Cond struct {
	Type  reflect.Type
	items []condItem
}

var _ = Builder((*Cond)(nil))

var _ = sqlb.Expr(Cond{})

/*
Implement `sqlb.Expr`. Appends the condition, delimited from the preceding text
by a space if necessary. An empty condition appends `true`.
*/
func (self Cond) AppendExpr(text []byte, args []interface{}) ([]byte, []interface{}) {
	bui := sqlb.Bui{Text: text, Args: args}
	if self.IsEmpty() {
		bui.Str(`true`)
	} else {
		appendCondItems(&bui, self.items)
	}
	return bui.Get()
}

// Returns the SQL text, with parameters numbered from $1.
func (self Cond) String() string { return exprString(self) }

// Returns the SQL text and the corresponding arguments.
func (self Cond) Reify() (string, []interface{}) { return sqlb.Reify(self) }

// True if no predicates have been appended.
func (self Cond) IsEmpty() bool { return len(self.items) == 0 }

/*
Visits the query's filter into a scratch condition and appends the result,
joined by "and", only if the walk succeeded. On error, the receiver is left
unmodified.
*/
func (self *Cond) Filter(query Query) error {
	inner := Cond{Type: self.Type}
	err := Visit(query, &inner)
	if err != nil {
		return err
	}
	if inner.IsEmpty() {
		return nil
	}

	inner.items[0].conn = ConnAnd
	self.items = append(self.items, inner.items...)
	return nil
}

// Implement `Builder`.
func (self *Cond) Where(field string, op Op, val interface{}, conn Conn) error {
	sqlOp := op.Sql()
	if sqlOp == `` {
		return rejectf(`unknown scalar operator %q`, op)
	}

	path, err := self.prepare(field, conn)
	if err != nil {
		return err
	}

	self.items = append(self.items, condItem{
		kind: condWhere,
		conn: conn,
		path: path,
		op:   sqlOp,
		like: op == OpLike,
		vals: []interface{}{val},
	})
	return nil
}

// Implement `Builder`.
func (self *Cond) WhereNull(field string, conn Conn, negate bool) error {
	path, err := self.prepare(field, conn)
	if err != nil {
		return err
	}

	self.items = append(self.items, condItem{kind: condNull, conn: conn, path: path, negate: negate})
	return nil
}

/*
Implement `Builder`. An empty set never matches; its negation always matches.
The field is still validated.
*/
func (self *Cond) WhereIn(field string, vals []interface{}, conn Conn, negate bool) error {
	path, err := self.prepare(field, conn)
	if err != nil {
		return err
	}

	self.items = append(self.items, condItem{
		kind:   condIn,
		conn:   conn,
		path:   path,
		vals:   append([]interface{}(nil), vals...),
		negate: negate,
	})
	return nil
}

/*
Implement `Builder`. The group is built in a separate condition; an empty group
appends nothing.
*/
func (self *Cond) WhereGroup(fun func(Builder) error, conn Conn, negate bool) error {
	if !conn.Valid() {
		return rejectf(`unknown connective %q`, conn)
	}

	inner := Cond{Type: self.Type}
	err := fun(&inner)
	if err != nil {
		return err
	}
	if inner.IsEmpty() {
		return nil
	}

	self.items = append(self.items, condItem{kind: condGroup, conn: conn, negate: negate, group: inner.items})
	return nil
}

func (self *Cond) prepare(field string, conn Conn) (sqlb.Path, error) {
	if !conn.Valid() {
		return nil, rejectf(`unknown connective %q`, conn)
	}
	_, path, err := structFieldByJsonPath(self.Type, field)
	return sqlb.Path(path), err
}

type condKind byte

const (
	condWhere condKind = iota
	condNull
	condIn
	condGroup
)

// One predicate of `Cond`. The connective of the first item is ignored.
type condItem struct {
	kind   condKind
	conn   Conn
	path   sqlb.Path
	op     string
	like   bool
	vals   []interface{}
	negate bool
	group  []condItem
}

func appendCondItems(bui *sqlb.Bui, items []condItem) {
	for i, item := range items {
		if i > 0 {
			bui.Str(string(item.conn))
		}
		item.append(bui)
	}
}

func (self condItem) append(bui *sqlb.Bui) {
	switch self.kind {
	case condWhere:
		bui.Set(self.path.AppendExpr(bui.Get()))
		bui.Str(self.op)
		bui.Param(bui.Arg(self.vals[0]))
		if self.like {
			bui.Str(`escape '\'`)
		}

	case condNull:
		bui.Set(self.path.AppendExpr(bui.Get()))
		if self.negate {
			bui.Str(`is not null`)
		} else {
			bui.Str(`is null`)
		}

	case condIn:
		if len(self.vals) == 0 {
			if self.negate {
				bui.Str(`true`)
			} else {
				bui.Str(`false`)
			}
			return
		}

		bui.Set(self.path.AppendExpr(bui.Get()))
		if self.negate {
			bui.Str(`not in`)
		} else {
			bui.Str(`in`)
		}
		bui.Str(`(`)
		for i, val := range self.vals {
			if i > 0 {
				bui.Str(`,`)
			}
			bui.Param(bui.Arg(val))
		}
		bui.Str(`)`)

	case condGroup:
		if self.negate {
			bui.Str(`not`)
		}
		bui.Str(`(`)
		appendCondItems(bui, self.group)
		bui.Str(`)`)
	}
}
