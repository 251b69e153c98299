package rql

/*
Name of an RQL operation. Comparison, membership and logical nodes share this
type; which names are legal depends on the node category. See `ScalarOps`,
`ArrayOps`, `LogicalOps`.
*/
type Op string

const (
	OpEq   Op = `eq`
	OpNe   Op = `ne`
	OpLt   Op = `lt`
	OpGt   Op = `gt`
	OpLe   Op = `le`
	OpGe   Op = `ge`
	OpLike Op = `like`

	OpIn  Op = `in`
	OpOut Op = `out`

	OpAnd Op = `and`
	OpOr  Op = `or`
	OpNot Op = `not`
)

/*
Whitelist of comparison operators, with the SQL tokens they correspond to.
Builders are free to ignore the tokens; `Cond` uses them.
*/
var ScalarOps = map[Op]string{
	OpEq:   `=`,
	OpNe:   `<>`,
	OpLt:   `<`,
	OpGt:   `>`,
	OpLe:   `<=`,
	OpGe:   `>=`,
	OpLike: `like`,
}

// Whitelist of membership operators. The value is the negation flag.
var ArrayOps = map[Op]bool{
	OpIn:  false,
	OpOut: true,
}

// Whitelist of logical operators.
var LogicalOps = map[Op]bool{
	OpAnd: true,
	OpOr:  true,
	OpNot: true,
}

// SQL token for a comparison operator, or "" if the operator is unknown.
func (self Op) Sql() string { return ScalarOps[self] }

/*
Boolean connective joining a predicate to the preceding sibling within the same
group. The first predicate in a group ignores its connective.
*/
type Conn string

const (
	ConnAnd Conn = `and`
	ConnOr  Conn = `or`
)

// Reports whether the connective is one of `ConnAnd` / `ConnOr`.
func (self Conn) Valid() bool { return self == ConnAnd || self == ConnOr }

/*
Node of an RQL tree. Filter nodes are `Scalar`, `Array` and `Logical`. The
parser also produces `Select`, `Sort` and `Limit`, which are collected into
`Query` and are rejected in filter position.
*/
type Node interface{ NodeName() string }

/*
Comparison node such as:

	eq(name,bob)
	lt(age,30)
	like(title,*go*)

A nil `.Value` means "null", legal only with `OpEq` and `OpNe`.
*/
type Scalar struct {
	Op    Op
	Field string
	Value interface{}
}

func (self Scalar) NodeName() string { return string(self.Op) }

// Membership node such as `in(id,(1,2,3))` or `out(status,(draft))`.
type Array struct {
	Op     Op
	Field  string
	Values []interface{}
}

func (self Array) NodeName() string { return string(self.Op) }

/*
Grouping node such as `and(eq(a,1),eq(b,2))`. Children are combined with the
node's own operator; `not` combines them with "and" and negates the group.
*/
type Logical struct {
	Op      Op
	Queries []Node
}

func (self Logical) NodeName() string { return string(self.Op) }

// Projection node: `select(a,b)`.
type Select struct{ Fields []string }

func (Select) NodeName() string { return `select` }

// Ordering node: `sort(+a,-b)`. See `Ords.FromSort`.
type Sort struct{ Fields []SortField }

func (Sort) NodeName() string { return `sort` }

// Single ordering term of a `Sort` node.
type SortField struct {
	Field  string
	IsDesc bool
}

// Windowing node: `limit(10)` or `limit(10,20)`.
type Limit struct {
	Limit  int
	Offset int
}

func (Limit) NodeName() string { return `limit` }

/*
Full parsed query. `.Filter` is nil when the query has no filter part; visiting
such a query leaves the builder untouched.
*/
type Query struct {
	Filter Node
	Select *Select
	Sort   *Sort
	Limit  *Limit
}

// True if the query has no parts at all.
func (self Query) IsEmpty() bool {
	return self.Filter == nil && self.Select == nil && self.Sort == nil && self.Limit == nil
}

// Shortcut for `Logical{OpAnd, nodes}`.
func And(nodes ...Node) Logical { return Logical{Op: OpAnd, Queries: nodes} }

// Shortcut for `Logical{OpOr, nodes}`.
func Or(nodes ...Node) Logical { return Logical{Op: OpOr, Queries: nodes} }

// Shortcut for `Logical{OpNot, nodes}`.
func Not(nodes ...Node) Logical { return Logical{Op: OpNot, Queries: nodes} }

// Shortcut for `Scalar{OpEq, field, val}`.
func Eq(field string, val interface{}) Scalar { return Scalar{Op: OpEq, Field: field, Value: val} }

// Shortcut for `Scalar{OpNe, field, val}`.
func Ne(field string, val interface{}) Scalar { return Scalar{Op: OpNe, Field: field, Value: val} }

// Shortcut for `Array{OpIn, field, vals}`.
func In(field string, vals ...interface{}) Array {
	return Array{Op: OpIn, Field: field, Values: vals}
}

// Shortcut for `Array{OpOut, field, vals}`.
func Out(field string, vals ...interface{}) Array {
	return Array{Op: OpOut, Field: field, Values: vals}
}
