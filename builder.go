package rql

/*
Mutable accumulator of filter predicates, populated by `Visit`. Every method
appends one predicate joined to the preceding sibling by `conn`; the first
predicate of a group ignores it.

`Cond` is the SQL implementation provided by this package. Other
implementations may target any query layer with equivalent vocabulary.
*/
type Builder interface {
	// Comparison predicate. `op` is one of `ScalarOps`.
	Where(field string, op Op, val interface{}, conn Conn) error

	// "is null", or "is not null" when `negate` is true.
	WhereNull(field string, conn Conn, negate bool) error

	// Set membership, or its negation when `negate` is true.
	WhereIn(field string, vals []interface{}, conn Conn, negate bool) error

	/*
		Nested group. The builder must call `fun` with a builder for the group's
		scope and return its error. The group itself is joined by `conn` and
		negated when `negate` is true.
	*/
	WhereGroup(fun func(Builder) error, conn Conn, negate bool) error
}
