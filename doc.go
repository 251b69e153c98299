/*
Overview

"Resource Query Language" filters for SQL. Parses RQL (and an equivalent
Lisp-style JSON form) into a small tree of nodes, and translates that tree into
predicate calls against a query builder. Includes an SQL builder based on
`sqlb`, and structured "order by" clauses.

Example query, as it might appear in a URL:

	and(eq(status,published),or(lt(rating,3),eq(deletedAt,null())))&sort(-createdAt)&limit(10)

The same filter in JSON:

	["and",
		["eq", "status", "published"],
		["or",
			["lt", "rating", 3],
			["eq", "deletedAt", null]
		]
	]

Node vocabulary

Filters consist of three node categories:

	Scalar    eq ne lt gt le ge like     comparison of a field with a value
	Array     in out                     set membership
	Logical   and or not                 grouping of other nodes

See `ParseQuery` for the full text syntax and `Query.UnmarshalJSON` for the
JSON form.

Visiting

`Visit` walks the filter and calls the methods of a `Builder`:

	comparison             Where(field, op, value, conn)
	comparison with null   WhereNull(field, conn, negate)   only "eq" and "ne"
	membership             WhereIn(field, values, conn, negate)
	grouping               WhereGroup(fun, conn, negate)

Before reaching the builder, `Glob` values are converted to "like" patterns and
`time.Time` values are formatted with `TimeFormat`. Anything the visitor doesn't
recognize is rejected with an error wrapping `ErrRejected`.

SQL

`Cond` implements `Builder` by appending SQL text with ordinal parameters. It
consults a struct type, matching fields tagged with `json` against fields
tagged with `db`, which whitelists the filterable fields and converts their
names to column names:

	type Person struct {
		Name    string     `json:"name"    db:"name"`
		Created *time.Time `json:"created" db:"created_at"`
	}

	query, err := ParseQuery(`and(eq(name,bob),gt(created,2020-01-01T00:00:00Z))`)
	panic(err)

	cond := CondFor(Person{})
	err = cond.Filter(query)
	panic(err)

	text, args := cond.Reify()

The result is roughly equivalent to the following (formatted for clarity):

	text := `("name" = $1 and "created_at" > $2)`
	args := []interface{}{"bob", "2020-01-01T00:00:00+0000"}

Orderings

`Ords` is a structured representation of SQL "order by" clauses. It can be
decoded from strings such as "name asc", from JSON:API sort parameters such as
"-created,name", or from the `sort(...)` part of an RQL query.
*/
package rql
