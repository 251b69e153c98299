package rql

import (
	"testing"

	"github.com/mitranim/sqlb"
)

func condText(cond Cond) string { return normSql(cond.String()) }

func condArgs(cond Cond) []interface{} {
	_, args := cond.Reify()
	return args
}

func TestCondWhere(t *testing.T) {
	t.Run(`single`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Where(`externalName`, OpEq, `bob`, ConnAnd))
		eq(t, `"external_name" = $1`, condText(cond))
		eq(t, []interface{}{`bob`}, condArgs(cond))
	})

	t.Run(`nested_path`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Where(`internal.internalTime`, OpLt, `2016-01-01T00:00:00+0000`, ConnAnd))
		eq(t, `("internal")."internal_time" < $1`, condText(cond))
	})

	t.Run(`like`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Where(`externalName`, OpLike, `%bo_`, ConnAnd))
		eq(t, `"external_name" like $1 escape '\'`, condText(cond))
		eq(t, []interface{}{`%bo_`}, condArgs(cond))
	})

	t.Run(`connectives`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Where(`externalName`, OpEq, `bob`, ConnOr))
		try(t, cond.Where(`rating`, OpGe, 3, ConnOr))
		try(t, cond.Where(`rating`, OpNe, 5, ConnAnd))
		eq(t, `"external_name" = $1 or "rating" >= $2 and "rating" <> $3`, condText(cond))
		eq(t, []interface{}{`bob`, 3, 5}, condArgs(cond))
	})

	t.Run(`reject_unknown_field`, func(t *testing.T) {
		cond := CondFor(External{})
		rejected(t, cond.Where(`missing`, OpEq, 1, ConnAnd))
		rejected(t, cond.Where(`secret`, OpEq, 1, ConnAnd))
		rejected(t, cond.Where(`external_name`, OpEq, 1, ConnAnd))
		eq(t, true, cond.IsEmpty())
	})

	t.Run(`reject_unknown_operator`, func(t *testing.T) {
		cond := CondFor(External{})
		rejected(t, cond.Where(`rating`, OpIn, 1, ConnAnd))
		eq(t, true, cond.IsEmpty())
	})

	t.Run(`reject_unknown_connective`, func(t *testing.T) {
		cond := CondFor(External{})
		rejected(t, cond.Where(`rating`, OpEq, 1, `xor`))
		eq(t, true, cond.IsEmpty())
	})

	t.Run(`reject_without_type`, func(t *testing.T) {
		var cond Cond
		rejected(t, cond.Where(`rating`, OpEq, 1, ConnAnd))
	})
}

func TestCondWhereNull(t *testing.T) {
	cond := CondFor(External{})
	try(t, cond.WhereNull(`internal.internalTime`, ConnAnd, false))
	try(t, cond.WhereNull(`externalName`, ConnOr, true))
	eq(t, `("internal")."internal_time" is null or "external_name" is not null`, condText(cond))
	eq(t, 0, len(condArgs(cond)))
}

func TestCondWhereIn(t *testing.T) {
	t.Run(`in`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.WhereIn(`rating`, []interface{}{1, 2, 3}, ConnAnd, false))
		eq(t, `"rating" in ($1, $2, $3)`, condText(cond))
		eq(t, []interface{}{1, 2, 3}, condArgs(cond))
	})

	t.Run(`not_in`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.WhereIn(`rating`, []interface{}{1, 2, 3}, ConnAnd, true))
		eq(t, `"rating" not in ($1, $2, $3)`, condText(cond))
	})

	t.Run(`empty`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.WhereIn(`rating`, nil, ConnAnd, false))
		try(t, cond.WhereIn(`rating`, nil, ConnOr, true))
		eq(t, `false or true`, condText(cond))
	})
}

func TestCondWhereGroup(t *testing.T) {
	t.Run(`renumbers_arguments`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Where(`rating`, OpGt, 1, ConnAnd))
		try(t, cond.WhereGroup(func(bui Builder) error {
			try(t, bui.Where(`externalName`, OpEq, `one`, ConnOr))
			return bui.Where(`externalName`, OpEq, `two`, ConnOr)
		}, ConnAnd, true))

		eq(t, `"rating" > $1 and not ("external_name" = $2 or "external_name" = $3)`, condText(cond))
		eq(t, []interface{}{1, `one`, `two`}, condArgs(cond))
	})

	t.Run(`skips_empty`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.WhereGroup(func(Builder) error { return nil }, ConnAnd, false))
		eq(t, true, cond.IsEmpty())
	})
}

func TestCondFilter(t *testing.T) {
	t.Run(`parsed`, func(t *testing.T) {
		query, err := ParseQuery(`and(eq(externalName,bob),or(lt(internal.internalTime,2016-01-01T00:00:00Z),eq(externalName,null())))`)
		try(t, err)

		cond := CondFor(External{})
		try(t, cond.Filter(query))

		eq(t,
			`("external_name" = $1 and (("internal")."internal_time" < $2 or "external_name" is null))`,
			condText(cond),
		)
		eq(t, []interface{}{`bob`, `2016-01-01T00:00:00+0000`}, condArgs(cond))
	})

	t.Run(`appends_with_and`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Where(`rating`, OpEq, 5, ConnAnd))
		try(t, cond.Filter(Query{Filter: In(`externalName`, `a`, `b`)}))
		eq(t, `"rating" = $1 and "external_name" in ($2, $3)`, condText(cond))
		eq(t, []interface{}{5, `a`, `b`}, condArgs(cond))
	})

	t.Run(`empty_query`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Filter(Query{}))
		eq(t, true, cond.IsEmpty())
	})

	t.Run(`atomic_on_error`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Where(`rating`, OpEq, 5, ConnAnd))
		rejected(t, cond.Filter(Query{Filter: And(Eq(`externalName`, `bob`), Eq(`missing`, 1))}))
		eq(t, `"rating" = $1`, condText(cond))
		eq(t, []interface{}{5}, condArgs(cond))
	})
}

func TestCondAppendExpr(t *testing.T) {
	t.Run(`empty_is_true`, func(t *testing.T) {
		text, args := sqlb.Reify(sqlb.Str(`select * from externals where`), CondFor(External{}))
		eq(t, `select * from externals where true`, text)
		eq(t, 0, len(args))
	})

	t.Run(`renumbers_after_preceding_args`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Filter(Query{Filter: Eq(`rating`, 3)}))

		bui := sqlb.Bui{Text: []byte(`select * from externals where "external_name" = $1 and`), Args: []interface{}{`bob`}}
		bui.Set(cond.AppendExpr(bui.Get()))

		eq(t, `select * from externals where "external_name" = $1 and "rating" = $2`, bui.String())
		eq(t, []interface{}{`bob`, 3}, bui.Args)
	})

	t.Run(`reusable`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.Where(`rating`, OpGt, 1, ConnAnd))

		text, args := sqlb.Reify(cond, sqlb.Str(`or`), cond)
		eq(t, `"rating" > $1 or "rating" > $2`, text)
		eq(t, []interface{}{1, 1}, args)
	})

	t.Run(`exact_text`, func(t *testing.T) {
		cond := CondFor(External{})
		try(t, cond.WhereIn(`rating`, []interface{}{1, 2}, ConnAnd, false))
		try(t, cond.WhereGroup(func(bui Builder) error {
			return bui.WhereIn(`internal.internalTime`, []interface{}{`x`}, ConnOr, true)
		}, ConnAnd, true))

		eq(t, `"rating" in ($1, $2) and not (("internal")."internal_time" not in ($3))`, cond.String())
	})
}
