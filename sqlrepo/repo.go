/*
Package sqlrepo stores records of a single struct type in a single SQL table,
and lists them with RQL filters, orderings and windows. Queries are composed
with `sqlb` and `rql.Cond`.

The struct type describes the table: fields tagged with `db` are columns, and
their `json` tags are the names used by filters, orderings and attributes.
Only flat structs (possibly with embedded structs) are supported.

	type Article struct {
		ID     string `json:"id"     db:"id"`
		Title  string `json:"title"  db:"title"`
		Rating int64  `json:"rating" db:"rating"`
	}

	repo, err := sqlrepo.New(db, `articles`, Article{})
*/
package sqlrepo

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mitranim/refut"
	"github.com/mitranim/rql"
	"github.com/mitranim/sqlb"
	"github.com/rs/zerolog"
)

// Returned when a record with the given key doesn't exist.
var ErrNotFound = errors.New(`[sqlrepo] record not found`)

// Returned when creating a record whose key is already taken.
var ErrConflict = errors.New(`[sqlrepo] record already exists`)

// Subset of `*sql.DB` and `*sql.Tx` used by `Repo`.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

/*
SQL placeholder flavor. `sqlb` always generates Postgres-style ordinal
parameters such as "$1"; for SQLite they're rebound to "?1".
*/
type Dialect byte

const (
	Sqlite Dialect = iota
	Postgres
)

var identReg = regexp.MustCompile(`^\w+$`)
var ordinalReg = regexp.MustCompile(`\$(\d+)`)

/*
Converts Postgres-style ordinal parameters to SQLite numbered parameters:
"$1" becomes "?1". Text generated by `sqlb` carries all values as arguments,
so there are no literals to preserve.
*/
func Rebind(text string) string {
	return ordinalReg.ReplaceAllString(text, `?${1}`)
}

type column struct {
	json  string
	db    string
	index []int
}

// Repository over one table. Create with `New`.
type Repo struct {
	db      DB
	table   string
	typ     reflect.Type
	dialect Dialect
	cols    []column
	key     column
}

/*
Creates a repository for the given table. `typ` is used only as a type carrier.
The key is the column whose JSON name is "id"; it must be a string field. See
`Repo.WithKey` to use a different one.
*/
func New(db DB, table string, typ interface{}) (*Repo, error) {
	rtype := reflect.TypeOf(typ)
	for rtype != nil && rtype.Kind() == reflect.Ptr {
		rtype = rtype.Elem()
	}
	if rtype == nil || rtype.Kind() != reflect.Struct {
		return nil, fmt.Errorf(`[sqlrepo] expected a struct type, got %v`, rtype)
	}
	if !identReg.MatchString(table) {
		return nil, fmt.Errorf(`[sqlrepo] invalid table name %q`, table)
	}

	self := &Repo{db: db, table: table, typ: rtype}

	err := refut.TraverseStructRtype(rtype, func(sfield reflect.StructField, index []int) error {
		if sfield.Anonymous && sfield.Type.Kind() == reflect.Struct {
			return nil
		}

		colName := sqlb.FieldDbName(sfield)
		if colName == `` {
			return nil
		}
		if !identReg.MatchString(colName) {
			return fmt.Errorf(`[sqlrepo] invalid column name %q in type %v`, colName, rtype)
		}

		self.cols = append(self.cols, column{
			json:  sqlb.FieldJsonName(sfield),
			db:    colName,
			index: append([]int(nil), index...),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(self.cols) == 0 {
		return nil, fmt.Errorf(`[sqlrepo] type %v has no fields with "db" tags`, rtype)
	}

	return self.WithKey(`id`)
}

/*
Returns a copy using the field with the given JSON name as the key. The field
must be a string column.
*/
func (self Repo) WithKey(jsonName string) (*Repo, error) {
	for _, col := range self.cols {
		if col.json != jsonName {
			continue
		}
		if self.typ.FieldByIndex(col.index).Type.Kind() != reflect.String {
			return nil, fmt.Errorf(`[sqlrepo] key field %q of type %v must be a string`, jsonName, self.typ)
		}
		self.key = col
		return &self, nil
	}
	return nil, fmt.Errorf(`[sqlrepo] no column with JSON name %q in type %v`, jsonName, self.typ)
}

// Returns a copy generating SQL for the given dialect.
func (self Repo) WithDialect(dialect Dialect) *Repo {
	self.dialect = dialect
	return &self
}

// Struct type of the records.
func (self *Repo) Type() reflect.Type { return self.typ }

// Table name.
func (self *Repo) Table() string { return self.table }

// New condition whitelisting the fields of the record type.
func (self *Repo) Cond() rql.Cond { return rql.Cond{Type: self.typ} }

// New orderings consulting the fields of the record type.
func (self *Repo) Ords() rql.Ords { return rql.Ords{Type: self.typ} }

// Number of records matching the query's filter.
func (self *Repo) Count(ctx context.Context, query rql.Query) (int, error) {
	cond := self.Cond()
	err := cond.Filter(query)
	if err != nil {
		return 0, err
	}

	var bui sqlb.Bui
	bui.Str(`select count(*) from ` + quote(self.table) + ` where`)
	bui.Set(cond.AppendExpr(bui.Get()))

	rows, err := self.query(ctx, bui)
	if err != nil {
		return 0, fmt.Errorf(`[sqlrepo] failed to count %q: %w`, self.table, err)
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		err = rows.Scan(&count)
		if err != nil {
			return 0, err
		}
	}
	return count, rows.Err()
}

/*
Records matching the query's filter, in the given order. A positive `limit`
restricts the number of records; `offset` skips records. Each element is a
pointer to a new value of the record type.
*/
func (self *Repo) List(ctx context.Context, query rql.Query, ords rql.Ords, limit, offset int) ([]interface{}, error) {
	cond := self.Cond()
	err := cond.Filter(query)
	if err != nil {
		return nil, err
	}

	var bui sqlb.Bui
	bui.Str(self.selectText() + ` where`)
	bui.Set(cond.AppendExpr(bui.Get()))
	bui.Set(ords.AppendExpr(bui.Get()))

	if limit > 0 {
		bui.Str(`limit`)
		bui.Param(bui.Arg(limit))
	} else if offset > 0 && self.dialect == Sqlite {
		bui.Str(`limit -1`)
	}
	if offset > 0 {
		bui.Str(`offset`)
		bui.Param(bui.Arg(offset))
	}

	return self.fetch(ctx, bui)
}

// Record with the given key, or `ErrNotFound`.
func (self *Repo) Find(ctx context.Context, id string) (interface{}, error) {
	var bui sqlb.Bui
	bui.Str(self.selectText() + ` where ` + quote(self.key.db) + ` =`)
	bui.Param(bui.Arg(id))

	out, err := self.fetch(ctx, bui)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf(`%w: %q in %q`, ErrNotFound, id, self.table)
	}
	return out[0], nil
}

/*
Inserts a record built from JSON attributes. An empty `id` is replaced with a
random UUID. A client-provided `id` that is already taken returns
`ErrConflict`. Unknown attributes are rejected with `rql.ErrRejected`.
*/
func (self *Repo) Create(ctx context.Context, id string, attrs map[string]interface{}) (interface{}, error) {
	if id == `` {
		id = uuid.NewString()
	} else {
		_, err := self.Find(ctx, id)
		if err == nil {
			return nil, fmt.Errorf(`%w: %q in %q`, ErrConflict, id, self.table)
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	rval := reflect.New(self.typ)
	err := self.decode(attrs, rval)
	if err != nil {
		return nil, err
	}
	self.setKey(rval, id)

	var bui sqlb.Bui
	bui.Str(`insert into ` + quote(self.table) + ` (` + self.colList() + `) values (`)
	for i, col := range self.cols {
		if i > 0 {
			bui.Str(`,`)
		}
		bui.Param(bui.Arg(rval.Elem().FieldByIndex(col.index).Interface()))
	}
	bui.Str(`)`)

	_, err = self.exec(ctx, bui)
	if err != nil {
		return nil, fmt.Errorf(`[sqlrepo] failed to insert into %q: %w`, self.table, err)
	}
	return rval.Interface(), nil
}

/*
Overwrites every column of an existing record with the given attributes.
Attributes that are absent reset their columns to zero values.
*/
func (self *Repo) Replace(ctx context.Context, id string, attrs map[string]interface{}) (interface{}, error) {
	rval := reflect.New(self.typ)
	err := self.decode(attrs, rval)
	if err != nil {
		return nil, err
	}
	self.setKey(rval, id)
	return self.update(ctx, id, rval)
}

// Updates only the columns present in the attributes.
func (self *Repo) Patch(ctx context.Context, id string, attrs map[string]interface{}) (interface{}, error) {
	prev, err := self.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	rval := reflect.ValueOf(prev)
	err = self.decode(attrs, rval)
	if err != nil {
		return nil, err
	}
	self.setKey(rval, id)
	return self.update(ctx, id, rval)
}

// Deletes the record with the given key, or returns `ErrNotFound`.
func (self *Repo) Delete(ctx context.Context, id string) error {
	var bui sqlb.Bui
	bui.Str(`delete from ` + quote(self.table) + ` where ` + quote(self.key.db) + ` =`)
	bui.Param(bui.Arg(id))

	res, err := self.exec(ctx, bui)
	if err != nil {
		return fmt.Errorf(`[sqlrepo] failed to delete from %q: %w`, self.table, err)
	}
	return self.affected(res, id)
}

func (self *Repo) update(ctx context.Context, id string, rval reflect.Value) (interface{}, error) {
	var bui sqlb.Bui
	bui.Str(`update ` + quote(self.table) + ` set`)

	first := true
	for _, col := range self.cols {
		if col.db == self.key.db {
			continue
		}
		if !first {
			bui.Str(`,`)
		}
		first = false
		bui.Str(quote(col.db) + ` =`)
		bui.Param(bui.Arg(rval.Elem().FieldByIndex(col.index).Interface()))
	}
	bui.Str(`where ` + quote(self.key.db) + ` =`)
	bui.Param(bui.Arg(id))

	res, err := self.exec(ctx, bui)
	if err != nil {
		return nil, fmt.Errorf(`[sqlrepo] failed to update %q: %w`, self.table, err)
	}
	err = self.affected(res, id)
	if err != nil {
		return nil, err
	}
	return rval.Interface(), nil
}

func (self *Repo) affected(res sql.Result, id string) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf(`%w: %q in %q`, ErrNotFound, id, self.table)
	}
	return nil
}

func (self *Repo) decode(attrs map[string]interface{}, rval reflect.Value) error {
	if len(attrs) == 0 {
		return nil
	}

	input, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf(`[sqlrepo] %w: failed to encode attributes: %v`, rql.ErrRejected, err)
	}

	dec := json.NewDecoder(bytes.NewReader(input))
	dec.DisallowUnknownFields()
	err = dec.Decode(rval.Interface())
	if err != nil {
		return fmt.Errorf(`[sqlrepo] %w: invalid attributes for %q: %v`, rql.ErrRejected, self.table, err)
	}
	return nil
}

func (self *Repo) setKey(rval reflect.Value, id string) {
	rval.Elem().FieldByIndex(self.key.index).SetString(id)
}

func (self *Repo) fetch(ctx context.Context, bui sqlb.Bui) ([]interface{}, error) {
	rows, err := self.query(ctx, bui)
	if err != nil {
		return nil, fmt.Errorf(`[sqlrepo] failed to select from %q: %w`, self.table, err)
	}
	defer rows.Close()

	out := []interface{}{}
	for rows.Next() {
		rval := reflect.New(self.typ)
		dest := make([]interface{}, len(self.cols))
		for i, col := range self.cols {
			dest[i] = rval.Elem().FieldByIndex(col.index).Addr().Interface()
		}

		err = rows.Scan(dest...)
		if err != nil {
			return nil, fmt.Errorf(`[sqlrepo] failed to scan %q: %w`, self.table, err)
		}
		out = append(out, rval.Interface())
	}
	return out, rows.Err()
}

func (self *Repo) query(ctx context.Context, bui sqlb.Bui) (*sql.Rows, error) {
	text, args := self.reify(ctx, bui)
	return self.db.QueryContext(ctx, text, args...)
}

func (self *Repo) exec(ctx context.Context, bui sqlb.Bui) (sql.Result, error) {
	text, args := self.reify(ctx, bui)
	return self.db.ExecContext(ctx, text, args...)
}

func (self *Repo) reify(ctx context.Context, bui sqlb.Bui) (string, []interface{}) {
	text, args := bui.Reify()
	if self.dialect == Sqlite {
		text = Rebind(text)
	}

	zerolog.Ctx(ctx).Debug().
		Str(`table`, self.table).
		Str(`sql`, text).
		Int(`args`, len(args)).
		Msg(`executing query`)
	return text, args
}

func (self *Repo) selectText() string {
	return `select ` + self.colList() + ` from ` + quote(self.table)
}

func (self *Repo) colList() string {
	names := make([]string, len(self.cols))
	for i, col := range self.cols {
		names[i] = quote(col.db)
	}
	return strings.Join(names, `, `)
}

func quote(ident string) string { return `"` + ident + `"` }
