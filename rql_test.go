package rql

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"
)

type Internal struct {
	InternalTime *time.Time `json:"internalTime" db:"internal_time"`
}

type External struct {
	ExternalName string   `json:"externalName" db:"external_name"`
	Rating       int64    `json:"rating"       db:"rating"`
	Internal     Internal `json:"internal"     db:"internal"`
	Secret       string   `json:"secret"`
}

/*
Records builder calls as a tree. Groups contain the calls made within their
scope.
*/
type Recorder struct {
	Calls []Call
	Err   error
}

type Call struct {
	Method string
	Field  string
	Op     Op
	Val    interface{}
	Vals   []interface{}
	Conn   Conn
	Negate bool
	Group  []Call
}

var _ = Builder((*Recorder)(nil))

func (self *Recorder) Where(field string, op Op, val interface{}, conn Conn) error {
	self.Calls = append(self.Calls, Call{Method: `Where`, Field: field, Op: op, Val: val, Conn: conn})
	return self.Err
}

func (self *Recorder) WhereNull(field string, conn Conn, negate bool) error {
	self.Calls = append(self.Calls, Call{Method: `WhereNull`, Field: field, Conn: conn, Negate: negate})
	return self.Err
}

func (self *Recorder) WhereIn(field string, vals []interface{}, conn Conn, negate bool) error {
	self.Calls = append(self.Calls, Call{Method: `WhereIn`, Field: field, Vals: vals, Conn: conn, Negate: negate})
	return self.Err
}

func (self *Recorder) WhereGroup(fun func(Builder) error, conn Conn, negate bool) error {
	inner := Recorder{Err: self.Err}
	err := fun(&inner)
	self.Calls = append(self.Calls, Call{Method: `WhereGroup`, Conn: conn, Negate: negate, Group: inner.Calls})
	return err
}

var (
	spaceReg      = regexp.MustCompile(`\s+`)
	parenOpenReg  = regexp.MustCompile(`\(\s+`)
	parenCloseReg = regexp.MustCompile(`\s+\)`)
	commaReg      = regexp.MustCompile(`\s+,`)
)

// Normalizes insignificant whitespace in generated SQL.
func normSql(str string) string {
	str = spaceReg.ReplaceAllString(str, ` `)
	str = parenOpenReg.ReplaceAllString(str, `(`)
	str = parenCloseReg.ReplaceAllString(str, `)`)
	str = commaReg.ReplaceAllString(str, `,`)
	return strings.TrimSpace(str)
}

func timeFrom(str string) time.Time {
	inst, err := time.Parse(time.RFC3339, str)
	must(err)
	return inst
}

func rejected(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf(`expected an error, got nil`)
	}
	if !errors.Is(err, ErrRejected) {
		t.Fatalf(`expected an error wrapping ErrRejected, got %+v`, err)
	}
}

func try(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf(`unexpected error: %+v`, err)
	}
}

func eq(t testing.TB, exp, act interface{}) {
	t.Helper()
	if !reflect.DeepEqual(exp, act) {
		t.Fatalf(`
expected (detailed):
	%#[1]v
actual (detailed):
	%#[2]v
expected (simple):
	%[1]v
actual (simple):
	%[2]v
`, exp, act)
	}
}
