package rql

import (
	"bytes"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unsafe"

	"github.com/mitranim/refut"
	"github.com/mitranim/sqlb"
)

const dottedPath = `(?:\w+\.)*\w+`

var dottedPathReg = regexp.MustCompile(`^` + dottedPath + `$`)
var ordReg = regexp.MustCompile(`^(` + dottedPath + `)\s+(?i)(asc|desc)$`)
var sortTermReg = regexp.MustCompile(`^([+-]?)(` + dottedPath + `)$`)

func rec(ptr *error) {
	val := recover()
	if val == nil {
		return
	}

	recErr, ok := val.(error)
	if ok {
		*ptr = recErr
		return
	}

	panic(val)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func exprAppend(expr sqlb.Expr, text []byte) []byte {
	text, _ = expr.AppendExpr(text, nil)
	return text
}

func exprString(expr sqlb.Expr) string {
	return bytesToMutableString(exprAppend(expr, nil))
}

func isJsonDict(val []byte) bool {
	return firstMeaningfulByte(val) == '{'
}

func isJsonList(val []byte) bool {
	return firstMeaningfulByte(val) == '['
}

func isJsonString(val []byte) bool {
	return firstMeaningfulByte(val) == '"'
}

func firstMeaningfulByte(val []byte) byte {
	val = bytes.TrimSpace(val)
	if len(val) > 0 {
		return val[0]
	}
	return 0
}

var errBreak = errors.New("")

/*
Finds the struct field that has the given JSON field name. The field may be in
an embedded struct, but not in any non-embedded nested structs.
*/
func sfieldByJsonName(rtype reflect.Type, name string, out *reflect.StructField) error {
	if rtype == nil {
		return rejectf(`can't find field %q: no type provided`, name)
	}
	if rtype.Kind() != reflect.Struct {
		return rejectf(`can't find field %q: %v is not a struct type`, name, rtype)
	}

	err := refut.TraverseStructRtype(rtype, func(sfield reflect.StructField, _ []int) error {
		if sqlb.FieldJsonName(sfield) == name {
			*out = sfield
			return errBreak
		}
		return nil
	})
	if errors.Is(err, errBreak) {
		return nil
	}
	if err != nil {
		return err
	}

	return rejectf(`no struct field corresponding to JSON field name %q in type %v`, name, rtype)
}

/*
Takes a struct type and a dot-separated path of JSON field names
like "one.two.three". Finds the nested struct field corresponding to that path,
returning an error if a field could not be found. The returned path consists of
DB column names.

Note that this can't use `reflect.Value.FieldByName` because it searches by JSON
field name, not by Go field name.
*/
func structFieldByJsonPath(rtype reflect.Type, pathStr string) (sfield reflect.StructField, path []string, err error) {
	if !dottedPathReg.MatchString(pathStr) {
		err = rejectf(`expected a valid dot-separated identifier, got %q`, pathStr)
		return
	}

	if rtype == nil {
		err = rejectf(`can't find field by path %q: no type provided`, pathStr)
		return
	}

	path = strings.Split(pathStr, ".")

	for i, segment := range path {
		err = sfieldByJsonName(typeElem(rtype), segment, &sfield)
		if err != nil {
			return
		}

		colName := sqlb.FieldDbName(sfield)
		if colName == "" || strings.Contains(colName, `"`) {
			err = rejectf(`no column name corresponding to %q in type %v for path %q`,
				segment, rtype, pathStr)
			return
		}

		path[i] = colName
		rtype = sfield.Type
	}
	return
}

/*
Allocation-free conversion. Reinterprets a byte slice as a string. Borrowed from
the standard library. Reasonably safe. Should not be used when the underlying
byte array is volatile, for example when it's part of a scratch buffer during
SQL scanning.
*/
func bytesToMutableString(bytes []byte) string {
	return *(*string)(unsafe.Pointer(&bytes))
}

func typeElem(typ reflect.Type) reflect.Type {
	for typ != nil && (typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice) {
		typ = typ.Elem()
	}
	return typ
}

func elemTypeOf(typ interface{}) reflect.Type {
	return typeElem(reflect.TypeOf(typ))
}
