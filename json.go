package rql

import (
	"bytes"
	"encoding/json"
)

/*
Decodes the filter from Lisp-style JSON lists. The first element of every list
names the operation; the remaining elements are its arguments:

	["and",
		["eq", "name", "bob"],
		["or",
			["lt", "age", 30],
			["eq", "deletedAt", null]
		],
		["in", "id", [1, 2, 3]],
		["like", "title", "*go*"]
	]

String values of "like" are decoded as `Glob`. Integers are decoded as `int64`,
other numbers as `float64`. JSON `null` (the whole input) means "no filter".
Only `.Filter` is modified.
*/
func (self *Query) UnmarshalJSON(input []byte) error {
	node, err := DecodeNode(input)
	if err != nil {
		return err
	}
	self.Filter = node
	return nil
}

// Decodes a single filter node from JSON. See `Query.UnmarshalJSON`.
func DecodeNode(input []byte) (_ Node, err error) {
	defer rec(&err)
	if isJsonNull(input) {
		return nil, nil
	}
	return decodeNode(input), nil
}

func decodeNode(input []byte) Node {
	if !isJsonList(input) {
		panic(rejectf(`expected a JSON list, found %q`, input))
	}

	var list []json.RawMessage
	err := json.Unmarshal(input, &list)
	if err != nil {
		panic(rejectWrap(err, `failed to unmarshal as JSON list`))
	}

	if !(len(list) > 0) {
		panic(rejectf(`lists must have at least one element, found empty list`))
	}

	head, args := list[0], list[1:]
	if !isJsonString(head) {
		panic(rejectf(`first list element must be a string, found %q`, head))
	}

	op := Op(decodeString(head))

	if _, ok := ScalarOps[op]; ok {
		return decodeScalar(op, args)
	}
	if _, ok := ArrayOps[op]; ok {
		return decodeArray(op, args)
	}
	if LogicalOps[op] {
		return decodeLogical(op, args)
	}
	panic(rejectf(`unknown operation %q`, op))
}

func decodeScalar(op Op, args []json.RawMessage) Node {
	if len(args) != 2 {
		panic(rejectf(`operation %q must have exactly 2 arguments, found %v`, op, len(args)))
	}

	val := decodeValue(args[1])
	if str, ok := val.(string); ok && op == OpLike {
		val = Glob(str)
	}
	return Scalar{Op: op, Field: decodeField(args[0]), Value: val}
}

func decodeArray(op Op, args []json.RawMessage) Node {
	if len(args) != 2 {
		panic(rejectf(`operation %q must have exactly 2 arguments, found %v`, op, len(args)))
	}
	if !isJsonList(args[1]) {
		panic(rejectf(`operation %q expects a list of values, found %q`, op, args[1]))
	}

	var list []json.RawMessage
	err := json.Unmarshal(args[1], &list)
	if err != nil {
		panic(rejectWrap(err, `failed to unmarshal values of %q`, op))
	}

	vals := make([]interface{}, len(list))
	for i, elem := range list {
		vals[i] = decodeValue(elem)
	}
	return Array{Op: op, Field: decodeField(args[0]), Values: vals}
}

func decodeLogical(op Op, args []json.RawMessage) Node {
	if !(len(args) > 0) {
		panic(rejectf(`logical operation %q must have at least 1 argument, found 0`, op))
	}

	nodes := make([]Node, len(args))
	for i, arg := range args {
		nodes[i] = decodeNode(arg)
	}
	return Logical{Op: op, Queries: nodes}
}

func decodeField(input []byte) string {
	if !isJsonString(input) {
		panic(rejectf(`field name must be a string, found %q`, input))
	}
	field := decodeString(input)
	if !dottedPathReg.MatchString(field) {
		panic(rejectf(`expected a valid dot-separated identifier, got %q`, field))
	}
	return field
}

func decodeString(input []byte) string {
	var out string
	err := json.Unmarshal(input, &out)
	if err != nil {
		panic(rejectWrap(err, `failed to unmarshal JSON string`))
	}
	return out
}

// Should be used only for strings, numbers, bools, nulls.
func decodeValue(input []byte) interface{} {
	if isJsonDict(input) || isJsonList(input) {
		panic(rejectf(`unexpected composite value %q`, input))
	}

	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var val interface{}
	err := dec.Decode(&val)
	if err != nil {
		panic(rejectWrap(err, `failed to unmarshal JSON value`))
	}

	num, ok := val.(json.Number)
	if !ok {
		return val
	}
	if out, err := num.Int64(); err == nil {
		return out
	}
	out, err := num.Float64()
	if err != nil {
		panic(rejectWrap(err, `failed to decode number %q`, num))
	}
	return out
}

func isJsonNull(input []byte) bool {
	return bytes.Equal(bytes.TrimSpace(input), []byte(`null`))
}
