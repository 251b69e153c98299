package rql

import (
	"errors"
	"fmt"
)

/*
Sentinel for every input rejected by this package: unknown node categories,
unknown operators or connectives, comparisons against null with an operator
other than "eq" / "ne", unknown fields, malformed RQL text or JSON. Detect it
with `errors.Is`.
*/
var ErrRejected = errors.New(`rejected input`)

func rejectf(pattern string, args ...interface{}) error {
	return fmt.Errorf(`[rql] %w: %v`, ErrRejected, fmt.Sprintf(pattern, args...))
}

// Wraps a lower-level error, preserving it for `errors.Is` / `errors.As`.
func rejectWrap(err error, pattern string, args ...interface{}) error {
	return fmt.Errorf(`[rql] %w: %v: %v`, ErrRejected, fmt.Sprintf(pattern, args...), err)
}
