package acorntape

import (
	"fmt"
	"runtime"
)

// Because sometimes it's really convenient to have C's ternary ?:
func IfThenElse[T any](x bool, a T, b T) T { //nolint:ireturn
	if x {
		return a
	} else {
		return b
	}
}

// Can't be "assert" because of conflicts with stretchr/testify/assert, but otherwise, it's compatible enough
func Assert(t bool) {
	if !t {
		_, file, line, _ := runtime.Caller(1)
		panic(fmt.Sprintf("Assertion failed at %s:%d", file, line))
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	stack
 *
 * Purpose:	Checkpoint storage for the decoders.
 *
 * Description:	Only push and pop are offered.  There is no indexed
 *		access so a saved state can only ever be restored or
 *		dropped in the reverse order it was saved.
 *
 *--------------------------------------------------------------------*/

type stack[T any] struct {
	items []T
}

func (s *stack[T]) push(v T) {
	s.items = append(s.items, v)
}

// Underflow means a rollback without a checkpoint.
func (s *stack[T]) pop() T {
	Assert(len(s.items) > 0)

	var v = s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]

	return v
}
