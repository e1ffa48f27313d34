package wireproto

import (
	"bytes"
	"fmt"
)

// This file implements the combinator kernel described in spec §4.1:
// primitive parsers over a byte slice, each returning one of
// {Done(rest, value), Incomplete, Error}. Backtracking is only safe
// across alternatives that consumed zero bytes, or via the "complete"
// variants used when the caller guarantees no further bytes arrive
// (e.g. because an enclosing length-prefixed field has already fixed
// the input boundary).

// ErrEmptyInput is returned by the integer parsers (integer,
// integerComplete) given an empty prefix, per spec §4.1 and testable
// property P5.
var ErrEmptyInput = fmt.Errorf("wireproto: empty input where a token was expected")

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlnum(b byte) bool { return isAlpha(b) || isDigit(b) }

func isIdentStart(b byte) bool { return isAlpha(b) || b == '_' }

func isIdentAlnumCont(b byte) bool { return isAlnum(b) || b == '_' }

// isIdentByte matches the loose `ident` grammar used for bare command
// arguments: [A-Za-z0-9_%-]+.
func isIdentByte(b byte) bool {
	return isAlnum(b) || b == '_' || b == '%' || b == '-'
}

// integer greedily consumes ASCII digits. If the run reaches
// end-of-input it is Incomplete (a later digit may still arrive); an
// empty prefix is an Error.
func integer(input []byte) result[uint64] {
	i := 0
	for i < len(input) && isDigit(input[i]) {
		i++
	}
	if i == len(input) {
		return incomplete[uint64]()
	}
	if i == 0 {
		return errResult[uint64](ErrEmptyInput)
	}

	var v uint64
	for _, b := range input[:i] {
		v = v*10 + uint64(b-'0')
	}
	return done(input[i:], v)
}

// integerComplete is the EOF-terminated variant: the caller guarantees
// input is the entire remaining slice, so a digit run ending at the
// slice boundary is Done, not Incomplete.
func integerComplete(input []byte) result[uint64] {
	i := 0
	for i < len(input) && isDigit(input[i]) {
		i++
	}
	if i == 0 {
		return errResult[uint64](ErrEmptyInput)
	}
	var v uint64
	for _, b := range input[:i] {
		v = v*10 + uint64(b-'0')
	}
	return done(input[i:], v)
}

// identAlphanum matches [A-Za-z_][A-Za-z0-9_]*, incomplete only if the
// run reaches end-of-input.
func identAlphanum(input []byte) result[[]byte] {
	if len(input) == 0 {
		return incomplete[[]byte]()
	}
	if !isIdentStart(input[0]) {
		return errResult[[]byte](fmt.Errorf("wireproto: identifier must start with a letter or underscore"))
	}
	i := 1
	for i < len(input) && isIdentAlnumCont(input[i]) {
		i++
	}
	if i == len(input) {
		return incomplete[[]byte]()
	}
	return done(input[i:], input[:i])
}

// ident matches [A-Za-z0-9_%-]+, terminating on any other byte.
// Incomplete only when the input is exhausted before a single
// qualifying byte is seen.
func ident(input []byte) result[[]byte] {
	i := 0
	for i < len(input) && isIdentByte(input[i]) {
		i++
	}
	if i == 0 {
		if len(input) == 0 {
			return incomplete[[]byte]()
		}
		return errResult[[]byte](fmt.Errorf("wireproto: expected an identifier byte"))
	}
	return done(input[i:], input[:i])
}

// take consumes exactly n bytes.
func take(input []byte, n int) result[[]byte] {
	if len(input) < n {
		return incomplete[[]byte]()
	}
	return done(input[n:], input[:n])
}

// takeUntil consumes bytes up to (not including) the first occurrence
// of b.
func takeUntil(input []byte, b byte) result[[]byte] {
	i := bytes.IndexByte(input, b)
	if i < 0 {
		return incomplete[[]byte]()
	}
	return done(input[i:], input[:i])
}

// literal consumes an exact byte sequence.
func literal(input []byte, lit []byte) result[[]byte] {
	if len(input) < len(lit) {
		if bytes.HasPrefix(lit, input) {
			return incomplete[[]byte]()
		}
		return errResult[[]byte](fmt.Errorf("wireproto: expected literal %q", lit))
	}
	if !bytes.Equal(input[:len(lit)], lit) {
		return errResult[[]byte](fmt.Errorf("wireproto: expected literal %q", lit))
	}
	return done(input[len(lit):], input[:len(lit)])
}

// separatedList parses zero-or-more items produced by item, separated
// by the single byte sep. complete indicates EOF should be treated as
// a valid terminator (used when the caller has already bounded the
// input, e.g. inside a fixed-length value).
func separatedList[T any](input []byte, sep byte, complete bool, item func([]byte) result[T]) result[[]T] {
	var values []T
	rest := input

	for {
		r := item(rest)
		switch {
		case r.isIncomplete():
			if complete && len(rest) == 0 && len(values) == 0 {
				return done(rest, values)
			}
			return incomplete[[]T]()
		case r.isError():
			if len(values) == 0 {
				// No items parsed yet: an empty list is valid wherever
				// the grammar calls for zero-or-more.
				return done(rest, values)
			}
			return errResult[[]T](r.err)
		}

		values = append(values, r.value)
		rest = r.rest

		if len(rest) == 0 {
			if complete {
				return done(rest, values)
			}
			return incomplete[[]T]()
		}
		if rest[0] != sep {
			return done(rest, values)
		}
		rest = rest[1:]
	}
}
