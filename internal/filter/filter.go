// Package filter turns sparse search criteria into composable predicates.
// Each criteria set compiles once into an in-memory predicate and into the
// numbered SQL conditions the repositories splice into their queries, so the
// matching semantics live in exactly one place.
package filter

import "strings"

// Predicate evaluates one candidate in memory.
type Predicate[T any] func(T) bool

// And combines predicates; the empty conjunction matches everything.
func And[T any](preds ...Predicate[T]) Predicate[T] {
	return func(v T) bool {
		for _, p := range preds {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Builder accumulates the predicate and SQL sides of one criteria set.
// SQL expressions use ? placeholders; Where renumbers them into $n form.
type Builder[T any] struct {
	preds []Predicate[T]
	exprs []string
	args  []interface{}
}

// Add registers one criterion.
func (b *Builder[T]) Add(p Predicate[T], expr string, args ...interface{}) {
	b.preds = append(b.preds, p)
	b.exprs = append(b.exprs, expr)
	b.args = append(b.args, args...)
}

// Empty reports whether no criteria were registered.
func (b *Builder[T]) Empty() bool {
	return len(b.preds) == 0
}

// Predicate returns the AND of every registered criterion.
func (b *Builder[T]) Predicate() Predicate[T] {
	return And(b.preds...)
}

// Where renders the registered conditions joined with AND, numbering
// placeholders starting at start. It returns an empty clause when no
// criteria are present.
func (b *Builder[T]) Where(start int) (string, []interface{}) {
	if b.Empty() {
		return "", nil
	}
	var sb strings.Builder
	n := start
	for i, expr := range b.exprs {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		for _, r := range expr {
			if r == '?' {
				sb.WriteString(placeholder(n))
				n++
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String(), b.args
}

func placeholder(n int) string {
	digits := [8]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return "$" + string(digits[i:])
}

// ContainsFold is the case-insensitive substring match used by every text
// criterion.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
