// Package policy holds the business rules around users and roles as small
// composable predicates.
package policy

// Specification is a single boolean business rule over T.
type Specification[T any] interface {
	IsSatisfiedBy(T) bool
}

// Func adapts a plain function into a Specification.
type Func[T any] func(T) bool

func (f Func[T]) IsSatisfiedBy(v T) bool { return f(v) }

func (f Func[T]) And(other Specification[T]) Func[T] {
	return func(v T) bool { return f(v) && other.IsSatisfiedBy(v) }
}

func (f Func[T]) Or(other Specification[T]) Func[T] {
	return func(v T) bool { return f(v) || other.IsSatisfiedBy(v) }
}

func (f Func[T]) Not() Func[T] {
	return func(v T) bool { return !f(v) }
}

// All is satisfied when every spec is. An empty All is always satisfied.
func All[T any](specs ...Specification[T]) Func[T] {
	return func(v T) bool {
		for _, s := range specs {
			if !s.IsSatisfiedBy(v) {
				return false
			}
		}
		return true
	}
}

// Any is satisfied when at least one spec is.
func Any[T any](specs ...Specification[T]) Func[T] {
	return func(v T) bool {
		for _, s := range specs {
			if s.IsSatisfiedBy(v) {
				return true
			}
		}
		return false
	}
}

func Not[T any](s Specification[T]) Func[T] {
	return func(v T) bool { return !s.IsSatisfiedBy(v) }
}
