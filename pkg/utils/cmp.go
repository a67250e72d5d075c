package utils

// CompareFn defines a three-way comparison for values of type T.
// It must return a negative value if x < y, 0 if x == y, and a positive value if x > y.
type CompareFn[T any] func(x, y T) int

// Reverse returns a comparator that orders the exact opposite of `compare`.
func Reverse[T any](compare CompareFn[T]) CompareFn[T] {
	return func(x, y T) int { return -compare(x, y) }
}
