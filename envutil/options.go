package envutil

// Option modifies a Reader. Functions like String and Bool accept them so
// callers can attach defaults, missing errors and validation inline.
type Option[T any] func(Reader[T]) Reader[T]

// Default provides a value used when the variable is not set.
func Default[T any](dfl T) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithDefault(dfl)
	}
}

// IfMissing provides the error returned when the variable is not set.
func IfMissing[T any](err error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithErrorIfMissing(err)
	}
}

// Validate runs f on the parsed value and turns its error into a Reader error.
func Validate[T any](f func(T) error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.Map(func(val T) (T, error) {
			return val, f(val)
		})
	}
}
