package slice

func Map[T any, U any](input []T, pred func(T) U) []U {
	result := make([]U, len(input))
	for i, v := range input {
		result[i] = pred(v)
	}
	return result
}

func All[T any](input []T, pred func(T) bool) bool {
	for _, v := range input {
		if !pred(v) {
			return false
		}
	}
	return true
}

// AllPairs reports whether pred holds for every pair of neighbours (input[i-1], input[i]).
func AllPairs[T any](input []T, pred func(prev, next T) bool) bool {
	for i := 1; i < len(input); i++ {
		if !pred(input[i-1], input[i]) {
			return false
		}
	}
	return true
}

// FindIndex returns the first element matching pred and its index, or -1.
func FindIndex[T any](input []T, pred func(T) bool) (T, int) {
	for i, v := range input {
		if pred(v) {
			return v, i
		}
	}
	var zero T
	return zero, -1
}
