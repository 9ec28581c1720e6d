package repository

// Bound keeps the newest max entries of a chronological slice, evicting from the front.
// A max of zero or less disables the bound.
func Bound[T any](items []T, max int) []T {
	if max <= 0 || len(items) <= max {
		return items
	}
	return items[len(items)-max:]
}

// Window returns up to limit entries of a chronological slice in the requested order.
// The newest entries are kept when the slice is longer than limit. The result is a copy.
func Window[T any](items []T, limit int, order Order) []T {
	src := items
	if limit > 0 && len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]T, len(src))
	if order == OrderDesc {
		for i, v := range src {
			out[len(src)-1-i] = v
		}
		return out
	}
	copy(out, src)
	return out
}
