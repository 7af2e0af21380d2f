package collections

// IndexBy builds a lookup map from a slice, keyed by the provided function.
// Later entries win on duplicate keys.
func IndexBy[K comparable, V any](items []V, key func(V) K) map[K]V {
	out := make(map[K]V, len(items))
	for _, item := range items {
		out[key(item)] = item
	}
	return out
}

// GroupByOrdered partitions items by key and additionally returns the keys in
// first-seen order, so callers can iterate groups deterministically.
func GroupByOrdered[K comparable, V any](items []V, key func(V) K) (map[K][]V, []K) {
	groups := make(map[K][]V, len(items))
	var order []K
	for _, item := range items {
		k := key(item)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], item)
	}
	return groups, order
}
