package bridge

// nextID allocates the next handle for a registry keyed by int32 ids: 1 for
// an empty pool, otherwise max+1. Values are never reused while any entry is
// live, so erase-then-insert of a different id can never alias a handle a
// caller is still correlating async events against. Wraparound of the int32
// domain is not handled; process-lifetime cardinalities never reach it.
func nextID[V any](pool map[int32]V) int32 {
	var max int32
	for id := range pool {
		if id > max {
			max = id
		}
	}
	return max + 1
}
