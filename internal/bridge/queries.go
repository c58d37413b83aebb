package bridge

import (
	"gqlbridge/internal/engine"
)

// queryRegistry owns parsed documents keyed by allocated query id. It is not
// internally thread-safe; the boundary caller invokes it single-threaded.
type queryRegistry struct {
	queries map[int32]*engine.Document
}

func newQueryRegistry() *queryRegistry {
	return &queryRegistry{queries: make(map[int32]*engine.Document)}
}

// insert stores a parsed document under a freshly allocated id
func (r *queryRegistry) insert(doc *engine.Document) int32 {
	id := nextID(r.queries)
	r.queries[id] = doc
	return id
}

// lookup resolves a query id to its document
func (r *queryRegistry) lookup(id int32) (*engine.Document, bool) {
	doc, ok := r.queries[id]
	return doc, ok
}

// discard removes the document if present; absent ids are a no-op
func (r *queryRegistry) discard(id int32) {
	delete(r.queries, id)
}

// clear drops every retained document
func (r *queryRegistry) clear() {
	r.queries = make(map[int32]*engine.Document)
}

func (r *queryRegistry) count() int {
	return len(r.queries)
}
