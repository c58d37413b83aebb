package bridge

import (
	"gqlbridge/internal/engine"
)

// RegisteredSubscription pairs one Subscription with the one-shot-vs-standing
// decision made at registration time. It holds the only strong reference to
// the Subscription, so releasing it tears the subscription down through the
// same idempotent path as an explicit unsubscribe.
type RegisteredSubscription struct {
	kind engine.OperationKind
	sub  *Subscription
}

// Unsubscribe releases the subscription and drives its terminal transition.
// Safe to call more than once.
func (r *RegisteredSubscription) Unsubscribe() {
	sub := r.sub
	r.sub = nil

	if sub != nil {
		sub.unsubscribe()
	}
}

// subscriptionRegistry owns registered subscriptions keyed by allocated
// subscription id. Like the query registry it assumes single-threaded
// invocation by the boundary caller.
type subscriptionRegistry struct {
	subs map[int32]*RegisteredSubscription
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{subs: make(map[int32]*RegisteredSubscription)}
}

// insert stores a registration under a freshly allocated id
func (r *subscriptionRegistry) insert(rs *RegisteredSubscription) int32 {
	id := nextID(r.subs)
	r.subs[id] = rs
	return id
}

// remove detaches and returns the registration, or nil if the id is unknown.
// Unknown ids are expected: cancellation races against backend completion
// are harmless.
func (r *subscriptionRegistry) remove(id int32) *RegisteredSubscription {
	rs, ok := r.subs[id]
	if !ok {
		return nil
	}
	delete(r.subs, id)
	return rs
}

// teardown unsubscribes every live registration, then clears the registry.
// Every still-registered subscription receives exactly one completion.
func (r *subscriptionRegistry) teardown() {
	for _, rs := range r.subs {
		rs.Unsubscribe()
	}
	r.subs = make(map[int32]*RegisteredSubscription)
}

func (r *subscriptionRegistry) count() int {
	return len(r.subs)
}
