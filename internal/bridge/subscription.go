package bridge

import (
	"errors"
	"sync"

	"gqlbridge/internal/engine"
	"gqlbridge/internal/response"
)

// NextContext is the callback-side state handed through every delivery. The
// callback takes ownership of the current context and returns the context to
// use for the next delivery, so the external side can rebind its identity
// between calls without either side ever holding a duplicate.
type NextContext interface{}

// CompleteContext is the callback-side state consumed by the one-shot
// completion signal.
type CompleteContext interface{}

// NextFunc delivers one serialized payload. It owns ctx for the duration of
// the call and must return the context for the following delivery.
type NextFunc func(ctx NextContext, payload string) NextContext

// CompleteFunc signals that no further deliveries will occur. It consumes
// ctx; it is invoked at most once per subscription.
type CompleteFunc func(ctx CompleteContext)

// Subscription is one registered listener together with its delivery
// channel. It holds the session only through a liveness-checked sessionRef,
// never a strong reference, so an in-flight subscription cannot keep a
// stopped session alive.
//
// Lifecycle: unregistered -> registered (standing subscriptions only) ->
// terminal. One-shot resolutions skip the registered state and go straight
// to delivery plus completion.
type Subscription struct {
	ref *sessionRef

	nextCtx     NextContext
	next        NextFunc
	completeCtx CompleteContext
	complete    CompleteFunc

	mu         sync.Mutex
	key        engine.CancelKey
	hasKey     bool
	registered bool
}

func newSubscription(ref *sessionRef, nextCtx NextContext, next NextFunc, completeCtx CompleteContext, complete CompleteFunc) *Subscription {
	return &Subscription{
		ref:         ref,
		nextCtx:     nextCtx,
		next:        next,
		completeCtx: completeCtx,
		complete:    complete,
	}
}

// markRegistered records the backend cancellation key and enters the
// registered state. Only standing subscriptions ever get here.
func (s *Subscription) markRegistered(key engine.CancelKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = true
	s.key = key
	s.hasKey = true
}

// unsubscribe drives the terminal transition. It is idempotent: the
// registered flag is cleared before the backend cancellation call, so a
// reentrant invocation from any path is a no-op. The cancellation call
// blocks until the backend acknowledges, which guarantees no event is in
// flight when completion fires; completion is therefore the last call the
// external callback observes.
func (s *Subscription) unsubscribe() {
	s.mu.Lock()
	if !s.registered {
		s.mu.Unlock()
		return
	}
	s.registered = false
	key, hasKey := s.key, s.hasKey
	s.hasKey = false
	s.mu.Unlock()

	session := s.ref.get()
	if hasKey && session != nil {
		session.Cancel(key)
		s.completeNow()
	}
}

// deliverOutcome translates one resolution outcome into exactly one
// delivered payload. A schema-level failure carries the engine's error list;
// any other fault is folded into a single error string. A fault never
// crosses the callback boundary.
func (s *Subscription) deliverOutcome(data response.Value, err error) {
	var document response.Value
	switch {
	case err == nil:
		document = response.Map(
			response.Field{Name: "data", Value: data},
		)
	default:
		var schemaErr *engine.SchemaError
		if errors.As(err, &schemaErr) {
			document = response.Map(
				response.Field{Name: "data", Value: response.Null()},
				response.Field{Name: "errors", Value: schemaErr.Errors},
			)
		} else {
			document = response.Map(
				response.Field{Name: "data", Value: response.Null()},
				response.Field{Name: "errors", Value: response.List(
					response.String("Caught exception delivering subscription payload: " + err.Error()),
				)},
			)
		}
	}
	s.deliver(document)
}

// deliver hands the serialized document through the next callback, moving
// the context in and taking the replacement back. The backend serializes
// events per subscription, so at most one deliver runs at a time and the
// context has exactly one owner throughout.
func (s *Subscription) deliver(document response.Value) {
	s.nextCtx = s.next(s.nextCtx, response.ToJSON(document))
}

// completeNow signals completion, consuming the complete context. No
// delivery may follow.
func (s *Subscription) completeNow() {
	ctx := s.completeCtx
	s.completeCtx = nil
	s.complete(ctx)
}
