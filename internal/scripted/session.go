package scripted

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"

	"gqlbridge/internal/engine"
	"gqlbridge/internal/response"
)

// eventBuffer is the per-subscription event queue depth; publishes beyond it
// are dropped rather than blocking the publisher.
const eventBuffer = 64

// standingSub is one live subscription inside a session
type standingSub struct {
	field   string
	vars    response.Value
	onEvent engine.EventFunc
	events  chan response.Value
	quit    chan struct{}
	done    chan struct{}
}

// Session is a backend session whose resolvers are JavaScript. The script
// declares a global `resolvers` object with `query`, `mutation` and
// `subscription` groups keyed by root field name. Standing subscriptions
// receive whatever is published on their field, transformed by the field's
// subscription resolver when one is defined.
//
// Events for a given subscription are delivered by a single drain goroutine,
// so deliveries are serialized per subscription, and Cancel joins that
// goroutine before returning, so no delivery follows a cancellation
// acknowledgment.
type Session struct {
	profile string
	logger  zerolog.Logger

	// goja runtimes are single-threaded; vmMu guards every script call
	vmMu      sync.Mutex
	vm        *goja.Runtime
	resolvers *goja.Object

	mu      sync.Mutex
	nextKey engine.CancelKey
	subs    map[engine.CancelKey]*standingSub
	timers  []*time.Timer
	closed  bool
}

// NewSession loads a resolver script into a fresh runtime.
func NewSession(profile, source string, logger zerolog.Logger) (*Session, error) {
	s := &Session{
		profile: profile,
		logger:  logger.With().Str("profile", profile).Logger(),
		subs:    make(map[engine.CancelKey]*standingSub),
	}
	s.vm = newVM(s.logger)
	s.setupBindings()

	if _, err := s.vm.RunString(source); err != nil {
		return nil, fmt.Errorf("resolver script failed: %w", scriptError(err))
	}

	resolvers := s.vm.Get("resolvers")
	if resolvers == nil || goja.IsUndefined(resolvers) || goja.IsNull(resolvers) {
		return nil, errors.New("resolver script must define a resolvers object")
	}
	s.resolvers = resolvers.ToObject(s.vm)
	return s, nil
}

// setupBindings installs the session-scoped script globals: publish, which
// fans an event out to standing subscriptions on a field, and schedule,
// which runs a script function after a delay (scripts reschedule themselves
// for periodic sources).
func (s *Session) setupBindings() {
	s.vm.Set("publish", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(s.vm.ToValue("publish requires a field name and a value"))
		}
		field := call.Arguments[0].String()
		payload, err := response.FromGo(call.Arguments[1].Export())
		if err != nil {
			panic(s.vm.ToValue(err.Error()))
		}
		s.Publish(field, payload)
		return goja.Undefined()
	})

	s.vm.Set("schedule", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(s.vm.ToValue("schedule requires a delay and a function"))
		}
		delay := call.Arguments[0].ToInteger()
		fn, ok := goja.AssertFunction(call.Arguments[1])
		if !ok {
			panic(s.vm.ToValue("schedule requires a function"))
		}

		timer := time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}

			s.vmMu.Lock()
			defer s.vmMu.Unlock()
			if _, err := fn(goja.Undefined()); err != nil {
				s.logger.Warn().Err(scriptError(err)).Msg("scheduled resolver call failed")
			}
		})

		s.mu.Lock()
		s.timers = append(s.timers, timer)
		s.mu.Unlock()
		return goja.Undefined()
	})
}

// Resolve implements engine.Session for one-shot operations.
func (s *Session) Resolve(ctx context.Context, doc *engine.Document, operationName string, variables response.Value) (response.Value, error) {
	op := doc.Operation(operationName)
	if op == nil {
		return response.Null(), fmt.Errorf("no unique operation named %q", operationName)
	}
	if op.Operation == ast.Subscription {
		return response.Null(), errors.New("subscription operations must be registered, not resolved")
	}

	field, err := rootField(op)
	if err != nil {
		return response.Null(), err
	}

	s.vmMu.Lock()
	defer s.vmMu.Unlock()

	fn := s.lookupResolver(string(op.Operation), field)
	if fn == nil {
		return response.Null(), engine.NewSchemaError(fmt.Sprintf("no resolver for field %q", field))
	}

	res, err := fn(goja.Undefined(), s.vm.ToValue(variables.ToGo()))
	if err != nil {
		return response.Null(), scriptError(err)
	}

	converted, err := response.FromGo(res.Export())
	if err != nil {
		return response.Null(), err
	}
	return response.Map(response.Field{Name: field, Value: converted}), nil
}

// Subscribe implements engine.Session for standing subscriptions. The
// returned key is the cancellation key; events flow through onEvent from the
// subscription's drain goroutine.
func (s *Session) Subscribe(ctx context.Context, doc *engine.Document, operationName string, variables response.Value, onEvent engine.EventFunc) (engine.CancelKey, error) {
	op := doc.Operation(operationName)
	if op == nil || op.Operation != ast.Subscription {
		return 0, fmt.Errorf("no subscription operation named %q", operationName)
	}

	field, err := rootField(op)
	if err != nil {
		return 0, err
	}

	sub := &standingSub{
		field:   field,
		vars:    variables,
		onEvent: onEvent,
		events:  make(chan response.Value, eventBuffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, errors.New("session closed")
	}
	s.nextKey++
	key := s.nextKey
	s.subs[key] = sub
	s.mu.Unlock()

	go s.drain(sub)

	s.logger.Debug().Str("field", field).Int64("key", int64(key)).Msg("standing subscription opened")
	return key, nil
}

// Cancel implements engine.Session. It blocks until the subscription's drain
// goroutine has exited; after Cancel returns no further onEvent call occurs
// for the key.
func (s *Session) Cancel(key engine.CancelKey) {
	s.mu.Lock()
	sub, ok := s.subs[key]
	if ok {
		delete(s.subs, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	close(sub.quit)
	<-sub.done
	s.logger.Debug().Int64("key", int64(key)).Msg("standing subscription cancelled")
}

// Publish enqueues an event for every standing subscription on the field.
// Full subscription buffers drop the event rather than stalling the
// publisher.
func (s *Session) Publish(field string, payload response.Value) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	targets := make([]*standingSub, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.field == field {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.events <- payload:
		default:
			s.logger.Warn().Str("field", field).Msg("event buffer full, dropping event")
		}
	}
}

// Close tears the session down: timers stop, every remaining standing
// subscription is cancelled, and Close returns only once no callback can
// fire again.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timers := s.timers
	s.timers = nil
	subs := make([]*standingSub, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[engine.CancelKey]*standingSub)
	s.mu.Unlock()

	for _, timer := range timers {
		timer.Stop()
	}
	for _, sub := range subs {
		close(sub.quit)
		<-sub.done
	}

	s.logger.Debug().Msg("session closed")
	return nil
}

// drain delivers events for one subscription in order. It is the only
// goroutine that invokes the subscription's onEvent, which provides the
// per-subscription serialization the delivery channel relies on.
func (s *Session) drain(sub *standingSub) {
	defer close(sub.done)
	for {
		select {
		case <-sub.quit:
			return
		case payload := <-sub.events:
			data, err := s.applyResolver(sub, payload)
			sub.onEvent(data, err)
		}
	}
}

// applyResolver runs the field's subscription resolver over a published
// payload when the script defines one; otherwise the payload passes through
// verbatim under the field name.
func (s *Session) applyResolver(sub *standingSub, payload response.Value) (response.Value, error) {
	s.vmMu.Lock()
	defer s.vmMu.Unlock()

	fn := s.lookupResolver("subscription", sub.field)
	if fn == nil {
		return response.Map(response.Field{Name: sub.field, Value: payload}), nil
	}

	res, err := fn(goja.Undefined(), s.vm.ToValue(payload.ToGo()), s.vm.ToValue(sub.vars.ToGo()))
	if err != nil {
		return response.Null(), scriptError(err)
	}

	converted, err := response.FromGo(res.Export())
	if err != nil {
		return response.Null(), err
	}
	return response.Map(response.Field{Name: sub.field, Value: converted}), nil
}

// lookupResolver finds resolvers[group][field] if it is callable.
// Caller holds vmMu.
func (s *Session) lookupResolver(group, field string) goja.Callable {
	groupVal := s.resolvers.Get(group)
	if groupVal == nil || goja.IsUndefined(groupVal) || goja.IsNull(groupVal) {
		return nil
	}

	fieldVal := groupVal.ToObject(s.vm).Get(field)
	if fieldVal == nil {
		return nil
	}
	fn, ok := goja.AssertFunction(fieldVal)
	if !ok {
		return nil
	}
	return fn
}

// rootField returns the name of the operation's first root field, which is
// the resolver key and the key events are published under.
func rootField(op *ast.OperationDefinition) (string, error) {
	for _, sel := range op.SelectionSet {
		if field, ok := sel.(*ast.Field); ok {
			return field.Name, nil
		}
	}
	return "", errors.New("operation has no root field")
}

// scriptError unwraps a goja exception into a plain error carrying the
// thrown value's text.
func scriptError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return fmt.Errorf("%v", ex.Value().Export())
	}
	return err
}
