package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"gqlbridge/internal/engine"
	"gqlbridge/internal/response"
)

// Engine is the query-engine collaborator: parsing query text into retained
// documents and classifying the operation a registration designates.
type Engine interface {
	Parse(text string) (*engine.Document, error)
	ClassifyOperation(doc *engine.Document, operationName string) engine.OperationKind
}

// sessionRef is the liveness-checked handle subscriptions hold in place of a
// strong session reference. The service clears it on Stop; a subscription
// that resolves it afterwards simply sees nil and skips the backend call.
type sessionRef struct {
	mu      sync.Mutex
	session engine.Session
}

func (r *sessionRef) get() engine.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *sessionRef) set(session engine.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = session
}

func (r *sessionRef) clear() {
	r.set(nil)
}

// Service is the boundary façade. It exclusively owns the query registry,
// the subscription registry, and the strong session reference; subscriptions
// reach the session only through the shared sessionRef.
//
// Service methods are not internally thread-safe: the boundary caller
// invokes them single-threaded. Deliveries for standing subscriptions arrive
// on backend goroutines, serialized per subscription by the backend.
type Service struct {
	eng       Engine
	connector engine.Connector

	ref     *sessionRef
	queries *queryRegistry
	subs    *subscriptionRegistry
	logger  zerolog.Logger
}

// New creates a Service bound to the given collaborators. The service is
// not started; call Start before registering subscriptions.
func New(eng Engine, connector engine.Connector, logger zerolog.Logger) *Service {
	return &Service{
		eng:       eng,
		connector: connector,
		ref:       &sessionRef{},
		queries:   newQueryRegistry(),
		subs:      newSubscriptionRegistry(),
		logger:    logger.With().Str("component", "bridge").Logger(),
	}
}

// Start acquires the backend session. Failures are not surfaced: the error
// is logged and the service stays not-started, so later registrations fail
// with ErrNotStarted. Calling Start while already started replaces the
// session reference; callers that need clean teardown call Stop first.
func (s *Service) Start(useDefaultProfile bool) {
	session, err := s.connector.Acquire(useDefaultProfile)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to acquire backend session")
		return
	}

	s.ref.set(session)
	s.logger.Debug().Bool("useDefaultProfile", useDefaultProfile).Msg("session started")
}

// Stop unsubscribes every live registration (each receives exactly one
// completion), clears both registries, and releases the session reference.
// Safe to call when never started.
func (s *Service) Stop() {
	session := s.ref.get()
	if session == nil {
		return
	}

	subs := s.subs.count()
	s.subs.teardown()
	s.queries.clear()
	s.ref.clear()

	if closer, ok := session.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("backend session close failed")
		}
	}
	s.logger.Debug().Int("subscriptions", subs).Msg("session stopped")
}

// Started reports whether a backend session is currently held
func (s *Service) Started() bool {
	return s.ref.get() != nil
}

// ParseQuery parses query text and retains the document under a fresh query
// id. A failed parse allocates nothing and returns a *ParseError carrying
// the engine diagnostic.
func (s *Service) ParseQuery(text string) (int32, error) {
	doc, err := s.eng.Parse(text)
	if err != nil {
		return 0, &ParseError{Err: err}
	}

	id := s.queries.insert(doc)
	s.logger.Debug().Int32("queryId", id).Msg("query parsed")
	return id, nil
}

// DiscardQuery releases a retained document. Unknown ids are a no-op.
func (s *Service) DiscardQuery(id int32) {
	s.queries.discard(id)
}

// Subscribe registers a listener against a parsed query. A subscription
// operation starts a standing subscription: Subscribe returns before any
// delivery and events flow until Unsubscribe or Stop. Any other operation
// resolves once: the delivery and completion callbacks both fire before
// Subscribe returns.
//
// On error no subscription id is allocated and neither callback is invoked.
func (s *Service) Subscribe(ctx context.Context, queryID int32, operationName, variablesJSON string,
	nextCtx NextContext, next NextFunc, completeCtx CompleteContext, complete CompleteFunc) (int32, error) {

	doc, ok := s.queries.lookup(queryID)
	if !ok {
		return 0, ErrUnknownQuery
	}

	variables := response.Map()
	if variablesJSON != "" {
		parsed, err := response.ParseJSON(variablesJSON)
		if err != nil || parsed.Type() != response.TypeMap {
			return 0, ErrInvalidVariables
		}
		variables = parsed
	}

	session := s.ref.get()
	if session == nil {
		return 0, ErrNotStarted
	}

	sub := newSubscription(s.ref, nextCtx, next, completeCtx, complete)
	kind := s.eng.ClassifyOperation(doc, operationName)

	if kind == engine.Standing {
		// The first return value carries the cancellation key; events arrive
		// through the closure strictly after Subscribe returns, serialized
		// per subscription by the backend.
		key, err := session.Subscribe(ctx, doc, operationName, variables, func(data response.Value, err error) {
			sub.deliverOutcome(data, err)
		})
		if err != nil {
			return 0, fmt.Errorf("backend subscribe failed: %w", err)
		}
		sub.markRegistered(key)
	} else {
		data, err := resolveGuarded(ctx, session, doc, operationName, variables)
		sub.deliverOutcome(data, err)
		sub.completeNow()
	}

	id := s.subs.insert(&RegisteredSubscription{kind: kind, sub: sub})
	s.logger.Debug().
		Int32("subscriptionId", id).
		Int32("queryId", queryID).
		Bool("standing", kind == engine.Standing).
		Msg("subscription registered")
	return id, nil
}

// SubscribeFuncs is the closure form of Subscribe for callers that do not
// need the context-handoff protocol.
func (s *Service) SubscribeFuncs(ctx context.Context, queryID int32, operationName, variablesJSON string,
	next func(payload string), complete func()) (int32, error) {

	return s.Subscribe(ctx, queryID, operationName, variablesJSON,
		NextContext(next), func(c NextContext, payload string) NextContext {
			c.(func(string))(payload)
			return c
		},
		CompleteContext(complete), func(c CompleteContext) {
			c.(func())()
		})
}

// Unsubscribe cancels a standing subscription and signals its completion.
// Unknown ids are a no-op: cancellation races against backend-driven
// completion are expected and harmless.
func (s *Service) Unsubscribe(id int32) {
	rs := s.subs.remove(id)
	if rs == nil {
		return
	}

	rs.Unsubscribe()
	s.logger.Debug().Int32("subscriptionId", id).Msg("unsubscribed")
}

// SubscriptionCount returns the number of live registrations
func (s *Service) SubscriptionCount() int {
	return s.subs.count()
}

// resolveGuarded runs a one-shot resolution, converting a panicking
// collaborator into an ordinary error so the fault is translated into a
// payload instead of escaping across the callback boundary.
func resolveGuarded(ctx context.Context, session engine.Session, doc *engine.Document,
	operationName string, variables response.Value) (data response.Value, err error) {

	defer func() {
		if r := recover(); r != nil {
			data = response.Null()
			err = fmt.Errorf("%v", r)
		}
	}()
	return session.Resolve(ctx, doc, operationName, variables)
}
