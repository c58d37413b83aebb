package engine

import (
	"context"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"gqlbridge/internal/response"
)

// OperationKind classifies what a registration against a parsed document will
// do: resolve once or stand until cancelled.
type OperationKind int

const (
	// OneShot is a query or mutation: exactly one delivery, then completion.
	OneShot OperationKind = iota
	// Standing is a subscription: zero or more deliveries until cancelled.
	Standing
)

// Document is a parsed query retained by the query registry. It is never
// mutated after parsing, so concurrent registrations may share one.
type Document struct {
	Source string
	AST    *ast.QueryDocument
}

// Operation finds the operation a registration designates, applying the
// parser's default rules when operationName is empty. Returns nil when the
// name is absent or ambiguous; callers treat that as a one-shot whose
// resolution reports the problem.
func (d *Document) Operation(operationName string) *ast.OperationDefinition {
	if d.AST == nil {
		return nil
	}
	return d.AST.Operations.ForName(operationName)
}

// CancelKey identifies one standing subscription inside a backend session.
type CancelKey int64

// EventFunc receives one resolution outcome for a standing subscription.
// err is nil for a success payload, a *SchemaError for a structured failure,
// or any other error for an unexpected fault. The backend session must
// serialize calls per subscription and must not call it after Cancel for the
// subscription's key has returned.
type EventFunc func(data response.Value, err error)

// Session is the backend a service resolves and subscribes against.
type Session interface {
	// Resolve executes a one-shot operation and returns its data tree.
	Resolve(ctx context.Context, doc *Document, operationName string, variables response.Value) (response.Value, error)

	// Subscribe registers a standing subscription. The returned key is the
	// only way to cancel it; events flow through onEvent after Subscribe
	// returns.
	Subscribe(ctx context.Context, doc *Document, operationName string, variables response.Value, onEvent EventFunc) (CancelKey, error)

	// Cancel tears down a standing subscription. It blocks until the backend
	// acknowledges, after which no further onEvent calls occur for the key.
	Cancel(key CancelKey)
}

// Connector acquires backend sessions for a profile selection.
type Connector interface {
	Acquire(useDefaultProfile bool) (Session, error)
}

// SchemaError is a structured resolution failure: partial data plus a list
// of error values, as produced by the query engine during execution. It is
// never surfaced synchronously; the delivery channel translates it into a
// {"data":null,"errors":[...]} payload.
type SchemaError struct {
	Data   response.Value
	Errors response.Value
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	var sb strings.Builder
	sb.WriteString("schema error")
	if e.Errors.Type() == response.TypeList {
		sb.WriteString(": ")
		sb.WriteString(response.ToJSON(e.Errors))
	}
	return sb.String()
}

// NewSchemaError builds a SchemaError from plain error messages.
func NewSchemaError(messages ...string) *SchemaError {
	items := make([]response.Value, 0, len(messages))
	for _, m := range messages {
		items = append(items, response.Map(response.Field{Name: "message", Value: response.String(m)}))
	}
	return &SchemaError{
		Data:   response.Null(),
		Errors: response.List(items...),
	}
}
