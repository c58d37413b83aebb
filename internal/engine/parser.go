package engine

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Parser parses query text into retained documents and classifies their
// operations. Parses are memoized in an LRU keyed by the query text, since
// boundary callers routinely re-parse the same document per connection.
type Parser struct {
	cache  *lru.Cache[string, *Document]
	logger zerolog.Logger
}

// NewParser creates a Parser with a parse cache of the given size.
func NewParser(cacheSize int, logger zerolog.Logger) (*Parser, error) {
	cache, err := lru.New[string, *Document](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Parser{
		cache:  cache,
		logger: logger.With().Str("component", "parser").Logger(),
	}, nil
}

// Parse parses GraphQL query text. The returned document is shared with any
// other caller that parsed the same text; documents are immutable so that is
// safe. Parse failures are not cached.
func (p *Parser) Parse(text string) (*Document, error) {
	if doc, ok := p.cache.Get(text); ok {
		p.logger.Debug().Msg("parse cache hit")
		return doc, nil
	}

	parsed, err := parser.ParseQuery(&ast.Source{Name: "query", Input: text})
	if err != nil {
		return nil, err
	}

	doc := &Document{Source: text, AST: parsed}
	p.cache.Add(text, doc)
	return doc, nil
}

// ClassifyOperation decides whether registering the named operation starts a
// standing subscription or resolves once. Only a positively identified
// subscription operation takes the standing path; an absent or ambiguous
// name classifies as one-shot and the resolver reports the failure through
// delivery.
func (p *Parser) ClassifyOperation(doc *Document, operationName string) OperationKind {
	op := doc.Operation(operationName)
	if op != nil && op.Operation == ast.Subscription {
		return Standing
	}
	return OneShot
}
