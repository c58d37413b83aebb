package engine

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser(16, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

func TestParser_Parse(t *testing.T) {
	p := newTestParser(t)

	doc, err := p.Parse("query Hello { hello { name } }")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.AST == nil || len(doc.AST.Operations) != 1 {
		t.Fatal("parsed document has no operations")
	}
}

func TestParser_ParseError(t *testing.T) {
	p := newTestParser(t)

	if _, err := p.Parse("query {"); err == nil {
		t.Fatal("malformed query parsed")
	}
}

func TestParser_CacheSharesDocuments(t *testing.T) {
	p := newTestParser(t)

	first, err := p.Parse("{ hello }")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Parse("{ hello }")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("identical text produced distinct documents")
	}
}

func TestParser_ClassifyOperation(t *testing.T) {
	p := newTestParser(t)

	doc, err := p.Parse(`
		query GetThing { thing }
		mutation SetThing { setThing }
		subscription OnThing { onThing }
	`)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		want OperationKind
	}{
		{"GetThing", OneShot},
		{"SetThing", OneShot},
		{"OnThing", Standing},
		{"NoSuchOperation", OneShot},
		// empty name over several operations is ambiguous: one-shot, the
		// resolver reports the problem
		{"", OneShot},
	}
	for _, tc := range cases {
		if got := p.ClassifyOperation(doc, tc.name); got != tc.want {
			t.Errorf("ClassifyOperation(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParser_ClassifySoleOperationByEmptyName(t *testing.T) {
	p := newTestParser(t)

	doc, err := p.Parse("subscription { onThing }")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.ClassifyOperation(doc, ""); got != Standing {
		t.Errorf("sole unnamed subscription classified as %v", got)
	}
}
