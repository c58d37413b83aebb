package scripted

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gqlbridge/internal/engine"
	"gqlbridge/internal/response"
)

const testScript = `
resolvers = {
	query: {
		hello: function(vars) {
			return "hello " + (vars.name || "anon");
		},
		boom: function(vars) {
			throw "resolver exploded";
		},
	},
	mutation: {
		emitTick: function(vars) {
			publish("ticks", vars.n);
			return true;
		},
	},
	subscription: {
		ticks: function(payload, vars) {
			return payload * (vars.factor || 1);
		},
	},
};
`

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession("test", testScript, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func parseDoc(t *testing.T, text string) *engine.Document {
	t.Helper()
	p, err := engine.NewParser(16, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := p.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return doc
}

func TestSession_Resolve(t *testing.T) {
	s := newTestSession(t)
	doc := parseDoc(t, "query { hello }")

	vars, _ := response.ParseJSON(`{"name":"bob"}`)
	data, err := s.Resolve(context.Background(), doc, "", vars)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := response.ToJSON(data); got != `{"hello":"hello bob"}` {
		t.Errorf("data = %s", got)
	}
}

func TestSession_ResolveMissingResolver(t *testing.T) {
	s := newTestSession(t)
	doc := parseDoc(t, "query { unknownField }")

	_, err := s.Resolve(context.Background(), doc, "", response.Map())
	var schemaErr *engine.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want *engine.SchemaError", err)
	}
}

func TestSession_ResolveThrow(t *testing.T) {
	s := newTestSession(t)
	doc := parseDoc(t, "query { boom }")

	_, err := s.Resolve(context.Background(), doc, "", response.Map())
	if err == nil {
		t.Fatal("throwing resolver resolved")
	}
	var schemaErr *engine.SchemaError
	if errors.As(err, &schemaErr) {
		t.Fatal("a thrown value is not a schema error")
	}
}

func TestSession_SubscribePublishCancel(t *testing.T) {
	s := newTestSession(t)
	doc := parseDoc(t, "subscription { ticks }")

	events := make(chan string, 8)
	vars, _ := response.ParseJSON(`{"factor":10}`)
	key, err := s.Subscribe(context.Background(), doc, "", vars, func(data response.Value, err error) {
		if err != nil {
			events <- "error:" + err.Error()
			return
		}
		events <- response.ToJSON(data)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s.Publish("ticks", response.Int(3))
	select {
	case got := <-events:
		if got != `{"ticks":30}` {
			t.Errorf("event = %s, want {\"ticks\":30}", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	s.Cancel(key)

	// Cancel blocks until the drain goroutine exits; anything published now
	// goes nowhere.
	s.Publish("ticks", response.Int(4))
	select {
	case got := <-events:
		t.Errorf("event after cancel: %s", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSession_PublishFromResolver(t *testing.T) {
	s := newTestSession(t)
	subDoc := parseDoc(t, "subscription { ticks }")
	mutDoc := parseDoc(t, "mutation { emitTick }")

	events := make(chan string, 8)
	_, err := s.Subscribe(context.Background(), subDoc, "", response.Map(), func(data response.Value, err error) {
		if err == nil {
			events <- response.ToJSON(data)
		}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	vars, _ := response.ParseJSON(`{"n":7}`)
	data, err := s.Resolve(context.Background(), mutDoc, "", vars)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := response.ToJSON(data); got != `{"emitTick":true}` {
		t.Errorf("mutation data = %s", got)
	}

	select {
	case got := <-events:
		if got != `{"ticks":7}` {
			t.Errorf("event = %s, want {\"ticks\":7}", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("published event never delivered")
	}
}

func TestSession_CloseCancelsSubscriptions(t *testing.T) {
	s := newTestSession(t)
	doc := parseDoc(t, "subscription { ticks }")

	_, err := s.Subscribe(context.Background(), doc, "", response.Map(), func(data response.Value, err error) {})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Subscribe(context.Background(), doc, "", response.Map(), func(response.Value, error) {}); err == nil {
		t.Error("closed session accepted a subscription")
	}
}

func TestSession_MissingResolversObject(t *testing.T) {
	if _, err := NewSession("bad", "var x = 1;", zerolog.Nop()); err == nil {
		t.Fatal("script without resolvers accepted")
	}
}

func TestConnector_ProfileSelection(t *testing.T) {
	c := NewConnector([]Profile{
		{Name: "secondary", Script: "secondary.js"},
		{Name: "primary", Script: "primary.js", Default: true},
	}, zerolog.Nop())

	p, err := c.selectProfile(true)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "primary" {
		t.Errorf("default selection = %s, want primary", p.Name)
	}

	p, err = c.selectProfile(false)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "secondary" {
		t.Errorf("non-default selection = %s, want secondary", p.Name)
	}
}

func TestConnector_NoProfiles(t *testing.T) {
	c := NewConnector(nil, zerolog.Nop())
	if _, err := c.Acquire(true); err == nil {
		t.Fatal("empty connector acquired a session")
	}
}
