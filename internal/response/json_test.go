package response

import (
	"testing"
)

func TestParseJSON_RoundTrip(t *testing.T) {
	cases := []string{
		`null`,
		`true`,
		`"hello"`,
		`42`,
		`-7`,
		`2.5`,
		`[1,2.5,"three",null,false]`,
		`{"z":1,"a":{"nested":[{"deep":true}]}}`,
		`{"data":{"items":[{"id":1,"name":"first"},{"id":2,"name":"second"}]},"errors":null}`,
	}

	for _, text := range cases {
		v, err := ParseJSON(text)
		if err != nil {
			t.Errorf("ParseJSON(%q): %v", text, err)
			continue
		}
		if got := ToJSON(v); got != text {
			t.Errorf("round trip of %q produced %q", text, got)
		}
	}
}

func TestParseJSON_IntFloatDistinction(t *testing.T) {
	v, err := ParseJSON(`1`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Type() != TypeInt {
		t.Errorf("1 parsed as %s, want int", v.Type())
	}

	v, err = ParseJSON(`1.0`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Type() != TypeFloat {
		t.Errorf("1.0 parsed as %s, want float", v.Type())
	}
	if got := ToJSON(v); got != "1.0" {
		t.Errorf("float 1.0 encoded as %q; the int/float distinction was lost", got)
	}

	if Int(1).Equal(Float(1)) {
		t.Error("Int(1) compares equal to Float(1)")
	}
}

func TestParseJSON_FieldOrderPreserved(t *testing.T) {
	v, err := ParseJSON(`{"zebra":1,"apple":2,"mango":3}`)
	if err != nil {
		t.Fatal(err)
	}

	fields := v.Fields()
	want := []string{"zebra", "apple", "mango"}
	if len(fields) != len(want) {
		t.Fatalf("fields = %d, want %d", len(fields), len(want))
	}
	for i, name := range want {
		if fields[i].Name != name {
			t.Errorf("field[%d] = %q, want %q", i, fields[i].Name, name)
		}
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	for _, text := range []string{``, `{`, `[1,2`, `{"a":}`, `1 2`, `{"a":1}trailing`} {
		if _, err := ParseJSON(text); err == nil {
			t.Errorf("ParseJSON(%q) succeeded", text)
		}
	}
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]interface{}{
		"b": int64(2),
		"a": "one",
		"c": []interface{}{true, nil, 1.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Map keys are sorted for determinism
	if got := ToJSON(v); got != `{"a":"one","b":2,"c":[true,null,1.5]}` {
		t.Errorf("FromGo produced %s", got)
	}

	if _, err := FromGo(map[string]interface{}{"bad": make(chan int)}); err == nil {
		t.Error("FromGo accepted an unsupported type")
	}
}

func TestToGoRoundTrip(t *testing.T) {
	original := Map(
		Field{Name: "count", Value: Int(3)},
		Field{Name: "items", Value: List(String("x"), Boolean(true))},
	)

	back, err := FromGo(original.ToGo())
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(original) {
		t.Errorf("ToGo/FromGo round trip: got %s, want %s", ToJSON(back), ToJSON(original))
	}
}
