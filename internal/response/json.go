package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ToJSON serializes a value to its UTF-8 wire encoding. Integers are written
// without a fraction part; floats always carry one (or an exponent) so the
// int/float distinction survives a round trip.
func ToJSON(v Value) string {
	var sb strings.Builder
	encodeValue(&sb, v)
	return sb.String()
}

func encodeValue(sb *strings.Builder, v Value) {
	switch v.typ {
	case TypeNull:
		sb.WriteString("null")
	case TypeString:
		encoded, _ := json.Marshal(v.str)
		sb.Write(encoded)
	case TypeBoolean:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case TypeInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case TypeFloat:
		formatted := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(formatted, ".eE") {
			formatted += ".0"
		}
		sb.WriteString(formatted)
	case TypeList:
		sb.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			encodeValue(sb, item)
		}
		sb.WriteByte(']')
	case TypeMap:
		sb.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			encoded, _ := json.Marshal(f.Name)
			sb.Write(encoded)
			sb.WriteByte(':')
			encodeValue(sb, f.Value)
		}
		sb.WriteByte('}')
	}
}

// ParseJSON parses a UTF-8 JSON document into a Value. Numbers without a
// fraction or exponent that fit in int64 become ints; everything else
// numeric becomes a float. Map field order follows the document.
func ParseJSON(text string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Null(), fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err == nil {
		return Null(), errors.New("invalid JSON: trailing data after value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeMap(dec)
		case '[':
			return decodeList(dec)
		default:
			return Null(), fmt.Errorf("unexpected delimiter %q", t.String())
		}
	case string:
		return String(t), nil
	case bool:
		return Boolean(t), nil
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				return Int(i), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Float(f), nil
	case nil:
		return Null(), nil
	default:
		return Null(), fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeMap(dec *json.Decoder) (Value, error) {
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Null(), err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Null(), fmt.Errorf("unexpected map key %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Null(), err
		}
		fields = append(fields, Field{Name: key, Value: val})
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return Null(), err
	}
	return Map(fields...), nil
}

func decodeList(dec *json.Decoder) (Value, error) {
	var items []Value
	for dec.More() {
		item, err := decodeValue(dec)
		if err != nil {
			return Null(), err
		}
		items = append(items, item)
	}
	if _, err := dec.Token(); err != nil { // closing bracket
		return Null(), err
	}
	return List(items...), nil
}
