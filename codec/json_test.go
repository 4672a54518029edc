package codec

import (
	"testing"

	"github.com/nibbleworks/wasmipl/ipl"
)

func TestMarshalCanonicalJSONOrdersKeys(t *testing.T) {
	a, err := marshalCanonicalJSON(map[string]any{"z": 1, "a": 2, "m": 3})
	if err != nil {
		t.Fatalf("marshalCanonicalJSON: %v", err)
	}
	b, err := marshalCanonicalJSON(map[string]any{"m": 3, "a": 2, "z": 1})
	if err != nil {
		t.Fatalf("marshalCanonicalJSON: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("canonical forms differ by input key order: %q vs %q", a, b)
	}
}

func TestMarshalCanonicalJSONNestedOrdersKeys(t *testing.T) {
	nested := map[string]any{
		"outer": map[string]any{"b": 1, "a": 2},
		"list":  []any{3, 2, 1},
	}
	out, err := marshalCanonicalJSON(nested)
	if err != nil {
		t.Fatalf("marshalCanonicalJSON: %v", err)
	}
	// RFC 8785 orders object members by UTF-16 code unit; "list" < "outer".
	want := `{"list":[3,2,1],"outer":{"a":2,"b":1}}`
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}

func TestUnmarshalJSONRoundTripsScalarsAndContainers(t *testing.T) {
	cases := map[string]any{
		`null`:             nil,
		`true`:             true,
		`"hello"`:          "hello",
		`1.5`:              1.5,
		`[1,2,3]`:          []any{float64(1), float64(2), float64(3)},
		`{"a":1,"b":"two"}`: map[string]any{"a": float64(1), "b": "two"},
	}
	for in, want := range cases {
		got, err := unmarshalJSON([]byte(in))
		if err != nil {
			t.Fatalf("unmarshalJSON(%s): %v", in, err)
		}
		switch w := want.(type) {
		case map[string]any:
			gm, ok := got.(map[string]any)
			if !ok || len(gm) != len(w) {
				t.Fatalf("unmarshalJSON(%s) = %v (%T), want %v", in, got, got, want)
			}
			for k, v := range w {
				if gm[k] != v {
					t.Errorf("unmarshalJSON(%s)[%s] = %v, want %v", in, k, gm[k], v)
				}
			}
		case []any:
			ga, ok := got.([]any)
			if !ok || len(ga) != len(w) {
				t.Fatalf("unmarshalJSON(%s) = %v (%T), want %v", in, got, got, want)
			}
			for i := range w {
				if ga[i] != w[i] {
					t.Errorf("unmarshalJSON(%s)[%d] = %v, want %v", in, i, ga[i], w[i])
				}
			}
		default:
			if got != want {
				t.Errorf("unmarshalJSON(%s) = %v, want %v", in, got, want)
			}
		}
	}
}

func TestUnmarshalJSONInvalidBytesWrapsError(t *testing.T) {
	_, err := unmarshalJSON([]byte("{not valid json"))
	if err == nil {
		t.Fatal("expected an error unmarshalling malformed JSON")
	}
	if _, ok := err.(*ipl.JSONFailureError); !ok {
		t.Errorf("err = %T, want *ipl.JSONFailureError", err)
	}
}

func TestMarshalCanonicalJSONUnsupportedValueWrapsError(t *testing.T) {
	_, err := marshalCanonicalJSON(make(chan int))
	if err == nil {
		t.Fatal("expected an error marshalling an unsupported Go value")
	}
	if _, ok := err.(*ipl.JSONFailureError); !ok {
		t.Errorf("err = %T, want *ipl.JSONFailureError", err)
	}
}
