package codec

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/nibbleworks/wasmipl/ipl"
)

// jsonAPI is the jsoniter configuration used to marshal a value before
// canonicalisation and to decode a json variant's bytes back into a
// generic interface{} tree on the way out.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// marshalCanonicalJSON serialises v to the canonical UTF-8 JSON form
// required by spec §4.2/§4.3 for the json variant: RFC 8785's JSON
// Canonicalization Scheme, which fixes member ordering and number
// formatting so that two encodings of structurally-equal values always
// produce byte-identical output.
func marshalCanonicalJSON(v any) ([]byte, error) {
	raw, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, &ipl.JSONFailureError{Err: err}
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, &ipl.JSONFailureError{Err: err}
	}
	return canonical, nil
}

// unmarshalJSON parses canonical (or any valid) JSON bytes into a generic
// Go value: map[string]any, []any, string, float64, bool, or nil.
func unmarshalJSON(data []byte) (any, error) {
	var v any
	if err := jsonAPI.Unmarshal(data, &v); err != nil {
		return nil, &ipl.JSONFailureError{Err: err}
	}
	return v, nil
}
