// internal/common/jsonx/codec.go
// Package jsonx wraps Sonic for every JSON encode/decode in the service.
package jsonx

import (
	"io"

	"github.com/bytedance/sonic"
)

// api sorts map keys on marshal, which keeps hashed cache keys stable.
var api = sonic.ConfigStd

func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

func MarshalToString(v interface{}) (string, error) {
	return api.MarshalToString(v)
}

func UnmarshalFromString(data string, v interface{}) error {
	return api.UnmarshalFromString(data, v)
}

// NewDecoder returns a streaming decoder reading from r.
func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}

// NewEncoder returns a streaming encoder writing to w.
func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return api.Valid(data)
}
