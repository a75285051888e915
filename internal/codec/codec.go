// Package codec is the binary encoding for persisted records. It is CBOR with
// Core Deterministic Encoding, so the same record always produces the same
// bytes.
package codec

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v. Unknown fields are ignored.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns the RFC 8949 diagnostic notation of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// EncodeHex marshals v and hex-encodes the result, for transports that
// carry text.
func EncodeHex(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

// DecodeHex reverses EncodeHex. Surrounding whitespace is ignored.
func DecodeHex(s string, v any) error {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("failed to decode hex: %w", err)
	}
	return Unmarshal(data, v)
}
