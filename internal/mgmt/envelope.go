package mgmt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// HTTP verbs understood by the handlers.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Request is a transport-neutral management request.
type Request struct {
	Method string
	Params Params
}

// Params holds request parameters as decoded from JSON or a query string.
type Params map[string]any

// Has reports whether name is present and non-null.
func (p Params) Has(name string) bool {
	v, ok := p[name]
	return ok && v != nil
}

// Require checks fields in order and returns a *MissingParameterError naming
// the first one absent.
func (p Params) Require(fields ...string) error {
	for _, f := range fields {
		if !p.Has(f) {
			return &MissingParameterError{Field: f}
		}
	}
	return nil
}

// Uint returns the named parameter as an unsigned integer that fits in bits.
//
// Numbers may arrive as JSON numbers, json.Number or strings. Strings are
// decimal unless prefixed with 0x, so "15", "015" and "0x0f" are equal.
func (p Params) Uint(name string, bits int) (uint64, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return 0, &MissingParameterError{Field: name}
	}

	var n uint64
	switch x := v.(type) {
	case float64:
		if x < 0 || x != math.Trunc(x) || x >= math.MaxUint64 {
			return 0, &InvalidParameterError{Field: name, Reason: "not an unsigned integer"}
		}
		n = uint64(x)
	case int:
		if x < 0 {
			return 0, &InvalidParameterError{Field: name, Reason: "negative"}
		}
		n = uint64(x)
	case int64:
		if x < 0 {
			return 0, &InvalidParameterError{Field: name, Reason: "negative"}
		}
		n = uint64(x)
	case uint8:
		n = uint64(x)
	case uint16:
		n = uint64(x)
	case uint64:
		n = x
	case json.Number:
		parsed, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return 0, &InvalidParameterError{Field: name, Reason: "not an unsigned integer"}
		}
		n = parsed
	case string:
		parsed, err := parseUintText(x)
		if err != nil {
			return 0, &InvalidParameterError{Field: name, Reason: "not an unsigned integer"}
		}
		n = parsed
	default:
		return 0, &InvalidParameterError{Field: name, Reason: fmt.Sprintf("unexpected type %T", v)}
	}

	if bits < 64 && n >= 1<<uint(bits) {
		return 0, &InvalidParameterError{Field: name, Reason: fmt.Sprintf("exceeds %d bits", bits)}
	}
	return n, nil
}

// parseUintText reads a decimal string, or hex with a 0x/0X prefix. A
// leading zero does not mean octal.
func parseUintText(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// UintOr is Uint with a default for absent parameters.
func (p Params) UintOr(name string, bits int, def uint64) (uint64, error) {
	if !p.Has(name) {
		return def, nil
	}
	return p.Uint(name, bits)
}

// String returns the named parameter as text. Numbers are not accepted.
func (p Params) String(name string) (string, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return "", &MissingParameterError{Field: name}
	}
	s, ok := v.(string)
	if !ok {
		return "", &InvalidParameterError{Field: name, Reason: "must be a string"}
	}
	return s, nil
}

// allows reports whether method is in the accepted set.
func allows(accepted []string, method string) bool {
	for _, m := range accepted {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
