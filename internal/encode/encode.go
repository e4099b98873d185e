// Package encode turns arbitrary values into span-attribute-legal strings:
// size-bounded JSON encoding with visible truncation, short content hashes for
// drift detection, and opt-in PII redaction.
package encode

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"
)

// Size bounds from the semantic contract: message-class fields carry up to
// 4 KiB of serialized content, tool-class fields up to 2 KiB.
const (
	MaxMessageBytes = 4096
	MaxToolBytes    = 2048
)

// JSON serializes v as a JSON-formatted string bounded by maxBytes. Strings
// are JSON-quoted so the result is always valid JSON. If the serialized form
// exceeds maxBytes, the cut serialized content plus a marker stating the
// original length are re-encoded as a JSON string, so a truncated result is
// still a valid json_string attribute value. Truncation is visible, never an
// error, and operates on the serialized string, never on the value itself.
// The cut lands on a UTF-8 rune boundary so the marked content stays valid
// UTF-8. Encoding is deterministic: map keys are sorted by encoding/json, so
// equal values yield byte-identical output.
//
// Values that cannot be serialized (channels, funcs, non-finite floats) return
// an error; callers omit the attribute rather than recording a placeholder.
func JSON(v any, maxBytes int) (s string, truncated bool, err error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", false, fmt.Errorf("encode: %w", err)
	}
	if len(b) <= maxBytes {
		return string(b), false, nil
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	marked, err := json.Marshal(string(b[:cut]) + fmt.Sprintf("... [TRUNCATED: %d chars]", len(b)))
	if err != nil {
		return "", false, fmt.Errorf("encode: %w", err)
	}
	return string(marked), true, nil
}

// Hash8 returns the first 8 hex characters of the SHA-256 digest of content.
// Deterministic fingerprint for prompt-registry drift detection, not security.
func Hash8(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:8]
}

// Capture applies the type-based safety filter used for input/output capture.
// Primitives are always captured; compound values (maps, slices, structs) are
// captured only when their serialized form fits within maxBytes. Values of
// unrecognized or unserializable type, and compound values over the bound,
// are omitted (ok=false). Omission, not truncation, is the contract for
// captured call arguments.
func Capture(v any, maxBytes int) (string, bool) {
	if v == nil {
		return "", false
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		s, _, err := JSON(v, maxBytes)
		if err != nil {
			return "", false
		}
		return s, true

	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		b, err := json.Marshal(v)
		if err != nil || len(b) > maxBytes {
			return "", false
		}
		return string(b), true

	default:
		return "", false
	}
}
