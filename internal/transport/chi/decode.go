package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// nestedOptions are body keys whose values are option objects and get their
// own keys camel-cased. Every other value is user data (documents, synonyms,
// search rules, filters) and is left byte-for-byte intact.
var nestedOptions = map[string]struct{}{
	"typoTolerance":       {},
	"minWordSizeForTypos": {},
	"faceting":            {},
	"apiKey":              {},
}

// errBodyTooLarge is reported when the body exceeds the configured limit.
var errBodyTooLarge = errors.New("request body too large")

// readBody reads a JSON object body with keys normalised to camelCase.
func readBody(w http.ResponseWriter, r *http.Request, maxBytes int64) (map[string]json.RawMessage, error) {
	body := r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		return nil, domain.BadRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.BadRequest("request body is required")
	}
	return camelObject(data)
}

// decodeBody reads the body into dst after key normalisation.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	fields, err := readBody(w, r, maxBytes)
	if err != nil {
		return err
	}
	return decodeFields(fields, dst)
}

func decodeFields(fields map[string]json.RawMessage, dst any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return domain.BadRequest("invalid request body: %v", err)
	}
	// Numbers inside documents keep their exact text, so large integer ids
	// survive the round trip.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			return err
		}
		return domain.BadRequest("invalid request body: %v", err)
	}
	return nil
}

func camelObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.BadRequest("request body must be a JSON object: %v", err)
	}

	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		key := camelCase(k)
		if _, ok := nestedOptions[key]; ok && isObject(v) {
			inner, err := camelObject(v)
			if err != nil {
				return nil, err
			}
			if v, err = json.Marshal(inner); err != nil {
				return nil, domain.BadRequest("invalid %s: %v", key, err)
			}
		}
		// An explicit camelCase key wins over its snake_case spelling.
		if _, exists := out[key]; exists && key != k {
			continue
		}
		out[key] = v
	}
	return out, nil
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

// camelCase turns snake_case into camelCase. Keys without underscores are
// returned unchanged.
func camelCase(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	upper := false
	for i, r := range s {
		if r == '_' {
			if i == 0 {
				b.WriteRune(r)
			} else {
				upper = true
			}
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}

// stringField extracts a string value, "" when absent or null.
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", domain.BadRequest("%s must be a string", key)
	}
	return s, nil
}

// requireUID extracts the mandatory index uid.
func requireUID(fields map[string]json.RawMessage) (string, error) {
	uid, err := stringField(fields, "uid")
	if err != nil {
		return "", err
	}
	if uid == "" {
		return "", domain.BadRequest("uid is required")
	}
	return uid, nil
}
