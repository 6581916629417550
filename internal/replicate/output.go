package replicate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnrecognizedShapeError means a model returned output we cannot normalize.
// Callers treat it as fatal rather than guess.
type UnrecognizedShapeError struct {
	Want string
	Raw  string
}

func (e *UnrecognizedShapeError) Error() string {
	raw := e.Raw
	if len(raw) > 120 {
		raw = raw[:120] + "..."
	}
	return fmt.Sprintf("unrecognized %s output shape: %s", e.Want, raw)
}

// OutputText normalizes a text model's output: a plain string, or a list
// of string chunks joined in order.
func OutputText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var chunks []string
	if err := json.Unmarshal(raw, &chunks); err == nil {
		return strings.TrimSpace(strings.Join(chunks, "")), nil
	}

	return "", &UnrecognizedShapeError{Want: "text", Raw: string(raw)}
}

type fileOutput struct {
	URL string `json:"url"`
}

// OutputURL normalizes a file-producing model's output to a URL. Accepted
// shapes: a URL string, a list whose first item is a URL string or an
// object with a url field, or such an object directly.
func OutputURL(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		if u, ok := urlFrom(list[0]); ok {
			return u, nil
		}
	}

	if u, ok := urlFrom(raw); ok {
		return u, nil
	}

	return "", &UnrecognizedShapeError{Want: "file", Raw: string(raw)}
}

func urlFrom(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, true
	}
	var f fileOutput
	if err := json.Unmarshal(raw, &f); err == nil && f.URL != "" {
		return f.URL, true
	}
	return "", false
}
