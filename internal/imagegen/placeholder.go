package imagegen

import (
	"bytes"
	"encoding/base64"
)

// PlaceholderBase64 is a 1x1 transparent PNG used wherever an illustration
// could not be generated.
const PlaceholderBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVQIW2NgYGD4DwABBAEAAqF5/AAAAABJRU5ErkJggg=="

var placeholder = mustDecode(PlaceholderBase64)

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Placeholder returns a fresh copy of the placeholder PNG bytes.
func Placeholder() []byte {
	return bytes.Clone(placeholder)
}

// IsPlaceholder reports whether img is the placeholder image.
func IsPlaceholder(img []byte) bool {
	return bytes.Equal(img, placeholder)
}
