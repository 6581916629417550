package imagegen

import (
	"math"
	"strings"

	"github.com/apresai/storybook/internal/story"
)

// DefaultStrength repeats the style anchor once ahead of each prompt.
const DefaultStrength = 1.2

const maxAnchorRepeats = 3

// Strengthen prefixes prompt with the style anchor so every illustration in a
// book shares one look. A strength of 1 or less leaves the prompt unchanged;
// above that the anchor is repeated round((strength-1)*2) extra times, at
// most three.
func Strengthen(prompt string, strength float64) string {
	if strength <= 1.0 {
		return prompt
	}
	repeats := int(math.Round((strength - 1.0) * 2))
	repeats = min(maxAnchorRepeats, repeats)

	anchors := make([]string, repeats)
	for i := range anchors {
		anchors[i] = story.StyleAnchor
	}
	return story.StyleAnchor + " " + strings.Join(anchors, " ") + " " + prompt
}
