package imagegen

import "fmt"

// Size is an image size in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

var (
	DefaultSize   = Size{768, 768}
	FallbackSize  = Size{512, 512}
	StorybookSize = Size{1152, 648}
	OpenAISize    = Size{1536, 1024}
)

// Inference steps for the local backend.
const (
	DefaultSteps  = 4
	FallbackSteps = 2
)
