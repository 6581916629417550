package progress

import "time"

// Stage identifies which pipeline stage is active.
type Stage string

const (
	StageStory    Stage = "story"
	StageScenes   Stage = "scenes"
	StageAudio    Stage = "audio"
	StageImages   Stage = "images"
	StageLayout   Stage = "layout"
	StageDelivery Stage = "delivery"
	StageComplete Stage = "complete"
)

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // 0.0–1.0
	// ImageNum and ImageTotal count illustrations, cover included.
	ImageNum   int
	ImageTotal int
	Elapsed    time.Duration
	Error      error
	// OutputFile is set on StageComplete when the PDF was written to disk.
	OutputFile string
	// Pages is the page count of the finished PDF, set on StageComplete.
	Pages int
	// SizeMB is the PDF size in MB, set on StageComplete.
	SizeMB float64
	// AudioURL is the public narration link, set on StageComplete.
	AudioURL string
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}

// ImagePercent maps image n of total onto the images band of the bar.
func ImagePercent(n, total int) float64 {
	const lo, hi = 0.30, 0.85
	if total <= 0 {
		return lo
	}
	return lo + (hi-lo)*float64(n)/float64(total)
}
