package imagegen

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/apresai/storybook/internal/ratelimit"
)

// Local bounds a batch on a BatchGenerator.
type Local struct {
	// SoftLimit is how long a batch may take before it is redone at the
	// fallback size.
	SoftLimit time.Duration
	// HardTimeout cancels a batch outright.
	HardTimeout time.Duration
}

// DefaultLocal mirrors the limits used for the on-box model.
var DefaultLocal = Local{SoftLimit: 25 * time.Second, HardTimeout: 300 * time.Second}

// Batch turns prompts into images without ever failing: every prompt yields
// either an image or the placeholder.
type Batch struct {
	Generator Generator
	Limiter   *ratelimit.Limiter
	Strength  float64
	Size      Size
	Steps     int
	Logger    *slog.Logger
	Local     Local
	Clock     ratelimit.Clock
	// OnImage, if set, is called after each finished image with its
	// 1-based position.
	OnImage func(done, total int)
}

func (b *Batch) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Batch) clock() ratelimit.Clock {
	if b.Clock != nil {
		return b.Clock
	}
	return ratelimit.SystemClock
}

func (b *Batch) size() Size {
	if b.Size.Width > 0 && b.Size.Height > 0 {
		return b.Size
	}
	return DefaultSize
}

func (b *Batch) steps() int {
	if b.Steps > 0 {
		return b.Steps
	}
	return DefaultSteps
}

// Generate returns exactly one image per prompt, in order. Calls run one at
// a time, each paced by the limiter.
func (b *Batch) Generate(ctx context.Context, prompts []string) [][]byte {
	if len(prompts) == 0 {
		return [][]byte{}
	}
	if lg, ok := b.Generator.(BatchGenerator); ok {
		out := b.generateLocal(ctx, lg, prompts)
		b.report(len(out), len(out))
		return out
	}

	out := make([][]byte, len(prompts))
	for i, p := range prompts {
		out[i] = b.one(ctx, i, p)
		b.report(i+1, len(prompts))
	}
	return out
}

func (b *Batch) report(done, total int) {
	if b.OnImage != nil {
		b.OnImage(done, total)
	}
}

// One generates a single image, e.g. the cover, with the same placeholder
// fallback as Generate.
func (b *Batch) One(ctx context.Context, prompt string) []byte {
	return b.Generate(ctx, []string{prompt})[0]
}

func (b *Batch) one(ctx context.Context, i int, prompt string) []byte {
	log := b.logger().With("provider", b.Generator.Name(), "index", i)

	if strings.TrimSpace(prompt) == "" {
		log.Warn("empty illustration prompt, using placeholder")
		return Placeholder()
	}
	if err := b.Limiter.Wait(ctx); err != nil {
		log.Error("image generation cancelled", "error", err)
		return Placeholder()
	}

	start := b.clock().Now()
	img, err := b.Generator.Generate(ctx, Strengthen(prompt, b.Strength), b.size())
	if err != nil {
		log.Error("image generation failed, using placeholder", "error", err)
		return Placeholder()
	}
	if len(img) == 0 {
		log.Error("image generation returned no data, using placeholder")
		return Placeholder()
	}
	log.Debug("image generated", "bytes", len(img), "elapsed", b.clock().Now().Sub(start))
	return img
}

func (b *Batch) generateLocal(ctx context.Context, lg BatchGenerator, prompts []string) [][]byte {
	log := b.logger().With("provider", lg.Name(), "count", len(prompts))

	strengthened := make([]string, len(prompts))
	for i, p := range prompts {
		strengthened[i] = Strengthen(p, b.Strength)
	}

	imgs, elapsed, err := b.runLocal(ctx, lg, strengthened, b.size(), b.steps())
	switch {
	case err != nil:
		log.Error("local generation failed, retrying at fallback size", "error", err)
		imgs, _, err = b.runLocal(ctx, lg, strengthened, FallbackSize, FallbackSteps)
	case b.Local.SoftLimit > 0 && elapsed > b.Local.SoftLimit:
		log.Warn("slow local generation, retrying at fallback size", "elapsed", elapsed)
		if smaller, _, ferr := b.runLocal(ctx, lg, strengthened, FallbackSize, FallbackSteps); ferr == nil {
			imgs = smaller
		} else {
			log.Error("fallback generation failed, keeping first result", "error", ferr)
		}
	}
	if err != nil {
		log.Error("local generation failed, using placeholders", "error", err)
		out := make([][]byte, len(prompts))
		for i := range out {
			out[i] = Placeholder()
		}
		return out
	}

	for i, img := range imgs {
		if len(img) == 0 || strings.TrimSpace(prompts[i]) == "" {
			imgs[i] = Placeholder()
		}
	}
	return imgs
}

func (b *Batch) runLocal(ctx context.Context, lg BatchGenerator, prompts []string, size Size, steps int) ([][]byte, time.Duration, error) {
	if b.Local.HardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Local.HardTimeout)
		defer cancel()
	}
	start := b.clock().Now()
	imgs, err := lg.GenerateBatch(ctx, prompts, size, steps)
	return imgs, b.clock().Now().Sub(start), err
}
