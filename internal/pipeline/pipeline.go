package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/storybook/internal/document"
	"github.com/apresai/storybook/internal/imagegen"
	"github.com/apresai/storybook/internal/intake"
	"github.com/apresai/storybook/internal/mailer"
	"github.com/apresai/storybook/internal/observability"
	"github.com/apresai/storybook/internal/progress"
	"github.com/apresai/storybook/internal/replicate"
	"github.com/apresai/storybook/internal/storage"
	"github.com/apresai/storybook/internal/story"
	"github.com/apresai/storybook/internal/textgen"
	"github.com/apresai/storybook/internal/tts"
)

type Options struct {
	Intake intake.Intake
	// Title replaces the generated title when set.
	Title string
	// Note adds a closing author-note page.
	Note       string
	OutputPath string
	// OutputDir receives PDFName(title) when OutputPath is empty.
	OutputDir  string
	SkipAudio  bool
	SkipEmail  bool
	OnProgress progress.Callback
}

// Uploader stores narration audio and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, string, error)
}

// Deps are the resolved collaborators for a run. Audio, Storage and Mailer
// are optional; a nil value skips that step.
type Deps struct {
	Text    textgen.Generator
	Images  *imagegen.Batch
	Audio   tts.Provider
	Storage Uploader
	Mailer  mailer.Sender
	Layout  document.Options
	Logger  *slog.Logger
}

// Result describes a finished run. Warnings lists soft failures: the book
// exists but something around it did not happen.
type Result struct {
	RunID      string        `json:"run_id"`
	Title      string        `json:"title"`
	Scenes     []story.Scene `json:"scenes"`
	PDF        []byte        `json:"-"`
	Pages      int           `json:"pages"`
	AudioURL   string        `json:"audio_url,omitempty"`
	OutputPath string        `json:"output_path,omitempty"`
	Delivered  bool          `json:"delivered"`
	Warnings   []string      `json:"warnings,omitempty"`
}

type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

type run struct {
	deps   Deps
	opts   Options
	log    *slog.Logger
	tracer trace.Tracer
	start  time.Time
	result *Result
}

// Run generates one storybook: story, title, scenes, narration, cover and
// scene images, PDF, then delivery. Steps run one after another.
func Run(ctx context.Context, deps Deps, opts Options) (*Result, error) {
	if deps.Text == nil || deps.Images == nil {
		return nil, &PipelineError{Stage: "setup", Message: "text and image generators are required"}
	}
	if opts.OnProgress == nil {
		opts.OnProgress = progress.NopCallback
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := ulid.Make().String()
	r := &run{
		deps:   deps,
		opts:   opts,
		log:    logger.With("run_id", id),
		tracer: observability.Tracer(),
		start:  time.Now(),
		result: &Result{RunID: id},
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", id),
		attribute.String("text_provider", deps.Text.Name()),
		attribute.String("language", opts.Intake.Lang()),
	))
	defer span.End()

	if err := r.execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.emit(progress.Event{Stage: progress.StageComplete, Message: "Generation failed", Error: err})
		return nil, err
	}
	return r.result, nil
}

func (r *run) execute(ctx context.Context) error {
	in := r.opts.Intake
	if err := in.Validate(); err != nil {
		return &PipelineError{Stage: "intake", Message: "invalid intake", Err: err}
	}
	if in.Lang() == "zh" && r.deps.Layout.FontPath == "" {
		return &PipelineError{Stage: "layout", Message: "Chinese books need a UTF-8 font (layout.font_path or STORYBOOK_FONT)", Err: document.ErrFontRequired}
	}

	scenes, err := r.writeStory(ctx, in)
	if err != nil {
		return err
	}

	if !r.opts.SkipAudio && r.deps.Audio != nil {
		if err := r.narrate(ctx, scenes, in.Lang()); err != nil {
			return err
		}
	}

	cover, images := r.illustrate(ctx, in, scenes)

	if err := r.layout(ctx, in, scenes, cover, images); err != nil {
		return err
	}

	if !r.opts.SkipEmail && r.deps.Mailer != nil {
		r.deliver(ctx, in)
	}

	r.emit(progress.Event{
		Stage:      progress.StageComplete,
		Message:    fmt.Sprintf("Storybook %q ready", r.result.Title),
		Percent:    1,
		OutputFile: r.result.OutputPath,
		Pages:      r.result.Pages,
		SizeMB:     float64(len(r.result.PDF)) / (1024 * 1024),
		AudioURL:   r.result.AudioURL,
	})
	r.log.Info("storybook complete",
		"title", r.result.Title,
		"pages", r.result.Pages,
		"delivered", r.result.Delivered,
		"warnings", len(r.result.Warnings),
		"elapsed", time.Since(r.start).Round(time.Millisecond),
	)
	return nil
}

func (r *run) writeStory(ctx context.Context, in intake.Intake) ([]story.Scene, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.story")
	defer span.End()

	r.emit(progress.Event{Stage: progress.StageStory, Message: fmt.Sprintf("Writing a %d-scene story for %s...", in.SceneCount(), in.ChildName), Percent: 0.02})
	text, err := textgen.Story(ctx, r.deps.Text, in)
	if err != nil {
		return nil, r.fail(span, &PipelineError{Stage: "story", Message: "failed to generate story", Err: err})
	}

	title := strings.TrimSpace(r.opts.Title)
	if title == "" {
		r.emit(progress.Event{Stage: progress.StageStory, Message: "Choosing a title...", Percent: 0.15})
		title, err = textgen.Title(ctx, r.deps.Text, text)
		if err != nil {
			return nil, r.fail(span, &PipelineError{Stage: "title", Message: "failed to generate title", Err: err})
		}
	}
	r.result.Title = title

	scenes := story.ParseScenes(text)
	r.result.Scenes = scenes
	span.SetAttributes(attribute.Int("scenes", len(scenes)))
	if len(scenes) != in.SceneCount() {
		r.log.Warn("scene count differs from request", "want", in.SceneCount(), "got", len(scenes))
	}
	r.emit(progress.Event{Stage: progress.StageScenes, Message: fmt.Sprintf("%q: %d scenes", title, len(scenes)), Percent: 0.2})
	return scenes, nil
}

// narrate synthesizes and uploads the audio track. Only an unrecognized
// response shape is fatal; anything else leaves the book without audio.
func (r *run) narrate(ctx context.Context, scenes []story.Scene, lang string) error {
	ctx, span := r.tracer.Start(ctx, "pipeline.audio", trace.WithAttributes(attribute.String("provider", r.deps.Audio.Name())))
	defer span.End()

	r.emit(progress.Event{Stage: progress.StageAudio, Message: "Recording narration...", Percent: 0.22})
	audio, err := tts.Narrate(ctx, r.deps.Audio, scenes, lang)
	if err != nil {
		var shapeErr *replicate.UnrecognizedShapeError
		if errors.As(err, &shapeErr) {
			return r.fail(span, &PipelineError{Stage: "audio", Message: "unrecognized narration response", Err: err})
		}
		r.warn("audio", "narration failed", err)
		return nil
	}

	if r.deps.Storage == nil {
		r.log.Info("no storage configured, audio link omitted")
		return nil
	}
	key := storage.AudioKey(r.result.Title, string(audio.Format))
	_, url, err := r.deps.Storage.Upload(ctx, key, audio.Data, audio.Format.ContentType())
	if err != nil {
		r.warn("upload", "audio upload failed", err)
		return nil
	}
	r.result.AudioURL = url
	r.log.Info("narration uploaded", "url", url, "bytes", len(audio.Data))
	return nil
}

// illustrate never fails: missing images come back as placeholders.
func (r *run) illustrate(ctx context.Context, in intake.Intake, scenes []story.Scene) ([]byte, [][]byte) {
	ctx, span := r.tracer.Start(ctx, "pipeline.images", trace.WithAttributes(
		attribute.String("provider", r.deps.Images.Generator.Name()),
		attribute.Int("count", len(scenes)+1),
	))
	defer span.End()

	total := len(scenes) + 1
	batch := *r.deps.Images
	batch.OnImage = func(done, _ int) {
		r.emit(progress.Event{
			Stage:      progress.StageImages,
			Message:    fmt.Sprintf("Illustrated %d/%d", done+1, total),
			Percent:    progress.ImagePercent(done+1, total),
			ImageNum:   done + 1,
			ImageTotal: total,
		})
	}

	r.emit(progress.Event{Stage: progress.StageImages, Message: "Painting the cover...", Percent: progress.ImagePercent(0, total), ImageTotal: total})
	cover := r.deps.Images.One(ctx, story.CoverPrompt(in.ChildInterest))

	images := batch.Generate(ctx, story.Prompts(scenes))
	failed := 0
	for _, img := range images {
		if imagegen.IsPlaceholder(img) {
			failed++
		}
	}
	if failed > 0 {
		r.log.Warn("some illustrations are placeholders", "failed", failed, "total", len(images))
		span.SetAttributes(attribute.Int("placeholders", failed))
	}
	return cover, images
}

func (r *run) layout(ctx context.Context, in intake.Intake, scenes []story.Scene, cover []byte, images [][]byte) error {
	_, span := r.tracer.Start(ctx, "pipeline.layout")
	defer span.End()

	r.emit(progress.Event{Stage: progress.StageLayout, Message: "Laying out pages...", Percent: 0.9})
	book := document.Book{
		Title:    r.result.Title,
		Author:   in.AuthorName,
		Cover:    cover,
		Scenes:   story.Texts(scenes),
		Images:   images,
		AudioURL: r.result.AudioURL,
		Note:     r.opts.Note,
	}
	opts := r.deps.Layout
	if opts.Logger == nil {
		opts.Logger = r.log
	}
	pdf, err := document.Assemble(book, opts)
	if err != nil {
		return r.fail(span, &PipelineError{Stage: "layout", Message: "failed to build PDF", Err: err})
	}
	r.result.PDF = pdf
	r.result.Pages = book.Pages()
	span.SetAttributes(attribute.Int("pages", r.result.Pages), attribute.Int("bytes", len(pdf)))

	path := r.opts.OutputPath
	if path == "" && r.opts.OutputDir != "" {
		path = filepath.Join(r.opts.OutputDir, PDFName(r.result.Title))
	}
	if path != "" {
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return r.fail(span, &PipelineError{Stage: "layout", Message: "failed to write PDF", Err: err})
		}
		r.result.OutputPath = path
	}
	return nil
}

func (r *run) deliver(ctx context.Context, in intake.Intake) {
	ctx, span := r.tracer.Start(ctx, "pipeline.delivery")
	defer span.End()

	r.emit(progress.Event{Stage: progress.StageDelivery, Message: "Emailing " + in.RecipientEmail + "...", Percent: 0.95})
	msg := mailer.Compose(in.Lang(), in.RecipientEmail, r.result.Title, r.result.AudioURL, r.result.PDF)
	if err := r.deps.Mailer.Send(ctx, msg); err != nil {
		span.RecordError(err)
		r.warn("email", "email delivery failed", err)
		return
	}
	r.result.Delivered = true
	r.log.Info("storybook emailed", "to", in.RecipientEmail)
}

func (r *run) warn(stage, msg string, err error) {
	r.log.Error(msg, "stage", stage, "error", err)
	r.result.Warnings = append(r.result.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

func (r *run) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (r *run) emit(e progress.Event) {
	e.Elapsed = time.Since(r.start)
	r.opts.OnProgress(e)
}

// PDFName is the download file name for a title.
func PDFName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "storybook.pdf"
	}
	title = strings.ReplaceAll(title, "/", "-")
	return strings.ReplaceAll(title, " ", "_") + ".pdf"
}
