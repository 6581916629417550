package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/storybook/internal/document"
	"github.com/apresai/storybook/internal/imagegen"
	"github.com/apresai/storybook/internal/intake"
	"github.com/apresai/storybook/internal/mailer"
	"github.com/apresai/storybook/internal/progress"
	"github.com/apresai/storybook/internal/replicate"
	"github.com/apresai/storybook/internal/storage"
	"github.com/apresai/storybook/internal/story"
	"github.com/apresai/storybook/internal/textgen"
	"github.com/apresai/storybook/internal/tts"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const storyText = `Mia found a glowing shell on the beach. (a girl holding a glowing shell)
---
The shell hummed a song about the moon. (a shell with musical notes)
---
Mia sang back, and the waves danced. (waves dancing under the moon)`

type fakeText struct {
	storyErr error
	calls    []textgen.Request
}

func (f *fakeText) Name() string { return "fake" }

func (f *fakeText) Generate(_ context.Context, req textgen.Request) (string, error) {
	f.calls = append(f.calls, req)
	if req.System == story.TitleSystemPrompt {
		return "\"Mia and the Moon Shell\"", nil
	}
	if f.storyErr != nil {
		return "", f.storyErr
	}
	return storyText, nil
}

type fakeImages struct {
	png     []byte
	fail    map[int]bool
	calls   int
	prompts []string
}

func (f *fakeImages) Name() string { return "fake-images" }

func (f *fakeImages) Generate(_ context.Context, prompt string, _ imagegen.Size) ([]byte, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.fail[i] {
		return nil, errors.New("nsfw filter")
	}
	return f.png, nil
}

type fakeAudio struct {
	err  error
	text string
	lang string
}

func (f *fakeAudio) Name() string { return "fake-audio" }

func (f *fakeAudio) Synthesize(_ context.Context, text string, v tts.Voice) (tts.AudioResult, error) {
	f.text = text
	f.lang = v.Language
	if f.err != nil {
		return tts.AudioResult{}, f.err
	}
	return tts.AudioResult{Data: []byte("ID3audio"), Format: tts.FormatMP3}, nil
}

func (f *fakeAudio) VoiceFor(lang string) tts.Voice { return tts.Voice{ID: "v", Language: lang} }
func (f *fakeAudio) Close() error                   { return nil }

type fakeStorage struct {
	err         error
	key         string
	contentType string
}

func (f *fakeStorage) Upload(_ context.Context, key string, _ []byte, contentType string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.key, f.contentType = key, contentType
	return key, "https://cdn.example.com/" + key, nil
}

type fakeMailer struct {
	err  error
	sent []mailer.Message
}

func (f *fakeMailer) Send(_ context.Context, m mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.NRGBA{R: 180, G: 210, B: 240, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testIntake() intake.Intake {
	return intake.Intake{
		ChildName:      "Mia",
		ChildAge:       "5",
		ChildInterest:  "the ocean",
		StoryObjective: "bravery",
		AuthorName:     "Grandpa",
		RecipientEmail: "parent@example.com",
	}
}

type fixture struct {
	text    *fakeText
	images  *fakeImages
	audio   *fakeAudio
	storage *fakeStorage
	mail    *fakeMailer
}

func newFixture(t *testing.T) (*fixture, Deps) {
	f := &fixture{
		text:    &fakeText{},
		images:  &fakeImages{png: testPNG(t)},
		audio:   &fakeAudio{},
		storage: &fakeStorage{},
		mail:    &fakeMailer{},
	}
	deps := Deps{
		Text:    f.text,
		Images:  &imagegen.Batch{Generator: f.images, Strength: 1, Logger: quiet},
		Audio:   f.audio,
		Storage: f.storage,
		Mailer:  f.mail,
		Layout:  document.Options{Logger: quiet},
		Logger:  quiet,
	}
	return f, deps
}

func TestRun(t *testing.T) {
	f, deps := newFixture(t)
	f.images.fail = map[int]bool{2: true}
	out := filepath.Join(t.TempDir(), "book.pdf")

	var events []progress.Event
	res, err := Run(context.Background(), deps, Options{
		Intake:     testIntake(),
		OutputPath: out,
		OnProgress: func(e progress.Event) { events = append(events, e) },
	})
	require.NoError(t, err)

	t.Run("story and title", func(t *testing.T) {
		assert.Equal(t, "Mia and the Moon Shell", res.Title)
		require.Len(t, res.Scenes, 3)
		assert.Equal(t, "a shell with musical notes", res.Scenes[1].IllustrationPrompt)
		assert.NotEmpty(t, res.RunID)
		require.Len(t, f.text.calls, 2)
	})

	t.Run("cover first then scenes", func(t *testing.T) {
		require.Len(t, f.images.prompts, 4)
		assert.Equal(t, story.CoverPrompt("the ocean"), f.images.prompts[0])
		assert.Equal(t, "a girl holding a glowing shell", f.images.prompts[1])
	})

	t.Run("narration uploaded", func(t *testing.T) {
		assert.Equal(t, story.Narration(res.Scenes), f.audio.text)
		assert.Equal(t, "en", f.audio.lang)
		assert.Equal(t, storage.AudioKey("Mia and the Moon Shell", "mp3"), f.storage.key)
		assert.Equal(t, "audio/mpeg", f.storage.contentType)
		assert.Equal(t, "https://cdn.example.com/"+f.storage.key, res.AudioURL)
	})

	t.Run("pdf written with one page per scene", func(t *testing.T) {
		assert.Equal(t, 4, res.Pages)
		n, err := document.PageCount(res.PDF)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		onDisk, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, res.PDF, onDisk)
		assert.Equal(t, out, res.OutputPath)
	})

	t.Run("emailed with attachment", func(t *testing.T) {
		require.Len(t, f.mail.sent, 1)
		msg := f.mail.sent[0]
		assert.Equal(t, "parent@example.com", msg.To)
		require.Len(t, msg.Attachments, 1)
		assert.Equal(t, res.PDF, msg.Attachments[0].Data)
		assert.Contains(t, msg.HTML, res.AudioURL)
		assert.True(t, res.Delivered)
		assert.Empty(t, res.Warnings)
	})

	t.Run("progress", func(t *testing.T) {
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, progress.StageComplete, last.Stage)
		assert.Equal(t, 4, last.Pages)
		assert.NoError(t, last.Error)

		var images int
		for _, e := range events {
			if e.Stage == progress.StageImages && e.ImageNum > 0 {
				images++
			}
		}
		assert.Equal(t, 3, images)
	})
}

func TestRunFatalErrors(t *testing.T) {
	t.Run("invalid intake", func(t *testing.T) {
		_, deps := newFixture(t)
		in := testIntake()
		in.RecipientEmail = ""
		_, err := Run(context.Background(), deps, Options{Intake: in})

		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "intake", pe.Stage)
		assert.ErrorIs(t, err, intake.ErrMissingField)
	})

	t.Run("story failure propagates", func(t *testing.T) {
		f, deps := newFixture(t)
		f.text.storyErr = errors.New("connection refused")
		var last progress.Event
		_, err := Run(context.Background(), deps, Options{Intake: testIntake(), OnProgress: func(e progress.Event) { last = e }})

		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "story", pe.Stage)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Error(t, last.Error)
		assert.Zero(t, f.images.calls)
	})

	t.Run("unrecognized audio shape", func(t *testing.T) {
		f, deps := newFixture(t)
		f.audio.err = &replicate.UnrecognizedShapeError{Want: "url"}
		_, err := Run(context.Background(), deps, Options{Intake: testIntake()})

		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "audio", pe.Stage)
		assert.Empty(t, f.mail.sent)
	})

	t.Run("missing generators", func(t *testing.T) {
		_, err := Run(context.Background(), Deps{}, Options{Intake: testIntake()})
		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "setup", pe.Stage)
	})
}

func TestRunSoftFailures(t *testing.T) {
	t.Run("email failure still returns the book", func(t *testing.T) {
		f, deps := newFixture(t)
		f.mail.err = errors.New("smtp down")
		res, err := Run(context.Background(), deps, Options{Intake: testIntake()})
		require.NoError(t, err)
		assert.False(t, res.Delivered)
		assert.NotEmpty(t, res.PDF)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "smtp down")
	})

	t.Run("upload failure drops the audio link", func(t *testing.T) {
		f, deps := newFixture(t)
		f.storage.err = errors.New("403")
		res, err := Run(context.Background(), deps, Options{Intake: testIntake()})
		require.NoError(t, err)
		assert.Empty(t, res.AudioURL)
		assert.True(t, res.Delivered)
		require.Len(t, f.mail.sent, 1)
		assert.NotContains(t, f.mail.sent[0].HTML, "href='https://cdn.example.com")
		require.Len(t, res.Warnings, 1)
	})

	t.Run("narration failure", func(t *testing.T) {
		f, deps := newFixture(t)
		f.audio.err = errors.New("voice unavailable")
		res, err := Run(context.Background(), deps, Options{Intake: testIntake()})
		require.NoError(t, err)
		assert.Empty(t, res.AudioURL)
		assert.Empty(t, f.storage.key)
		assert.Len(t, res.Warnings, 1)
	})

	t.Run("every image fails", func(t *testing.T) {
		f, deps := newFixture(t)
		f.images.fail = map[int]bool{0: true, 1: true, 2: true, 3: true}
		res, err := Run(context.Background(), deps, Options{Intake: testIntake()})
		require.NoError(t, err)
		assert.Equal(t, 4, res.Pages)
	})
}

func TestRunOptions(t *testing.T) {
	t.Run("title override skips title generation", func(t *testing.T) {
		f, deps := newFixture(t)
		res, err := Run(context.Background(), deps, Options{Intake: testIntake(), Title: "Shell Song"})
		require.NoError(t, err)
		assert.Equal(t, "Shell Song", res.Title)
		assert.Len(t, f.text.calls, 1)
	})

	t.Run("skip audio and email", func(t *testing.T) {
		f, deps := newFixture(t)
		res, err := Run(context.Background(), deps, Options{Intake: testIntake(), SkipAudio: true, SkipEmail: true})
		require.NoError(t, err)
		assert.Empty(t, f.audio.text)
		assert.Empty(t, f.mail.sent)
		assert.False(t, res.Delivered)
	})

	t.Run("optional collaborators may be nil", func(t *testing.T) {
		_, deps := newFixture(t)
		deps.Audio, deps.Storage, deps.Mailer = nil, nil, nil
		res, err := Run(context.Background(), deps, Options{Intake: testIntake()})
		require.NoError(t, err)
		assert.Empty(t, res.AudioURL)
		assert.False(t, res.Delivered)
	})

	t.Run("note adds a page", func(t *testing.T) {
		_, deps := newFixture(t)
		res, err := Run(context.Background(), deps, Options{Intake: testIntake(), Note: "For Mia, with love"})
		require.NoError(t, err)
		assert.Equal(t, 5, res.Pages)
	})

	t.Run("output dir names the file after the title", func(t *testing.T) {
		_, deps := newFixture(t)
		dir := t.TempDir()
		res, err := Run(context.Background(), deps, Options{Intake: testIntake(), OutputDir: dir, SkipEmail: true})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "Mia_and_the_Moon_Shell.pdf"), res.OutputPath)
		assert.FileExists(t, res.OutputPath)
	})

	t.Run("chinese intake without a font fails before generating", func(t *testing.T) {
		f, deps := newFixture(t)
		in := testIntake()
		in.Language = "zh"
		_, err := Run(context.Background(), deps, Options{Intake: in})

		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "layout", pe.Stage)
		assert.ErrorIs(t, err, document.ErrFontRequired)
		assert.Empty(t, f.text.calls)
		assert.Zero(t, f.images.calls)
		assert.Empty(t, f.mail.sent)
	})

	t.Run("chinese story text without a font", func(t *testing.T) {
		f, deps := newFixture(t)
		_, err := Run(context.Background(), deps, Options{Intake: testIntake(), Title: "小鲸鱼的歌"})

		var pe *PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "layout", pe.Stage)
		assert.ErrorIs(t, err, document.ErrFontRequired)
		assert.Empty(t, f.mail.sent)
	})
}

func TestPDFName(t *testing.T) {
	assert.Equal(t, "Mia_and_the_Moon.pdf", PDFName("Mia and the Moon"))
	assert.Equal(t, "storybook.pdf", PDFName("  "))
	assert.Equal(t, "AC-DC.pdf", PDFName("AC/DC"))
}

func TestPipelineError(t *testing.T) {
	inner := errors.New("boom")
	err := &PipelineError{Stage: "story", Message: "failed", Err: inner}
	assert.Equal(t, "[story] failed: boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "[x] y", (&PipelineError{Stage: "x", Message: "y"}).Error())
}
