package document

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 220, B: 250, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBookPages(t *testing.T) {
	tests := []struct {
		name string
		book Book
		want int
	}{
		{"cover only", Book{}, 1},
		{"equal lists", Book{Scenes: []string{"a", "b"}, Images: [][]byte{nil, nil}}, 3},
		{"more scenes", Book{Scenes: []string{"a", "b", "c"}, Images: [][]byte{nil}}, 4},
		{"more images", Book{Scenes: []string{"a"}, Images: [][]byte{nil, nil}}, 3},
		{"with note", Book{Scenes: []string{"a"}, Note: "For Mia"}, 3},
		{"blank note", Book{Scenes: []string{"a"}, Note: "  "}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.book.Pages())
		})
	}
}

func TestAssemble(t *testing.T) {
	img := testPNG(t)

	t.Run("mismatched lists", func(t *testing.T) {
		book := Book{
			Title:    "Mia and the Moon",
			Author:   "Grandma",
			Cover:    img,
			Scenes:   []string{"Mia looked up.", "The moon winked.", "Mia waved goodnight."},
			Images:   [][]byte{img, img},
			AudioURL: "https://cdn.example.com/Mia_and_the_Moon_audio.mp3",
		}
		data, err := Assemble(book, quiet)
		require.NoError(t, err)

		n, err := PageCount(data)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("more images than scenes", func(t *testing.T) {
		data, err := Assemble(Book{Title: "T", Scenes: []string{"one"}, Images: [][]byte{img, img, img}}, quiet)
		require.NoError(t, err)
		n, err := PageCount(data)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("corrupt images do not fail the book", func(t *testing.T) {
		book := Book{Title: "T", Cover: []byte("junk"), Scenes: []string{"a", "b"}, Images: [][]byte{[]byte("junk"), nil}}
		data, err := Assemble(book, quiet)
		require.NoError(t, err)
		n, err := PageCount(data)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("note page", func(t *testing.T) {
		data, err := Assemble(Book{Title: "T", Scenes: []string{"a"}, Note: "With love"}, quiet)
		require.NoError(t, err)
		n, err := PageCount(data)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("missing font", func(t *testing.T) {
		_, err := Assemble(Book{Title: "T"}, Options{FontPath: "/nope.ttf"})
		assert.Error(t, err)
	})

	t.Run("chinese text without a font", func(t *testing.T) {
		_, err := Assemble(Book{
			Title:  "小鲸鱼的歌",
			Author: "妈妈",
			Scenes: []string{"小鲸鱼在海里唱歌。"},
		}, quiet)
		assert.ErrorIs(t, err, ErrFontRequired)
	})

	t.Run("curly quotes need no font", func(t *testing.T) {
		data, err := Assemble(Book{Title: "Mia\u2019s \u201cMoon\u201d", Scenes: []string{"Caf\u00e9 time\u2026"}}, quiet)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	})
}

func TestNeedsUnicodeFont(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  bool
	}{
		{"ascii", []string{"Mia and the Moon"}, false},
		{"latin-1", []string{"Jos\u00e9 \u00fcber"}, false},
		{"windows-1252 punctuation", []string{"\u201cHi\u201d \u2013 \u20ac5"}, false},
		{"chinese", []string{"ok", "小鲸鱼"}, true},
		{"emoji", []string{"Moon \U0001F319"}, true},
		{"nothing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsUnicodeFont(tt.texts...))
		})
	}
}

func TestInspect(t *testing.T) {
	data, err := Assemble(Book{
		Title:  "Whale Song",
		Author: "Dad",
		Scenes: []string{"Kai met a whale.", "They sang together."},
	}, quiet)
	require.NoError(t, err)

	s, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Pages)
	require.Len(t, s.Text, 3)
	assert.Contains(t, strings.ReplaceAll(s.Text[1], " ", ""), "Kaimet")
}

func TestPageCountRejectsGarbage(t *testing.T) {
	_, err := PageCount([]byte("not a pdf"))
	assert.Error(t, err)
	_, err = Inspect([]byte("not a pdf"))
	assert.Error(t, err)
}
