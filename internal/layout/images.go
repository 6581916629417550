package layout

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// JPEGQuality is used when images are recompressed.
	JPEGQuality = 70
	// MaxCompressedEdge caps the longer side of a recompressed image.
	MaxCompressedEdge = 1600
)

// Picture is an image ready to embed.
type Picture struct {
	Data   []byte
	Type   string // "PNG" or "JPG"
	Width  float64
	Height float64
}

// Normalize decodes img and returns it in a form the PDF writer accepts.
// JPEG passes through untouched; PNG, GIF and WebP are re-encoded as 8-bit
// PNG. With compress set, everything becomes a quality-70 JPEG with any
// transparency flattened onto white, downscaled so its longer side is at
// most MaxCompressedEdge. Width and Height always report the source size so
// page layout does not depend on compression.
func Normalize(img []byte, compress bool) (Picture, error) {
	if len(img) == 0 {
		return Picture{}, fmt.Errorf("empty image")
	}
	decoded, format, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return Picture{}, fmt.Errorf("decode image: %w", err)
	}
	b := decoded.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Picture{}, fmt.Errorf("image has no pixels")
	}
	pic := Picture{Width: float64(b.Dx()), Height: float64(b.Dy())}

	switch {
	case compress:
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, shrink(flatten(decoded)), &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return Picture{}, fmt.Errorf("encode jpeg: %w", err)
		}
		pic.Data, pic.Type = buf.Bytes(), "JPG"
	case format == "jpeg":
		pic.Data, pic.Type = img, "JPG"
	default:
		var buf bytes.Buffer
		if err := png.Encode(&buf, toNRGBA(decoded)); err != nil {
			return Picture{}, fmt.Errorf("encode png: %w", err)
		}
		pic.Data, pic.Type = buf.Bytes(), "PNG"
	}
	return pic, nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func shrink(src *image.RGBA) image.Image {
	b := src.Bounds()
	edge := max(b.Dx(), b.Dy())
	if edge <= MaxCompressedEdge {
		return src
	}
	w := b.Dx() * MaxCompressedEdge / edge
	h := b.Dy() * MaxCompressedEdge / edge
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
