package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

// encodePNG renders a synthetic test frame. A diagonal gradient gives
// the luma statistics enough spread to pass the quality gate.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x + y) * 255 / (width + height))
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

// fakeMatcher is a canned recognizer.Matcher for handler tests.
type fakeMatcher struct {
	match *recognizer.Match
	err   error
}

func (f *fakeMatcher) Name() string {
	return "fake"
}

func (f *fakeMatcher) Match(ctx context.Context, frame []byte) (*recognizer.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.match, nil
}
