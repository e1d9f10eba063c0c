package quality

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Level buckets a numeric score into a human-readable usability rating.
type Level string

const (
	LevelExcellent  Level = "excellent"
	LevelGood       Level = "good"
	LevelAcceptable Level = "acceptable"
	LevelPoor       Level = "poor"
)

// Rejection reasons attached to low-quality frames.
const (
	ReasonEmptyFrame    = "empty frame"
	ReasonFrameTooSmall = "frame too small"
	ReasonOversized     = "frame oversized"
	ReasonBadEncoding   = "unrecognized or corrupt image data"
	ReasonLowResolution = "resolution too low"
	ReasonTooDark       = "image too dark"
	ReasonTooBright     = "image too bright"
	ReasonLowContrast   = "low contrast"
)

// acceptableScore is the floor for a frame to be usable downstream.
const acceptableScore = 60

// minDimensionPx is the smallest usable width/height for face work.
const minDimensionPx = 160

// Score is the usability rating of a single captured frame.
type Score struct {
	Value            int      `json:"value"` // 0-100
	Level            Level    `json:"level"`
	SizeBytes        int      `json:"size_bytes"`
	RejectionReasons []string `json:"rejection_reasons,omitempty"`
}

// Acceptable reports whether the frame may be submitted for recognition.
func (s Score) Acceptable() bool {
	return s.Value >= acceptableScore
}

// Evaluator scores captured frames before they are ever sent to the
// matching service. It is a pure function over bytes and never fails;
// garbage input produces a poor score with rejection reasons instead.
type Evaluator struct {
	minFrameBytes int
	maxFrameBytes int
}

// NewEvaluator creates an evaluator with the given payload size bounds.
func NewEvaluator(minFrameBytes, maxFrameBytes int) *Evaluator {
	if minFrameBytes <= 0 {
		minFrameBytes = 4096
	}
	if maxFrameBytes <= minFrameBytes {
		maxFrameBytes = 8 << 20
	}
	return &Evaluator{
		minFrameBytes: minFrameBytes,
		maxFrameBytes: maxFrameBytes,
	}
}

// Evaluate scores a frame for usability.
func (e *Evaluator) Evaluate(frame []byte) Score {
	score := Score{SizeBytes: len(frame)}

	if len(frame) == 0 {
		score.RejectionReasons = append(score.RejectionReasons, ReasonEmptyFrame)
		score.Level = LevelPoor
		return score
	}

	// A payload below the floor is almost certainly a blank or truncated
	// capture. Don't bother decoding it; cap the score well under the
	// acceptance threshold.
	if len(frame) < e.minFrameBytes {
		score.Value = 30 * len(frame) / e.minFrameBytes
		score.RejectionReasons = append(score.RejectionReasons, ReasonFrameTooSmall)
		score.Level = levelFor(score.Value)
		return score
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		score.Value = 0
		score.RejectionReasons = append(score.RejectionReasons, ReasonBadEncoding)
		score.Level = LevelPoor
		return score
	}

	value := 100

	// Oversized payloads are penalized but stay usable.
	if len(frame) > e.maxFrameBytes {
		value -= 15
		score.RejectionReasons = append(score.RejectionReasons, ReasonOversized)
	}

	bounds := img.Bounds()
	if bounds.Dx() < minDimensionPx || bounds.Dy() < minDimensionPx {
		value -= 45
		score.RejectionReasons = append(score.RejectionReasons, ReasonLowResolution)
	}

	mean, stddev := lumaStats(img)
	switch {
	case mean < 40:
		value -= 30
		score.RejectionReasons = append(score.RejectionReasons, ReasonTooDark)
	case mean > 215:
		value -= 30
		score.RejectionReasons = append(score.RejectionReasons, ReasonTooBright)
	}
	if stddev < 12 {
		value -= 25
		score.RejectionReasons = append(score.RejectionReasons, ReasonLowContrast)
	}

	if value < 0 {
		value = 0
	}
	score.Value = value
	score.Level = levelFor(value)
	return score
}

// levelFor maps a numeric score to its level bucket.
func levelFor(value int) Level {
	switch {
	case value >= 85:
		return LevelExcellent
	case value >= 70:
		return LevelGood
	case value >= acceptableScore:
		return LevelAcceptable
	default:
		return LevelPoor
	}
}

// lumaStats computes the mean and standard deviation of image luminance.
// The image is downscaled to 64x64 first so the cost is independent of
// the capture resolution.
func lumaStats(img image.Image) (mean, stddev float64) {
	const sample = 64
	resized := image.NewRGBA(image.Rect(0, 0, sample, sample))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	var sum, sumSq float64
	for y := range sample {
		for x := range sample {
			r, g, b, _ := resized.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			sum += luma
			sumSq += luma * luma
		}
	}

	n := float64(sample * sample)
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// Suggestions returns short corrective hints for the rejection reasons
// carried by a score, for display on kiosk screens.
func Suggestions(s Score) []string {
	var out []string
	for _, reason := range s.RejectionReasons {
		switch reason {
		case ReasonEmptyFrame, ReasonFrameTooSmall, ReasonBadEncoding:
			out = append(out, "Check the camera connection and try again")
		case ReasonLowResolution:
			out = append(out, "Move closer to the camera")
		case ReasonTooDark:
			out = append(out, "Improve the lighting or face a light source")
		case ReasonTooBright:
			out = append(out, "Reduce direct light on the camera")
		case ReasonLowContrast:
			out = append(out, "Adjust the lighting for more contrast")
		case ReasonOversized:
			out = append(out, fmt.Sprintf("Frame is large (%d bytes); consider lowering capture resolution", s.SizeBytes))
		}
	}
	return out
}
