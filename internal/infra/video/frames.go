// Package video turns a screen-recording upload into resume and job
// description text, via multimodal extraction with an OCR fallback.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"

	"careerpilot/internal/domain/model"
)

// RawFrame is a decoded frame before deduplication and encoding.
type RawFrame struct {
	Img         image.Image
	TimestampMs int64
}

// FrameSource decodes a video into frames sampled at the given interval.
type FrameSource interface {
	Frames(ctx context.Context, path string, intervalMs int) ([]RawFrame, error)
}

var _ FrameSource = (*GocvSource)(nil)

// GocvSource decodes frames with OpenCV.
type GocvSource struct{}

func (GocvSource) Frames(ctx context.Context, path string, intervalMs int) ([]RawFrame, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	defer cap.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	var frames []RawFrame
	next := 0.0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ok := cap.Read(&mat); !ok || mat.Empty() {
			break
		}
		pos := cap.Get(gocv.VideoCapturePosMsec)
		if pos < next {
			continue
		}
		img, err := mat.ToImage()
		if err != nil {
			return nil, fmt.Errorf("decode frame at %.0fms: %w", pos, err)
		}
		frames = append(frames, RawFrame{Img: img, TimestampMs: int64(pos)})
		next = pos + float64(intervalMs)
	}
	return frames, nil
}

// DedupeFrames drops frames perceptually identical to the last kept frame.
// Two frames are duplicates when the Hamming distance between their
// perception hashes is at or below threshold.
func DedupeFrames(frames []RawFrame, threshold int) ([]RawFrame, error) {
	kept := make([]RawFrame, 0, len(frames))
	var last *goimagehash.ImageHash
	for _, f := range frames {
		h, err := goimagehash.PerceptionHash(f.Img)
		if err != nil {
			return nil, fmt.Errorf("hash frame at %dms: %w", f.TimestampMs, err)
		}
		if last != nil {
			d, err := last.Distance(h)
			if err != nil {
				return nil, fmt.Errorf("compare frame at %dms: %w", f.TimestampMs, err)
			}
			if d <= threshold {
				continue
			}
		}
		kept = append(kept, f)
		last = h
	}
	return kept, nil
}

// PrepareFrames encodes frames as JPEG for transport to the vision model.
func PrepareFrames(frames []RawFrame) ([]model.Frame, error) {
	out := make([]model.Frame, 0, len(frames))
	var buf bytes.Buffer
	for _, f := range frames {
		buf.Reset()
		if err := jpeg.Encode(&buf, f.Img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("encode frame at %dms: %w", f.TimestampMs, err)
		}
		out = append(out, model.Frame{
			Data:        append([]byte(nil), buf.Bytes()...),
			MIMEType:    "image/jpeg",
			TimestampMs: f.TimestampMs,
		})
	}
	return out, nil
}
