package repository

import "context"

// TextExtractor recovers resume and job-description text from an uploaded
// video. Implementations cache by video content hash and degrade to OCR
// when the vision path is blocked or invalid.
type TextExtractor interface {
	Extract(ctx context.Context, videoPath string) (resumeText, jdText string, err error)
}
