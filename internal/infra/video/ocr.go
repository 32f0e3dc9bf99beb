package video

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"careerpilot/internal/domain/model"
)

// OCRReader recognizes text in prepared frames, one block per frame.
type OCRReader interface {
	ReadText(frames []model.Frame) ([]string, error)
}

var _ OCRReader = (*TesseractOCR)(nil)

// TesseractOCR reads frame text with tesseract. It is the fallback path
// when the vision model fails or returns unusable output.
type TesseractOCR struct {
	languages []string
}

func NewTesseractOCR(languages []string) *TesseractOCR {
	return &TesseractOCR{languages: languages}
}

func (t *TesseractOCR) ReadText(frames []model.Frame) ([]string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return nil, fmt.Errorf("set ocr languages: %w", err)
		}
	}

	var blocks []string
	for _, f := range frames {
		if err := client.SetImageFromBytes(f.Data); err != nil {
			return nil, fmt.Errorf("load frame at %dms: %w", f.TimestampMs, err)
		}
		text, err := client.Text()
		if err != nil {
			return nil, fmt.Errorf("ocr frame at %dms: %w", f.TimestampMs, err)
		}
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks, nil
}

// ClassifyBlocks splits recognized text blocks into resume and job
// description text. Blocks mentioning resume section headings count as
// resume; everything else counts as job description.
func ClassifyBlocks(blocks []string) (resumeText, jdText string) {
	var resume, jd []string
	for _, b := range blocks {
		lower := strings.ToLower(b)
		if strings.Contains(lower, "experience") || strings.Contains(lower, "education") {
			resume = append(resume, b)
		} else {
			jd = append(jd, b)
		}
	}
	return strings.Join(resume, "\n"), strings.Join(jd, "\n")
}
