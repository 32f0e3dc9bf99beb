package model

import (
	"github.com/oklog/ulid/v2"
)

// ContextChunk is a retrieved or generated passage of text supplied to the
// model as grounding for the final analysis. Chunks coming from the vector
// store carry the similarity score reported by the index; freshly generated
// knowledge carries no score. Immutable once created.
type ContextChunk struct {
	Text   string  `json:"text"`
	Score  float32 `json:"score,omitempty"`
	Source string  `json:"source"`
}

// AnalysisRequest is the inbound trigger payload. Either both text fields
// are set, or VideoPath points at an uploaded video. Video takes priority
// when both are present.
type AnalysisRequest struct {
	ResumeText string `json:"resume_text,omitempty"`
	JDText     string `json:"jd_text,omitempty"`
	VideoPath  string `json:"-"`
}

// AnalysisResult is the terminal value of a run: either a structured
// analysis object, or an explicit error marker when the pipeline ran but
// decided it could not proceed. A result whose Analysis contains only a
// "raw_text" key is a degraded result from unparseable model output.
type AnalysisResult struct {
	Analysis map[string]any `json:"analysis,omitempty"`
	Error    string         `json:"error,omitempty"`
	Cached   bool           `json:"cached,omitempty"`
}

// Failed reports whether the run produced an error marker instead of an
// analysis object.
func (r *AnalysisResult) Failed() bool { return r != nil && r.Error != "" }

// AnalysisRun is the per-request unit of work. It is mutated by workflow
// steps as they produce new fields and discarded once a result is returned;
// it has no durable identity beyond one run.
type AnalysisRun struct {
	ID         string
	ResumeText string
	JDText     string
	VideoPath  string

	CacheKey  string
	Context   []ContextChunk
	Generated string
	Result    *AnalysisResult
}

func NewAnalysisRun(req AnalysisRequest) *AnalysisRun {
	return &AnalysisRun{
		ID:         ulid.Make().String(),
		ResumeText: req.ResumeText,
		JDText:     req.JDText,
		VideoPath:  req.VideoPath,
	}
}
