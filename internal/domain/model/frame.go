package model

// Frame is one sampled video frame, already encoded for transmission to a
// vision model. Frames are ephemeral: produced during video processing and
// never persisted beyond the run.
type Frame struct {
	Data        []byte
	MIMEType    string
	TimestampMs int64
}
