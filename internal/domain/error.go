package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingInput marks a run whose inputs could not be recovered
	// (for example a video that yielded neither resume nor JD text).
	ErrMissingInput = errors.New("missing resume or job description input")

	// ErrSafetyBlocked marks a provider-side refusal to generate content.
	// It is permanent: the resilient caller never retries it.
	ErrSafetyBlocked = errors.New("provider safety block")

	// ErrNoFrames means video decoding produced zero frames; there is
	// nothing for either the vision model or the OCR fallback to read.
	ErrNoFrames = errors.New("no frames extracted from video")

	// ErrEmptyResponse marks a model call that succeeded at the transport
	// level but carried no usable text.
	ErrEmptyResponse = errors.New("model returned empty response")
)
