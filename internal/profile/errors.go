package profile

import "errors"

var (
	// ErrUnsupportedFile rejects resume uploads that are not .docx.
	ErrUnsupportedFile = errors.New("only .docx files are supported")
	// ErrNoExtractor reports that no document text extractor is configured.
	ErrNoExtractor = errors.New("document text extraction is not available")
	// ErrExtract wraps extractor failures.
	ErrExtract = errors.New("docx parse failed")
)
