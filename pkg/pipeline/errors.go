package pipeline

import "errors"

// Stage error taxonomy. Fetch, store-write and summarization failures abort
// a run; recognition, detection and translation failures only degrade it.
var (
	ErrFetchFailed         = errors.New("media fetch failed")
	ErrStoreWriteFailed    = errors.New("object store write failed")
	ErrRecognitionFailed   = errors.New("text recognition failed")
	ErrDetectionFailed     = errors.New("language detection failed")
	ErrTranslationFailed   = errors.New("translation failed")
	ErrSummarizationFailed = errors.New("summarization failed")
	ErrDeliveryFailed      = errors.New("reply delivery failed")
)
