package pipeline

import "context"

// Adapter contracts consumed by the orchestrator. Every call is a blocking
// I/O boundary; implementations must honor context cancellation. Retries, if
// any, belong inside the adapter, never in the orchestration logic.

// MediaFetcher downloads the source bytes for an opaque content reference.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, ref string) ([]byte, error)
}

// TextRecognizer runs OCR over image bytes and returns the recognized text,
// possibly empty.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) (string, error)
}

// LanguageDetector identifies the language of a text.
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Translator translates text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Summarizer produces the model reply. imageURL is empty in text mode; in
// vision mode it carries the signed URL of the stored object.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, imageURL string) (string, error)
}

// ReplyDeliverer hands the final text to the messaging channel.
type ReplyDeliverer interface {
	DeliverReply(ctx context.Context, replyToken, text string) error
}

// ObjectStore is the slice of the media store the pipeline needs.
type ObjectStore interface {
	Put(payload []byte) (id, token string, err error)
}
