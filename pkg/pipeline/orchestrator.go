// Package pipeline drives an incoming chat event through the
// content-understanding stages: store, OCR, language detection, translation
// and model summarization. Stage order and fallback policy live here and
// nowhere else; recoverable stage failures degrade the input to the next
// stage instead of aborting the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chia-ai0924/line-gpt-chatbot/pkg/telemetry"
)

// FailureReply is the only text a user ever sees when a run aborts. Raw
// adapter errors are logged, never surfaced.
const FailureReply = "圖片分析失敗，請稍後再試～"

// analysisTask is the instruction handed to the model alongside either the
// recognized text or the signed image URL.
const analysisTask = "這是使用者提供的圖片內容，請用繁體中文分析其含意。若圖片以文字為主，請整理並翻譯；若以圖像為主，請說明圖像內容。"

// Config carries the orchestration policy knobs.
type Config struct {
	// PublicBaseURL is the externally reachable base for signed image URLs.
	PublicBaseURL string
	// TargetLanguage is the translation target for recognized text.
	TargetLanguage string
	// NativeLanguages lists codes already in the target language; detection
	// hits here skip translation. Compared case-insensitively.
	NativeLanguages []string
	// AdapterTimeout bounds each individual adapter call. Zero disables the
	// per-call bound (the run budget still applies).
	AdapterTimeout time.Duration
}

// Deps collects the adapter implementations.
type Deps struct {
	Store      ObjectStore
	Fetcher    MediaFetcher
	Recognizer TextRecognizer
	Detector   LanguageDetector
	Translator Translator
	Summarizer Summarizer
	Deliverer  ReplyDeliverer
}

type Orchestrator struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{cfg: cfg, deps: deps}
}

// HandleText runs the direct chat path: one model call, one reply. No store
// involvement.
func (o *Orchestrator) HandleText(ctx context.Context, replyToken, text string) *Run {
	run := newRun()

	reply, err := o.summarize(ctx, text, "")
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
		run.record(StageSummarize, StageFailure, "", wrapped)
		return o.abort(ctx, run, StageSummarize, wrapped, replyToken)
	}
	run.record(StageSummarize, StageSuccess, reply, nil)
	run.State = StateSummarized
	run.FinalText = reply

	return o.deliver(ctx, run, replyToken, reply)
}

// HandleImage runs the full content-understanding pipeline for an image
// event. The stored object is left to expire on schedule, never evicted
// here: in vision mode the signed URL may still be in flight to the model.
func (o *Orchestrator) HandleImage(ctx context.Context, replyToken, contentRef string) *Run {
	run := newRun()

	payload, err := o.fetch(ctx, contentRef)
	if err != nil {
		run.record(StageFetch, StageFailure, "", err)
		return o.abort(ctx, run, StageStore, fmt.Errorf("%w: %v", ErrFetchFailed, err), replyToken)
	}
	run.record(StageFetch, StageSuccess, "", nil)

	id, tok, err := o.deps.Store.Put(payload)
	if err != nil {
		run.record(StageStore, StageFailure, "", err)
		return o.abort(ctx, run, StageStore, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err), replyToken)
	}
	run.SourceObjectID = id
	run.record(StageStore, StageSuccess, id, nil)
	run.State = StateStored

	text := o.recognize(ctx, run, payload)

	var prompt, imageURL string
	if text == "" {
		// The normal case for photographs without legible text: route to
		// vision-mode summarization with the signed URL, never text mode
		// with an empty prompt.
		run.State = StateNoTextFound
		prompt = analysisTask
		imageURL = o.signedURL(id, tok)
	} else {
		run.State = StateTextExtracted
		text = o.translateIfForeign(ctx, run, text)
		prompt = analysisTask + "\n\n" + text
	}

	reply, err := o.summarize(ctx, prompt, imageURL)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
		run.record(StageSummarize, StageFailure, "", wrapped)
		return o.abort(ctx, run, StageSummarize, wrapped, replyToken)
	}
	run.record(StageSummarize, StageSuccess, reply, nil)
	run.State = StateSummarized
	run.FinalText = reply

	return o.deliver(ctx, run, replyToken, reply)
}

// recognize runs OCR and applies the degradation policy: a recognition
// error and whitespace-only output both mean "no text found".
func (o *Orchestrator) recognize(ctx context.Context, run *Run, payload []byte) string {
	callCtx, cancel := o.adapterCtx(ctx)
	text, err := o.deps.Recognizer.RecognizeText(callCtx, payload)
	cancel()
	if err != nil {
		run.record(StageOCR, StageFailure, "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err))
		o.degrade(StageOCR, err)
		return ""
	}

	text = strings.TrimSpace(text)
	run.record(StageOCR, StageSuccess, text, nil)
	return text
}

// translateIfForeign detects the language of text and translates it unless
// it is already in the target language. Both detection and translation
// failures are non-fatal; the raw text moves forward.
func (o *Orchestrator) translateIfForeign(ctx context.Context, run *Run, text string) string {
	callCtx, cancel := o.adapterCtx(ctx)
	lang, err := o.deps.Detector.DetectLanguage(callCtx, text)
	cancel()
	if err != nil {
		run.record(StageDetect, StageFailure, "", fmt.Errorf("%w: %v", ErrDetectionFailed, err))
		run.record(StageTranslate, StageSkipped, "", nil)
		run.State = StateSkippedTranslation
		o.degrade(StageDetect, err)
		return text
	}
	run.record(StageDetect, StageSuccess, lang, nil)
	run.State = StateLanguageDetected

	if o.isNative(lang) {
		run.record(StageTranslate, StageSkipped, "", nil)
		run.State = StateSkippedTranslation
		return text
	}

	callCtx, cancel = o.adapterCtx(ctx)
	translated, err := o.deps.Translator.Translate(callCtx, text, o.cfg.TargetLanguage)
	cancel()
	if err != nil {
		run.record(StageTranslate, StageFailure, "", fmt.Errorf("%w: %v", ErrTranslationFailed, err))
		run.State = StateSkippedTranslation
		o.degrade(StageTranslate, err)
		return text
	}
	run.record(StageTranslate, StageSuccess, translated, nil)
	run.State = StateTranslated
	return translated
}

func (o *Orchestrator) summarize(ctx context.Context, prompt, imageURL string) (string, error) {
	callCtx, cancel := o.adapterCtx(ctx)
	defer cancel()
	return o.deps.Summarizer.Summarize(callCtx, prompt, imageURL)
}

func (o *Orchestrator) deliver(ctx context.Context, run *Run, replyToken, text string) *Run {
	callCtx, cancel := o.adapterCtx(ctx)
	err := o.deps.Deliverer.DeliverReply(callCtx, replyToken, text)
	cancel()
	if err != nil {
		// Terminal, logged, no retry inside the core.
		wrapped := fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		run.record(StageDeliver, StageFailure, "", wrapped)
		run.State = StateFailed
		run.FailedStage = StageDeliver
		telemetry.StageFailures.WithLabelValues(string(StageDeliver)).Inc()
		slog.Error("reply delivery failed", slog.Any("err", err))
		return run
	}
	run.record(StageDeliver, StageSuccess, "", nil)
	run.State = StateDelivered
	return run
}

// abort terminates the run at stage and sends the fixed failure message.
// Delivery of the failure message is best-effort.
func (o *Orchestrator) abort(ctx context.Context, run *Run, stage Stage, err error, replyToken string) *Run {
	// Only an exhausted deadline is a timeout; a caller-cancelled run keeps
	// the stage it actually died in.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		stage = StageTimeout
	}
	run.State = StateFailed
	run.FailedStage = stage
	telemetry.StageFailures.WithLabelValues(string(stage)).Inc()
	slog.Error("pipeline run aborted",
		slog.String("stage", string(stage)),
		slog.String("object_id", run.SourceObjectID),
		slog.Any("err", err))

	callCtx, cancel := o.adapterCtx(context.WithoutCancel(ctx))
	defer cancel()
	if derr := o.deps.Deliverer.DeliverReply(callCtx, replyToken, FailureReply); derr != nil {
		slog.Error("failure reply delivery failed", slog.Any("err", derr))
	}
	return run
}

func (o *Orchestrator) fetch(ctx context.Context, ref string) ([]byte, error) {
	callCtx, cancel := o.adapterCtx(ctx)
	defer cancel()
	return o.deps.Fetcher.FetchMedia(callCtx, ref)
}

func (o *Orchestrator) adapterCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.AdapterTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.cfg.AdapterTimeout)
}

func (o *Orchestrator) isNative(code string) bool {
	for _, l := range o.cfg.NativeLanguages {
		if strings.EqualFold(l, code) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) signedURL(id, tok string) string {
	q := url.Values{"auth": {tok}}
	return o.cfg.PublicBaseURL + "/image/" + id + "?" + q.Encode()
}

func (o *Orchestrator) degrade(stage Stage, err error) {
	telemetry.StageFailures.WithLabelValues(string(stage)).Inc()
	slog.Warn("pipeline stage degraded",
		slog.String("stage", string(stage)),
		slog.Any("err", err))
}
