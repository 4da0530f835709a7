// Package translate provides language detection and translation via the
// Google Translate web endpoint.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://translate.googleapis.com"

type Client struct {
	rest *resty.Client
}

func NewClient() *Client {
	return &Client{
		rest: resty.New().SetBaseURL(defaultBaseURL).SetTimeout(15 * time.Second),
	}
}

// SetBaseURL points the client at a different endpoint; used by tests.
func (c *Client) SetBaseURL(u string) { c.rest.SetBaseURL(u) }

// query performs one translate_a/single call and returns the decoded
// response payload. The endpoint answers with a positional JSON array:
// segments at index 0, the detected source language at index 2.
func (c *Client) query(ctx context.Context, text, targetLang string) ([]any, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     "auto",
			"tl":     targetLang,
			"dt":     "t",
			"q":      text,
		}).
		Get("/translate_a/single")
	if err != nil {
		return nil, fmt.Errorf("translate request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("translate request: status %d", resp.StatusCode())
	}

	var payload []any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("translate response: %w", err)
	}
	return payload, nil
}

// DetectLanguage returns the language code the endpoint detected for text.
// The target language does not influence detection, so any valid code works
// for the probe request.
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	payload, err := c.query(ctx, text, "en")
	if err != nil {
		return "", err
	}
	if len(payload) < 3 {
		return "", fmt.Errorf("translate response: missing language field")
	}
	lang, ok := payload[2].(string)
	if !ok || lang == "" {
		return "", fmt.Errorf("translate response: malformed language field")
	}
	return lang, nil
}

// Translate renders text in targetLang.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	payload, err := c.query(ctx, text, targetLang)
	if err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("translate response: empty payload")
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("translate response: malformed segments")
	}

	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("translate response: no translated text")
	}
	return out, nil
}
