// Package ocr wraps the OCR.Space parse API behind the pipeline's
// TextRecognizer contract.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.ocr.space"

type Client struct {
	rest     *resty.Client
	apiKey   string
	language string
}

// NewClient creates an OCR.Space client. language is an OCR.Space language
// hint such as "cht" or "eng".
func NewClient(apiKey, language string) *Client {
	return &Client{
		rest:     resty.New().SetBaseURL(defaultBaseURL).SetTimeout(30 * time.Second),
		apiKey:   apiKey,
		language: language,
	}
}

// SetBaseURL points the client at a different endpoint; used by tests.
func (c *Client) SetBaseURL(u string) { c.rest.SetBaseURL(u) }

type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	OCRExitCode           int  `json:"OCRExitCode"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
}

// RecognizeText uploads image bytes and returns the recognized text, trimmed.
// An image with no legible text yields an empty string, not an error.
func (c *Client) RecognizeText(ctx context.Context, image []byte) (string, error) {
	var out parseResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("apikey", c.apiKey).
		SetFileReader("file", "image.jpg", bytes.NewReader(image)).
		SetFormData(map[string]string{
			"language":          c.language,
			"isOverlayRequired": "false",
		}).
		SetResult(&out).
		Post("/parse/image")
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ocr request: status %d", resp.StatusCode())
	}
	if out.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr processing failed: exit code %d", out.OCRExitCode)
	}
	if len(out.ParsedResults) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.ParsedResults[0].ParsedText), nil
}
