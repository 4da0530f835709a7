// Package line contains a minimal LINE Messaging API client: webhook
// signature verification and event decoding on the inbound side, message
// content download and reply delivery on the outbound side.
package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chia-ai0924/line-gpt-chatbot/pkg/bus"
)

const (
	defaultAPIBase  = "https://api.line.me"
	defaultDataBase = "https://api-data.line.me"

	// requestTimeout bounds every call against the LINE API. The sender
	// loop serializes deliveries, so an unbounded call would stall every
	// reply queued behind it.
	requestTimeout = 30 * time.Second

	// SignatureHeader carries the webhook body HMAC.
	SignatureHeader = "X-Line-Signature"
)

// Client talks to the LINE Messaging API with a long-lived channel token.
type Client struct {
	channelSecret string
	channelToken  string
	apiBase       string
	dataBase      string
	httpClient    *http.Client
}

// Option adjusts a Client; used by tests to point at mock servers.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithAPIBase(api, data string) Option {
	return func(c *Client) {
		c.apiBase = api
		c.dataBase = data
	}
}

func NewClient(channelSecret, channelToken string, opts ...Option) *Client {
	c := &Client{
		channelSecret: channelSecret,
		channelToken:  channelToken,
		apiBase:       defaultAPIBase,
		dataBase:      defaultDataBase,
		httpClient:    &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VerifySignature checks the webhook body HMAC-SHA256 against the channel
// secret. The signature header carries the base64-encoded digest.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}

// webhook wire format, trimmed to the fields the pipeline consumes.
type callbackBody struct {
	Events []struct {
		Type       string `json:"type"`
		ReplyToken string `json:"replyToken"`
		Source     struct {
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			Type string `json:"type"`
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

// ParseWebhook verifies the signature and decodes the callback body into
// inbound events. Message kinds the pipeline does not understand are
// dropped. Returns ErrBadSignature when the HMAC does not match.
func (c *Client) ParseWebhook(r *http.Request) ([]bus.InboundEvent, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading webhook body: %w", err)
	}
	if !c.VerifySignature(body, r.Header.Get(SignatureHeader)) {
		return nil, ErrBadSignature
	}

	var cb callbackBody
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("decoding webhook body: %w", err)
	}

	events := make([]bus.InboundEvent, 0, len(cb.Events))
	for _, e := range cb.Events {
		if e.Type != "message" {
			continue
		}
		switch e.Message.Type {
		case "text":
			events = append(events, bus.InboundEvent{
				Kind:       bus.EventText,
				ReplyToken: e.ReplyToken,
				SenderID:   e.Source.UserID,
				Text:       e.Message.Text,
			})
		case "image":
			events = append(events, bus.InboundEvent{
				Kind:       bus.EventImage,
				ReplyToken: e.ReplyToken,
				SenderID:   e.Source.UserID,
				ContentRef: e.Message.ID,
			})
		default:
			slog.Debug("ignoring unsupported message type", slog.String("type", e.Message.Type))
		}
	}
	return events, nil
}

// FetchMedia downloads the binary content of a message from the LINE data
// endpoint. Satisfies the pipeline's MediaFetcher contract.
func (c *Client) FetchMedia(ctx context.Context, messageID string) ([]byte, error) {
	url := fmt.Sprintf("%s/v2/bot/message/%s/content", c.dataBase, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching message content: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching message content: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// DeliverReply sends one text message against a reply token. Satisfies the
// pipeline's ReplyDeliverer contract.
func (c *Client) DeliverReply(ctx context.Context, replyToken, text string) error {
	payload, err := json.Marshal(map[string]any{
		"replyToken": replyToken,
		"messages": []map[string]string{
			{"type": "text", "text": text},
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/bot/message/reply", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.channelToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sending reply: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// RunSender consumes outbound replies from the bus and delivers them until
// ctx is cancelled or the bus closes.
func (c *Client) RunSender(ctx context.Context, mb *bus.MessageBus) {
	for {
		reply, ok := mb.ConsumeReply(ctx)
		if !ok {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		err := c.DeliverReply(callCtx, reply.ReplyToken, reply.Text)
		cancel()
		if err != nil {
			slog.Error("delivering reply", slog.Any("err", err))
		}
	}
}
