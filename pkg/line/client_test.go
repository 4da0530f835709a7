package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chia-ai0924/line-gpt-chatbot/pkg/bus"
)

const testSecret = "channel-secret"

func sign(t *testing.T, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(t *testing.T, body []byte, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, signature)
	return req
}

func TestVerifySignature(t *testing.T) {
	c := NewClient(testSecret, "token")
	body := []byte(`{"events":[]}`)

	if !c.VerifySignature(body, sign(t, body)) {
		t.Error("valid signature rejected")
	}
	if c.VerifySignature(body, sign(t, []byte("other body"))) {
		t.Error("signature for different body accepted")
	}
	if c.VerifySignature(body, "!!not-base64!!") {
		t.Error("malformed signature accepted")
	}
	if c.VerifySignature(body, "") {
		t.Error("empty signature accepted")
	}
}

func TestParseWebhook_TextAndImageEvents(t *testing.T) {
	c := NewClient(testSecret, "token")

	body := []byte(`{
		"events": [
			{"type":"message","replyToken":"rt-1","source":{"userId":"u1"},"message":{"type":"text","id":"1","text":"hello"}},
			{"type":"message","replyToken":"rt-2","source":{"userId":"u2"},"message":{"type":"image","id":"img-9"}},
			{"type":"message","replyToken":"rt-3","source":{"userId":"u3"},"message":{"type":"sticker","id":"3"}},
			{"type":"follow","replyToken":"rt-4"}
		]
	}`)

	events, err := c.ParseWebhook(webhookRequest(t, body, sign(t, body)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (sticker and follow dropped)", len(events))
	}
	if events[0].Kind != bus.EventText || events[0].Text != "hello" || events[0].ReplyToken != "rt-1" {
		t.Errorf("text event = %+v", events[0])
	}
	if events[1].Kind != bus.EventImage || events[1].ContentRef != "img-9" || events[1].ReplyToken != "rt-2" {
		t.Errorf("image event = %+v", events[1])
	}
}

func TestParseWebhook_BadSignature(t *testing.T) {
	c := NewClient(testSecret, "token")
	body := []byte(`{"events":[]}`)

	_, err := c.ParseWebhook(webhookRequest(t, body, "AAAA"))
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestFetchMedia(t *testing.T) {
	payload := []byte("JPEGDATA")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/bot/message/img-9/content" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("auth header = %q", got)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	c := NewClient(testSecret, "token", WithAPIBase(srv.URL, srv.URL))
	got, err := c.FetchMedia(context.Background(), "img-9")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestFetchMedia_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testSecret, "token", WithAPIBase(srv.URL, srv.URL))
	if _, err := c.FetchMedia(context.Background(), "gone"); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestDeliverReply(t *testing.T) {
	var got struct {
		ReplyToken string `json:"replyToken"`
		Messages   []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/bot/message/reply" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testSecret, "token", WithAPIBase(srv.URL, srv.URL))
	if err := c.DeliverReply(context.Background(), "rt-1", "你好"); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if got.ReplyToken != "rt-1" {
		t.Errorf("replyToken = %q", got.ReplyToken)
	}
	if len(got.Messages) != 1 || got.Messages[0].Type != "text" || got.Messages[0].Text != "你好" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestRunSender_DeliversBusReplies(t *testing.T) {
	delivered := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Text string `json:"text"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		delivered <- body.Messages[0].Text
	}))
	defer srv.Close()

	c := NewClient(testSecret, "token", WithAPIBase(srv.URL, srv.URL))
	mb := bus.NewMessageBus()
	defer mb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go c.RunSender(ctx, mb)

	if err := mb.PublishReply(ctx, bus.OutboundReply{ReplyToken: "rt", Text: "pong"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case text := <-delivered:
		if text != "pong" {
			t.Errorf("delivered %q, want pong", text)
		}
	case <-ctx.Done():
		t.Fatal("reply never delivered")
	}
}

func TestNewClient_BoundsRequests(t *testing.T) {
	c := NewClient(testSecret, "token")
	if c.httpClient.Timeout <= 0 {
		t.Error("default HTTP client has no timeout; a stalled API call would block the sender loop forever")
	}
}

func TestDeliverReply_StalledEndpointReturns(t *testing.T) {
	stall := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-stall:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(stall)

	c := NewClient(testSecret, "token", WithAPIBase(srv.URL, srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.DeliverReply(ctx, "rt-1", "hello")
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error from stalled endpoint")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DeliverReply did not return after its context expired")
	}
}
