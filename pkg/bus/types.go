package bus

// EventKind discriminates decoded webhook events.
type EventKind string

const (
	EventText  EventKind = "text"
	EventImage EventKind = "image"
)

// InboundEvent is one decoded chat event handed to the pipeline workers.
type InboundEvent struct {
	Kind       EventKind `json:"kind"`
	ReplyToken string    `json:"reply_token"`
	SenderID   string    `json:"sender_id,omitempty"`
	Text       string    `json:"text,omitempty"`        // text events
	ContentRef string    `json:"content_ref,omitempty"` // image events: media-source reference
}

// OutboundReply is a finished reply waiting for delivery on the channel.
type OutboundReply struct {
	ReplyToken string `json:"reply_token"`
	Text       string `json:"text"`
}
