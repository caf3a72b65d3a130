package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts the remote inference service used for resume review.
type Client interface {
	Converse(ctx context.Context, input ConverseInput) (Reply, error)
}

// ConverseInput captures everything sent with one review request.
type ConverseInput struct {
	ResumeText   string
	ImagePNG     []byte
	Instructions string
}

// Reply is the opaque provider response. Only the textual payload is
// contractually interesting; everything else is untrusted input.
type Reply struct {
	Message Message `json:"message"`
}

// Message carries the reply content in whatever shape the provider chose.
type Message struct {
	Content json.RawMessage `json:"content"`
}

// Text extracts the reply's textual payload. Accepted shapes are a flat
// string, or a list whose first element carries a "text" field. Any other
// shape reports false and is treated as a contract violation by callers.
func (r Reply) Text() (string, bool) {
	if len(r.Message.Content) == 0 {
		return "", false
	}

	var flat string
	if err := json.Unmarshal(r.Message.Content, &flat); err == nil {
		return flat, true
	}

	var parts []struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(r.Message.Content, &parts); err == nil {
		if len(parts) > 0 && parts[0].Text != nil {
			return *parts[0].Text, true
		}
	}
	return "", false
}

// FlatReply wraps plain text in the flat reply shape. Providers that hand
// back a single string use this; tests do too.
func FlatReply(text string) Reply {
	encoded, err := json.Marshal(text)
	if err != nil {
		encoded = []byte(`""`)
	}
	return Reply{Message: Message{Content: encoded}}
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is the stub used when no provider is wired.
type PlaceholderClient struct{}

// Converse returns ErrNotConfigured.
func (PlaceholderClient) Converse(ctx context.Context, input ConverseInput) (Reply, error) {
	_ = ctx
	_ = input
	return Reply{}, ErrNotConfigured
}
