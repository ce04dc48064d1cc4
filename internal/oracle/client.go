package oracle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// DefaultTimeout bounds an invocation when the caller passes zero.
const DefaultTimeout = 180 * time.Second

// Backend performs one raw text-in/text-out request. Implementations return
// ErrUnavailable (wrapped) when the oracle cannot be reached at all.
type Backend interface {
	Call(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Client turns backend calls into classified outcomes. It never retries.
type Client struct {
	backend    Backend
	classifier Classifier
}

// NewClient wires a backend with a refusal classifier.
func NewClient(backend Backend, classifier Classifier) *Client {
	return &Client{backend: backend, classifier: classifier}
}

// Name returns the backend name.
func (c *Client) Name() string { return c.backend.Name() }

// Invoke sends prompt once and classifies the result.
func (c *Client) Invoke(ctx context.Context, prompt string, timeout time.Duration) Outcome {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := c.backend.Call(ctx, prompt)
	out := c.classify(ctx, text, err)

	log.Info().
		Str("backend", c.backend.Name()).
		Str("outcome", string(out.Kind)).
		Int("prompt_len", len(prompt)).
		Int("reply_len", len(out.Text)).
		Dur("elapsed", time.Since(start)).
		Msg("oracle invoked")
	return out
}

func (c *Client) classify(ctx context.Context, text string, err error) Outcome {
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Outcome{Kind: KindTimedOut, Reason: err.Error()}
	case errors.Is(err, ErrUnavailable):
		return Outcome{Kind: KindUnavailable, Reason: err.Error()}
	default:
		return Outcome{Kind: KindFailed, Reason: err.Error()}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{Kind: KindFailed, Reason: ErrEmptyResponse.Error()}
	}
	if c.classifier != nil && c.classifier.Classify(text) == Refused {
		return Outcome{Kind: KindRefused, Text: text, Reason: "reply matched refusal pattern"}
	}
	return Outcome{Kind: KindSuccess, Text: text}
}
