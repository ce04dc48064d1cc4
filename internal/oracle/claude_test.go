package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
)

func TestClaudeBackend(t *testing.T) {
	t.Run("text blocks are joined", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"test-model",
				"content":[{"type":"text","text":"白酒板块"},{"type":"text","text":"震荡整理。"}],
				"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
		}))
		defer srv.Close()

		b := NewClaudeBackend("sk-test", "test-model", 256, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
		out := NewClient(b, defaultClassifier(t)).Invoke(context.Background(), "p", 5*time.Second)
		assert.Equal(t, KindSuccess, out.Kind)
		assert.Equal(t, "白酒板块震荡整理。", out.Text)
	})

	t.Run("server error is failed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
		}))
		defer srv.Close()

		b := NewClaudeBackend("sk-test", "test-model", 256, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
		out := NewClient(b, defaultClassifier(t)).Invoke(context.Background(), "p", 5*time.Second)
		assert.Equal(t, KindFailed, out.Kind)
	})

	t.Run("unreachable host is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		b := NewClaudeBackend("sk-test", "test-model", 256, option.WithBaseURL(url), option.WithMaxRetries(0))
		out := NewClient(b, defaultClassifier(t)).Invoke(context.Background(), "p", 5*time.Second)
		assert.Equal(t, KindUnavailable, out.Kind)
	})
}
