package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_CapsCompletionTokens(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-5","choices":[{"index":0,"message":{"role":"assistant","content":"I would escalate."},"finish_reason":"stop"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := newOpenAIClient(context.Background(), "sk-test", "gpt-5", srv.URL)
	require.NoError(t, err)

	reply, err := c.Generate(context.Background(), []*schema.Message{schema.UserMessage("What now?")})
	require.NoError(t, err)
	assert.Equal(t, "I would escalate.", reply)

	require.NotNil(t, body)
	assert.EqualValues(t, ChatMaxTokens, body["max_completion_tokens"])
	assert.NotContains(t, body, "max_tokens")
	assert.Equal(t, "gpt-5", body["model"])
}
