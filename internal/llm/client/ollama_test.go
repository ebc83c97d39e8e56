package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOllamaBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                           DefaultOllamaBaseURL,
		"http://localhost:11434/v1":  "http://localhost:11434",
		"http://localhost:11434/v1/": "http://localhost:11434",
		"http://gpu-box:11434/":      "http://gpu-box:11434",
		" http://gpu-box:11434 ":     "http://gpu-box:11434",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeOllamaBaseURL(in), "input %q", in)
	}
}

func newFakeOllama(t *testing.T, handle func(req api.ChatRequest, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handle(req, w)
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.ListResponse{Models: []api.ListModelResponse{
			{Name: "mistral:latest"},
			{Name: "llama3.1:latest"},
			{Name: "llama3.1:latest"},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeChunks(w http.ResponseWriter, chunks ...string) {
	enc := json.NewEncoder(w)
	for _, c := range chunks {
		_ = enc.Encode(api.ChatResponse{Message: api.Message{Role: "assistant", Content: c}})
	}
	_ = enc.Encode(api.ChatResponse{Done: true})
}

func TestOllamaClient_StreamCollectsChunks(t *testing.T) {
	var got api.ChatRequest
	srv := newFakeOllama(t, func(req api.ChatRequest, w http.ResponseWriter) {
		got = req
		writeChunks(w, "Recall ", "the fleet.")
	})

	c, err := NewOllamaClient(srv.URL+"/v1", "llama3.1", nil)
	require.NoError(t, err)

	var chunks []string
	full, err := c.Stream(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("hi"),
	}, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)

	assert.Equal(t, "Recall the fleet.", full)
	assert.Equal(t, []string{"Recall ", "the fleet."}, chunks)
	assert.Equal(t, "llama3.1", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.NotNil(t, got.Stream)
	assert.True(t, *got.Stream)
}

func TestOllamaClient_ExtractDecisionRequestsJSON(t *testing.T) {
	var got api.ChatRequest
	srv := newFakeOllama(t, func(req api.ChatRequest, w http.ResponseWriter) {
		got = req
		writeChunks(w, `Sure! {"decision":"Escalate","reasoning":"Policy conflict.","ethicalFramework":"Deontology","tradeoffs":["speed"]}`)
	})

	c, err := NewOllamaClient(srv.URL, "llama3.1", nil)
	require.NoError(t, err)

	decision, err := c.ExtractDecision(context.Background(), "I will escalate.")
	require.NoError(t, err)
	assert.Equal(t, "Escalate", decision.Decision)
	assert.Equal(t, []string{"speed"}, decision.Tradeoffs)
	assert.JSONEq(t, `"json"`, string(got.Format))
	assert.Contains(t, got.Messages[1].Content, "I will escalate.")
}

func TestListOllamaModels_DedupesAndSorts(t *testing.T) {
	srv := newFakeOllama(t, func(api.ChatRequest, http.ResponseWriter) {})

	names, err := ListOllamaModels(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:latest", "mistral:latest"}, names)
}

func TestNewOllamaClient_RejectsBadURL(t *testing.T) {
	_, err := NewOllamaClient("not a url", "llama3.1", nil)
	assert.Error(t, err)
}
