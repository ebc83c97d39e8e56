package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/ollama/ollama/api"

	"alignstudio/internal/models"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

// NormalizeOllamaBaseURL accepts the OpenAI-compatible form (".../v1") and
// returns the native API root expected by the ollama client.
func NormalizeOllamaBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return DefaultOllamaBaseURL
	}
	base = strings.TrimSuffix(base, "/")
	base = strings.TrimSuffix(base, "/v1")
	return strings.TrimSuffix(base, "/")
}

type ollamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient builds an adapter for a local ollama daemon.
func NewOllamaClient(baseURL, modelName string, httpClient *http.Client) (ChatClient, error) {
	apiClient, err := newOllamaAPI(baseURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &ollamaClient{client: apiClient, model: modelName}, nil
}

func newOllamaAPI(baseURL string, httpClient *http.Client) (*api.Client, error) {
	normalized := NormalizeOllamaBaseURL(baseURL)
	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid ollama base url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return api.NewClient(parsed, httpClient), nil
}

func (c *ollamaClient) Provider() string { return models.ProviderOllama }
func (c *ollamaClient) Model() string    { return c.model }

func toOllamaMessages(msgs []*schema.Message) []api.Message {
	out := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, api.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (c *ollamaClient) chat(ctx context.Context, req *api.ChatRequest, onChunk func(string)) (string, error) {
	var full strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		full.WriteString(resp.Message.Content)
		if onChunk != nil {
			onChunk(resp.Message.Content)
		}
		return nil
	})
	return full.String(), err
}

func (c *ollamaClient) Generate(ctx context.Context, msgs []*schema.Message) (string, error) {
	stream := false
	return c.chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: toOllamaMessages(msgs),
		Stream:   &stream,
		Options:  map[string]interface{}{"num_predict": ChatMaxTokens},
	}, nil)
}

func (c *ollamaClient) Stream(ctx context.Context, msgs []*schema.Message, onChunk func(string)) (string, error) {
	stream := true
	return c.chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: toOllamaMessages(msgs),
		Stream:   &stream,
		Options:  map[string]interface{}{"num_predict": ChatMaxTokens},
	}, onChunk)
}

// ExtractDecision asks for JSON output and pulls the first object from the
// reply, since local models do not honour schemas reliably.
func (c *ollamaClient) ExtractDecision(ctx context.Context, response string) (*models.StructuredDecision, error) {
	system, user, err := JSONExtractionPrompts(ctx, response)
	if err != nil {
		return nil, err
	}
	stream := false
	content, err := c.chat(ctx, &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  &stream,
		Format:  json.RawMessage(`"json"`),
		Options: map[string]interface{}{"num_predict": ExtractionMaxTokens},
	}, nil)
	if err != nil {
		return nil, err
	}
	return ParseDecision(content)
}

// ListOllamaModels queries the daemon for locally installed models.
func ListOllamaModels(ctx context.Context, baseURL string) ([]string, error) {
	client, err := newOllamaAPI(baseURL, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	resp, err := client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ollama models: %w", err)
	}
	seen := map[string]bool{}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = strings.TrimSpace(m.Model)
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
