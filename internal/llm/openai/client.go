package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"hilicita-backend/internal/llm"
)

const (
	chatURL = "https://api.openai.com/v1/chat/completions"

	retryBaseDelay = 300 * time.Millisecond
)

// Client implements llm.ChatClient using OpenAI Chat Completions with strict
// json_schema structured outputs.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI chat client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: requestTimeout()},
	}, nil
}

func requestTimeout() time.Duration {
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return timeout
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *usage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatStructured performs one structured chat completion, retrying once on a
// transient provider error with a short delay.
func (c *Client) ChatStructured(ctx context.Context, input llm.ChatInput) (json.RawMessage, error) {
	raw, err := c.chatOnce(ctx, input)
	if err == nil || !isTransient(err) {
		return raw, err
	}

	log.Printf("llm retry schema=%s error=%v", input.SchemaName, err)
	select {
	case <-time.After(retryBaseDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.chatOnce(ctx, input)
}

func (c *Client) chatOnce(ctx context.Context, input llm.ChatInput) (json.RawMessage, error) {
	temp := float32(0)
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: input.System},
			{Role: "user", Content: input.User},
		},
		Temperature: &temp,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   input.SchemaName,
				Strict: true,
				Schema: input.Schema,
			},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, chatURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("openai response empty content")
	}
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("invalid JSON from OpenAI")
	}
	logUsage(c.model, input.SchemaName, parsed.Usage)
	return json.RawMessage(content), nil
}

func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func logUsage(model, schemaName string, u *usage) {
	if u == nil {
		log.Printf("llm response model=%s schema=%s", model, schemaName)
		return
	}
	log.Printf("llm response model=%s schema=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, schemaName, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}

var _ llm.ChatClient = (*Client)(nil)
