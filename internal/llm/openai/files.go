package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"hilicita-backend/internal/llm"
)

const (
	filesURL     = "https://api.openai.com/v1/files"
	responsesURL = "https://api.openai.com/v1/responses"

	uploadPurpose = "user_data"
)

// Upload sends the local file to the Files API and returns the file id used
// as input_file reference by Respond.
func (c *Client) Upload(ctx context.Context, path, fileName string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	if strings.TrimSpace(fileName) == "" {
		fileName = filepath.Base(path)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("purpose", uploadPurpose); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	body, err := c.post(ctx, filesURL, writer.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	var parsed struct {
		ID    string `json:"id"`
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai file upload parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai file upload error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("openai file upload missing id")
	}
	return parsed.ID, nil
}

type responsesRequest struct {
	Model        string          `json:"model"`
	Instructions string          `json:"instructions"`
	Input        []responseInput `json:"input"`
	Text         responsesText   `json:"text"`
}

type responseInput struct {
	Role    string            `json:"role"`
	Content []responseContent `json:"content"`
}

type responseContent struct {
	Type   string `json:"type"`
	FileID string `json:"file_id,omitempty"`
	Text   string `json:"text,omitempty"`
}

type responsesText struct {
	Format responsesFormat `json:"format"`
}

type responsesFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Respond answers the instruction over an uploaded file via the Responses
// API with a strict structured-output constraint.
func (c *Client) Respond(ctx context.Context, input llm.FileInput) (json.RawMessage, error) {
	reqBody := responsesRequest{
		Model:        c.model,
		Instructions: input.System,
		Input: []responseInput{{
			Role: "user",
			Content: []responseContent{
				{Type: "input_file", FileID: input.FileRef},
				{Type: "input_text", Text: input.Instruction},
			},
		}},
		Text: responsesText{
			Format: responsesFormat{
				Type:   "json_schema",
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

	body, err := c.post(ctx, responsesURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var parsed responsesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai responses parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai responses error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}

	raw := strings.TrimSpace(parsed.OutputText)
	if raw == "" {
		for _, item := range parsed.Output {
			if item.Type != "message" {
				continue
			}
			for _, content := range item.Content {
				if content.Type == "output_text" && strings.TrimSpace(content.Text) != "" {
					raw = strings.TrimSpace(content.Text)
					break
				}
			}
			if raw != "" {
				break
			}
		}
	}
	if raw == "" {
		return nil, fmt.Errorf("openai responses missing output text")
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("invalid JSON from OpenAI")
	}
	return json.RawMessage(raw), nil
}

var _ llm.FileClient = (*Client)(nil)
