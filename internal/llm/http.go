package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MissingReply is returned when the service answers successfully but the
// body carries no reply field.
const MissingReply = "Lo siento, no pude generar una respuesta en este momento."

// HTTPClient talks to the text-generation service over its JSON contract:
// POST {baseURL}/llm/chat with a Request body, answered by {"reply": "..."}.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient constructs a client for the service at baseURL.  The timeout
// bounds the whole request, including reading the body.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type chatResponse struct {
	Reply *string `json:"reply"`
}

// Chat posts the request and returns the reply text.  Non-2xx statuses and
// undecodable bodies are errors.
func (c *HTTPClient) Chat(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/llm/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call model service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("model service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Reply == nil {
		return MissingReply, nil
	}
	return *out.Reply, nil
}
