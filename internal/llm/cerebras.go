// Package llm generates streamed assistant replies from the conversation
// history via the Cerebras chat-completions API.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultEndpoint = "https://api.cerebras.ai/v1/chat/completions"

type CerebrasClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	Endpoint   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatDelta struct {
	Content string `json:"content"`
}

type streamChoice struct {
	Index        int       `json:"index"`
	FinishReason string    `json:"finish_reason"`
	Delta        chatDelta `json:"delta"`
}

type streamChunk struct {
	ID      string         `json:"id"`
	Choices []streamChoice `json:"choices"`
}

func NewCerebrasClient(apiKey, model string) *CerebrasClient {
	// no client-level timeout: a reply streams for as long as it streams,
	// cancellation comes from the request context
	return &CerebrasClient{
		HTTPClient: &http.Client{},
		APIKey:     apiKey,
		Model:      model,
		Endpoint:   defaultEndpoint,
	}
}

// Stream sends the system instruction plus full history and returns a channel
// of incremental text deltas. Both channels are closed when the stream ends;
// at most one error is delivered. Canceling ctx abandons the stream.
func (c *CerebrasClient) Stream(ctx context.Context, system string, history []Turn) (<-chan string, <-chan error) {
	deltas := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errCh)

		if c.APIKey == "" {
			errCh <- fmt.Errorf("cerebras: api key missing")
			return
		}

		messages := make([]chatMessage, 0, len(history)+1)
		messages = append(messages, chatMessage{Role: "system", Content: system})
		for _, turn := range history {
			messages = append(messages, chatMessage{Role: string(turn.Role), Content: turn.Text})
		}

		reqBody, _ := json.Marshal(chatCompletionsRequest{Model: c.Model, Messages: messages, Stream: true})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
		if err != nil {
			errCh <- err
			return
		}
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			errCh <- fmt.Errorf("cerebras: request failed: %w", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(resp.Body)
			errCh <- fmt.Errorf("cerebras error: status=%d body=%s", resp.StatusCode, string(b))
			return
		}

		if err := c.readEvents(ctx, resp.Body, deltas); err != nil {
			errCh <- err
		}
	}()

	return deltas, errCh
}

// readEvents scans the SSE body line by line and forwards delta content.
func (c *CerebrasClient) readEvents(ctx context.Context, body io.Reader, deltas chan<- string) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// skip malformed keep-alive lines rather than kill the reply
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			select {
			case deltas <- choice.Delta.Content:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		// context cancellation surfaces as a read error on the body
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("cerebras: read stream: %w", err)
	}
	return nil
}
