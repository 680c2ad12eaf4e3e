package testutil

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SSEEvent is one parsed Server-Sent Event.
type SSEEvent struct {
	Name string
	Data json.RawMessage
}

// PostSSE posts a JSON body to a streaming endpoint and collects every
// event until the server closes the stream. It fails when the response
// is not an event stream, returning the raw response for inspection.
func (c *TestClient) PostSSE(ctx context.Context, path string, body any) ([]SSEEvent, *Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-User-ID", c.UserID)

	// No client timeout; the stream ends when the server is done.
	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		return nil, &Response{
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			Body:       buf.Bytes(),
		}, nil
	}

	var events []SSEEvent
	var cur SSEEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case line == "":
			if cur.Name != "" || cur.Data != nil {
				events = append(events, cur)
				cur = SSEEvent{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return events, nil, fmt.Errorf("read stream: %w", err)
	}
	return events, nil, nil
}
