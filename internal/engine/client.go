package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gethired/jobagents/internal/domain"
	"github.com/gethired/jobagents/internal/stream"
)

// SSEEvent is one parsed server-sent event.
type SSEEvent struct {
	Event string
	Data  string
}

// DeltaEventData is the payload of a delta event.
type DeltaEventData struct {
	Text string `json:"text"`
}

// DoneEventData is the payload of a done event.
type DoneEventData struct {
	FinalMessage string `json:"final_message"`
}

// ErrorEventData is the payload of an error event.
type ErrorEventData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client executes agent steps against a remote engine over SSE.
type Client struct {
	baseURL      string
	toolCallback string
	httpClient   *http.Client
}

// NewClient creates an engine client. toolCallback is the service's own
// tool-invocation endpoint, attached to every request so the engine routes
// tool calls back through the policy gate. The timeout bounds the whole
// streamed execution and should exceed the task deadline.
func NewClient(baseURL, toolCallback string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		toolCallback: toolCallback,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Execute posts the request to the engine's /execute endpoint and translates
// the SSE stream into step events. Closing the returned stream aborts the
// underlying HTTP stream.
func (c *Client) Execute(ctx context.Context, req *Request) (*stream.Stream, error) {
	r := *req
	if r.ToolCallbackURL == "" {
		r.ToolCallbackURL = c.toolCallback
	}
	body, err := json.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	s := stream.Produce(8, func(sctx context.Context, s *stream.Stream) error {
		// Cancel the request when either the caller's context or the
		// stream itself is done.
		rctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-sctx.Done():
				cancel()
			case <-rctx.Done():
			}
		}()

		httpReq, err := http.NewRequestWithContext(rctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("X-Session-ID", req.SessionID)
		httpReq.Header.Set("X-Agent", req.Agent)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("failed to execute agent %s: %w", req.Agent, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(respBody))
		}

		return parseSSE(resp.Body, func(event SSEEvent) error {
			return c.forward(rctx, s, req.Agent, event)
		})
	})
	return s, nil
}

func (c *Client) forward(ctx context.Context, s *stream.Stream, agent string, event SSEEvent) error {
	now := time.Now().UnixMilli()

	switch event.Event {
	case "delta":
		var delta DeltaEventData
		if err := json.Unmarshal([]byte(event.Data), &delta); err != nil {
			return fmt.Errorf("failed to parse delta event: %w", err)
		}
		content := domain.ModelText(delta.Text)
		return s.Emit(ctx, stream.Event{Author: agent, Content: &content, Ts: now})

	case "state":
		var delta map[string]interface{}
		if err := json.Unmarshal([]byte(event.Data), &delta); err != nil {
			return fmt.Errorf("failed to parse state event: %w", err)
		}
		return s.Emit(ctx, stream.Event{Author: agent, StateDelta: delta, Ts: now})

	case "done":
		var done DoneEventData
		if err := json.Unmarshal([]byte(event.Data), &done); err != nil {
			return fmt.Errorf("failed to parse done event: %w", err)
		}
		content := domain.ModelText(done.FinalMessage)
		return s.Emit(ctx, stream.Event{Author: agent, Content: &content, Final: true, Ts: now})

	case "error":
		var errEvt ErrorEventData
		if err := json.Unmarshal([]byte(event.Data), &errEvt); err != nil {
			return fmt.Errorf("failed to parse error event: %w", err)
		}
		return domain.Errorf(domain.ErrorKindPipeline, "agent %s failed: %s: %s", agent, errEvt.Code, errEvt.Message)
	}
	// Ignore unknown event types.
	return nil
}

// parseSSE parses an SSE stream and calls the handler for each event.
func parseSSE(reader io.Reader, handler func(SSEEvent) error) error {
	scanner := bufio.NewScanner(reader)
	var event SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if event.Event != "" || event.Data != "" {
				if err := handler(event); err != nil {
					return err
				}
				event = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if event.Data != "" {
				event.Data += "\n" + data
			} else {
				event.Data = data
			}
		}
		// Ignore comments (lines starting with :) and other fields
	}

	// Handle any remaining event
	if event.Event != "" || event.Data != "" {
		if err := handler(event); err != nil {
			return err
		}
	}

	return scanner.Err()
}
