package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/protocol"
)

// Client talks to the intake server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// errorResponse is the error body returned by the server.
type errorResponse struct {
	Error string `json:"error"`
}

// OpenSession calls POST /v1/sessions.
func (c *Client) OpenSession(ctx context.Context) (*domain.OpenSessionResponse, error) {
	var out domain.OpenSessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat calls POST /v1/sessions/:session_id/chat.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (*domain.ChatResponse, error) {
	var out domain.ChatResponse
	body := domain.ChatRequest{Message: message}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(sessionID)+"/chat", body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession calls GET /v1/sessions/:session_id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*domain.SessionView, error) {
	var out domain.SessionView
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(sessionID), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in interface{}, want int, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		respBody, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Subscribe opens the push channel of a session and calls fn for each event
// until ctx is cancelled or the server closes the connection.
func (c *Client) Subscribe(ctx context.Context, sessionID string, fn func(protocol.RawEvent)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/sessions/" + url.PathEscape(sessionID) + "/events"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		var ev protocol.RawEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fn(ev)
	}
}
