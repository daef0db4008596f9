// Package slack posts work reports to a Slack channel through the
// chat.postMessage Web API using Block Kit payloads.
package slack

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

const defaultBaseURL = "https://slack.com/api"

// TextObject is a Block Kit text element.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Block is a Block Kit layout block. Only the fields used by the report
// layouts are modeled.
type Block struct {
	Type   string       `json:"type"`
	Text   *TextObject  `json:"text,omitempty"`
	Fields []TextObject `json:"fields,omitempty"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	channel    string
}

func New(token, channel string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		channel:    channel,
	}
}

type postMessageRequest struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// PostMessage sends one message to the configured channel. The text argument
// is the notification fallback shown where blocks cannot render.
func (c *Client) PostMessage(ctx context.Context, text string, blocks []Block) error {
	payload, err := json.Marshal(postMessageRequest{
		Channel: c.channel,
		Text:    text,
		Blocks:  blocks,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack API returned %s: %s", resp.Status, strings.ReplaceAll(string(body), "\n", " "))
	}

	var result postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack API error: %s", result.Error)
	}

	return nil
}
