package slackhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client is a minimal client for posting messages to a Slack incoming webhook.
type Client struct {
	httpClient *http.Client
	webhookURL string
	debug      bool
}

// NewClient constructs a new Slack webhook client with sane defaults.
func NewClient(webhookURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		webhookURL: webhookURL,
		debug:      os.Getenv("ENV") == "development",
	}
}

// Message is the webhook payload. Blocks are optional; Text is used as the
// notification fallback when blocks are present.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Block is a Block Kit section.
type Block struct {
	Type string     `json:"type"`
	Text *BlockText `json:"text,omitempty"`
}

// BlockText is the text object inside a block.
type BlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PostText sends a plain-text message.
func (c *Client) PostText(ctx context.Context, text string) error {
	return c.Post(ctx, &Message{Text: text})
}

// PostAlert sends a titled message rendered as a header plus markdown body.
func (c *Client) PostAlert(ctx context.Context, title, body string) error {
	msg := &Message{
		Text: title,
		Blocks: []Block{
			{Type: "header", Text: &BlockText{Type: "plain_text", Text: title}},
			{Type: "section", Text: &BlockText{Type: "mrkdwn", Text: body}},
		},
	}
	return c.Post(ctx, msg)
}

// Post sends a message to the configured webhook.
func (c *Client) Post(ctx context.Context, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if c.debug {
		log.Debug().
			RawJSON("request", payload).
			Msg("[SLACK] Outgoing webhook message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Slack returns 200 with body "ok" on success, otherwise a short error
	// string such as "invalid_payload" or "no_service".
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
