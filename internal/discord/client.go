// Package discord talks to the bot gateway that owns the actual Discord
// connection. The dashboard never holds a bot token; every call is made with
// the caller's own bearer credential.
package discord

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

// Embed is the styled message body displayed at the top of a forum thread.
type Embed struct {
	Author    EmbedAuthor  `json:"author"`
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Fields    []EmbedField `json:"fields"`
	Footer    EmbedFooter  `json:"footer"`
	Timestamp string       `json:"timestamp"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// Tag is one forum tag definition as reported by the bot gateway.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

// Client is a thin HTTP client for the bot gateway. Methods map one-to-one onto
// gateway routes and do no retrying; best-effort policy lives in the
// coordinator.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateThread posts a new forum thread and returns its id.
func (c *Client) CreateThread(ctx context.Context, token, channelID, title string, embed Embed) (string, error) {
	body := map[string]any{
		"channelId": channelID,
		"title":     title,
		"embed":     embed,
	}
	var out struct {
		ThreadID string `json:"threadId"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/api/send-forum-message", body, &out); err != nil {
		return "", err
	}
	if out.ThreadID == "" {
		return "", fmt.Errorf("bot gateway returned no thread id")
	}
	return out.ThreadID, nil
}

// UpdateThreadMessage replaces the thread's first message embed and/or its tag
// set. Nil fields are left untouched by the gateway.
func (c *Client) UpdateThreadMessage(ctx context.Context, token, threadID string, embed *Embed, tagIDs []string) error {
	body := map[string]any{}
	if embed != nil {
		body["embed"] = embed
	}
	if tagIDs != nil {
		body["appliedTags"] = tagIDs
	}
	return c.do(ctx, token, http.MethodPatch, "/api/update-thread-message/"+threadID, body, nil)
}

// DeleteThread removes the thread.
func (c *Client) DeleteThread(ctx context.Context, token, threadID string) error {
	return c.do(ctx, token, http.MethodDelete, "/api/delete-thread/"+threadID, nil, nil)
}

// ListThreadTags returns the tag ids currently applied to a thread.
func (c *Client) ListThreadTags(ctx context.Context, token, threadID string) ([]string, error) {
	var out struct {
		AppliedTags []string `json:"appliedTags"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/api/threads/"+threadID+"/tags", nil, &out); err != nil {
		return nil, err
	}
	return out.AppliedTags, nil
}

// ListChannelTags returns the tag definitions available on a forum channel.
func (c *Client) ListChannelTags(ctx context.Context, token, channelID string) ([]Tag, error) {
	var out struct {
		AvailableTags []Tag `json:"availableTags"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/api/channels/"+channelID, nil, &out); err != nil {
		return nil, err
	}
	return out.AvailableTags, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bot gateway %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
