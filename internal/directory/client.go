// Package directory is the REST client of the Room Directory service.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/api/response"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/lib/validate"
)

// StatusError is a non-2xx reply. Callers show a generic failure and do not branch on Code.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status: %d", e.Code)
	}
	return fmt.Sprintf("request failed with status: %d: %s", e.Code, e.Message)
}

type Client struct {
	BaseURL  string
	Token    string
	TenantID string
	http     *http.Client
	log      *slog.Logger
}

func New(baseURL, token, tenantID string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		TenantID: tenantID,
		http:     &http.Client{Timeout: timeout},
		log:      log.With(sl.Module("directory")),
	}
}

// Start opens a new waiting room for the caller.
func (c *Client) Start(ctx context.Context, req entity.StartRequest) (*entity.Room, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid start request: %w", err)
	}
	var room entity.Room
	if err := c.do(ctx, http.MethodPost, "/chat/start", req, &room); err != nil {
		return nil, err
	}
	c.log.With(
		slog.String("room_id", room.ID),
		slog.String("status", string(room.Status)),
	).Debug("room started")
	return &room, nil
}

// Active returns the caller's open room, or nil when there is none.
func (c *Client) Active(ctx context.Context) (*entity.Room, error) {
	var room *entity.Room
	if err := c.do(ctx, http.MethodGet, "/chat/active", nil, &room); err != nil {
		return nil, err
	}
	return room, nil
}

// Join claims a waiting room for the calling staff member. It fails when someone else already has it.
func (c *Client) Join(ctx context.Context, roomID string) (*entity.Room, error) {
	var room entity.Room
	if err := c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(roomID)+"/join", nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) Close(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(roomID)+"/close", nil, nil)
}

// Messages returns the room history in server order.
func (c *Client) Messages(ctx context.Context, roomID string) ([]entity.Message, error) {
	var messages []entity.Message
	if err := c.do(ctx, http.MethodGet, "/chat/"+url.PathEscape(roomID)+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].ID = messages[i].Key()
		if messages[i].RoomID == "" {
			messages[i].RoomID = roomID
		}
	}
	return messages, nil
}

// Waiting lists unclaimed rooms of the tenant.
func (c *Client) Waiting(ctx context.Context) ([]entity.Room, error) {
	var rooms []entity.Room
	if err := c.do(ctx, http.MethodGet, "/chats/waiting", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// ActiveRooms lists claimed, not yet closed rooms of the tenant.
func (c *Client) ActiveRooms(ctx context.Context) ([]entity.Room, error) {
	var rooms []entity.Room
	if err := c.do(ctx, http.MethodGet, "/chats/active", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		requestBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewBuffer(requestBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	if c.TenantID != "" {
		req.Header.Set("X-Tenant-ID", c.TenantID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var envelope response.Response
		if json.Unmarshal(data, &envelope) == nil {
			statusErr.Message = envelope.Message
		}
		c.log.With(
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		).Debug("directory request failed")
		return statusErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
