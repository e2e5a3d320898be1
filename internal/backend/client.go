// Package backend is the REST client for the portal's chat endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matheus3301/vitalchat/internal/auth"
	"github.com/matheus3301/vitalchat/internal/chat"
	"go.uber.org/zap"
)

const maxBody = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL string        // e.g. http://localhost:3000/api
	Timeout time.Duration // per request; 30s when zero
	// HTTPClient overrides the default client. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

// Client talks to the portal with the bearer token of an auth.Session.
type Client struct {
	base    *url.URL
	http    *http.Client
	session *auth.Session
	logger  *zap.Logger
}

var _ chat.Backend = (*Client)(nil)

// New creates a client. The session is read on every request, so credential
// changes apply without rebuilding the client.
func New(opts Options, session *auth.Session, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hc := &http.Client{}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		hc = &c
	}
	hc.Timeout = opts.Timeout
	if hc.Timeout <= 0 {
		hc.Timeout = 30 * time.Second
	}

	return &Client{base: base, http: hc, session: session, logger: logger}, nil
}

// ListConversations fetches the directory, in server order.
func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	const op = "list conversations"
	body, err := c.do(ctx, op, http.MethodGet, "chat/conversations", nil)
	if err != nil {
		return nil, err
	}
	list, err := chat.DecodeConversations(body)
	if err != nil {
		return nil, &chat.TransportError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	return list, nil
}

// History fetches every message exchanged with partnerID, oldest first.
func (c *Client) History(ctx context.Context, partnerID string) ([]chat.Message, error) {
	const op = "history"
	if strings.TrimSpace(partnerID) == "" {
		return nil, &chat.ValidationError{Field: "partner_id", Reason: "missing"}
	}
	body, err := c.do(ctx, op, http.MethodGet, "chat/conversation/"+url.PathEscape(partnerID), nil)
	if err != nil {
		return nil, err
	}
	var msgs []chat.Message
	if err := decodeList(body, "messages", &msgs); err != nil {
		return nil, &chat.TransportError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	return msgs, nil
}

type sendRequest struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// Send posts text to partnerID and returns the persisted message. The text
// is sent untouched; callers reject blank input.
func (c *Client) Send(ctx context.Context, partnerID, text string) (chat.Message, error) {
	const op = "send"
	if strings.TrimSpace(partnerID) == "" {
		return chat.Message{}, &chat.ValidationError{Field: "partner_id", Reason: "missing"}
	}
	body, err := c.do(ctx, op, http.MethodPost, "chat/send", sendRequest{ReceiverID: partnerID, Message: text})
	if err != nil {
		return chat.Message{}, err
	}

	var msg chat.Message
	if err := decodeObject(body, "message", &msg); err != nil {
		return chat.Message{}, &chat.TransportError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	if msg.Sender.ID == "" {
		msg.Sender.ID = c.session.UserID()
	}
	if msg.Receiver.ID == "" {
		msg.Receiver.ID = partnerID
	}
	return msg, nil
}

// MarkRead acknowledges every message from partnerID.
func (c *Client) MarkRead(ctx context.Context, partnerID string) error {
	if strings.TrimSpace(partnerID) == "" {
		return &chat.ValidationError{Field: "partner_id", Reason: "missing"}
	}
	_, err := c.do(ctx, "mark read", http.MethodPatch, "chat/read/"+url.PathEscape(partnerID), nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	token := c.session.Token()
	if token == "" {
		return nil, &chat.TransportError{Op: op, Status: http.StatusUnauthorized, Err: chat.ErrUnauthorized}
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &chat.TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &chat.TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("portal request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.session.Clear(fmt.Sprintf("%s: %s", op, resp.Status))
		return nil, &chat.TransportError{Op: op, Status: resp.StatusCode, Err: chat.ErrUnauthorized}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &chat.TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(errorText(body, resp.Status))}
	}
	return body, nil
}

// errorText pulls {"message": "..."} or {"error": "..."} out of an error body.
func errorText(body []byte, fallback string) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}

// decodeList accepts a bare array or an object wrapping it under key.
func decodeList(body []byte, key string, out any) error {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(body, &env); err != nil {
			return err
		}
		inner, ok := env[key]
		if !ok {
			return fmt.Errorf("response has no %q field", key)
		}
		body = inner
	}
	return json.Unmarshal(body, out)
}

// decodeObject accepts the object itself or an envelope wrapping it under key
// (as in {"success": true, "message": {...}}).
func decodeObject(body []byte, key string, out any) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	if inner, ok := env[key]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
		body = inner
	}
	return json.Unmarshal(body, out)
}
