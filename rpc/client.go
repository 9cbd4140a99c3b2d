package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wayfarergame/wayfarer/config"
	"go.uber.org/zap"
)

// Gateway is the remote-procedure channel the game client consumes.
// Calls are at-most-once: the gateway never retries internally. Retry
// policy, where it exists at all, belongs to the caller.
type Gateway interface {
	Call(ctx context.Context, session *Session, procedure string, payload interface{}) (json.RawMessage, error)
}

// Client talks to a Nakama server over its HTTP API.
type Client struct {
	baseURL    string
	httpKey    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client for the given Nakama base URL.
// httpKey is the server key used for authentication endpoints.
func NewClient(baseURL, httpKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpKey:    httpKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NewClientFromConfig creates a Client from the nakama config section.
func NewClientFromConfig(cfg config.NakamaConfig, logger *zap.Logger) *Client {
	return NewClient(cfg.BaseURL, cfg.HTTPKey, cfg.Timeout, logger)
}

type authResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthenticateDevice authenticates with a device ID, creating the account
// if it does not exist, and returns a new Session.
func (c *Client) AuthenticateDevice(ctx context.Context, deviceID, username string) (*Session, error) {
	q := url.Values{"create": {"true"}}
	if username != "" {
		q.Set("username", username)
	}
	return c.authenticate(ctx, "/v2/account/authenticate/device?"+q.Encode(),
		map[string]string{"id": deviceID})
}

// AuthenticateEmail authenticates with an email/password pair.
func (c *Client) AuthenticateEmail(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/v2/account/authenticate/email?create=false",
		map[string]string{"email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*Session, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.httpKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "authenticate", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &AuthError{Message: serverMessage(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{Procedure: "authenticate", StatusCode: resp.StatusCode, Message: serverMessage(respBody)}
	}

	var ar authResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return nil, fmt.Errorf("rpc: decode auth response: %w", err)
	}
	return RestoreSession(ar.Token, ar.RefreshToken)
}

// Call invokes a named server procedure with a JSON payload and returns the
// logical result. The `unwrap` form of the Nakama RPC endpoint is used so
// payloads travel as plain JSON rather than double-encoded strings.
func (c *Client) Call(ctx context.Context, session *Session, procedure string, payload interface{}) (json.RawMessage, error) {
	if session == nil || session.Token() == "" {
		return nil, &AuthError{Message: "no session"}
	}
	if session.Expired(time.Now()) {
		return nil, &AuthError{Message: "session expired"}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("rpc: marshal payload for %s: %w", procedure, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + "/v2/rpc/" + url.PathEscape(procedure) + "?unwrap=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.Token())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: procedure, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: procedure, Err: err}
	}

	c.logger.Debug("rpc call",
		zap.String("procedure", procedure),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &AuthError{Message: serverMessage(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{Procedure: procedure, StatusCode: resp.StatusCode, Message: serverMessage(respBody)}
	}

	// Game RPCs wrap results in a {success, error} envelope. A delivered
	// response with success=false is a server-side rejection, not data.
	var envelope struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &envelope); err == nil &&
		envelope.Success != nil && !*envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "request rejected"
		}
		return nil, &ServerError{Procedure: procedure, Message: msg}
	}

	return json.RawMessage(respBody), nil
}

// serverMessage extracts the message from a Nakama error body, falling back
// to the raw body when it is not the standard shape.
func serverMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
