package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"librarydesk/pkg/session"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrSessionExpired is returned for any 401. By then the session has already
// been cleared and the navigator sent to the login entry point.
var ErrSessionExpired = errors.New("session expired")

// Navigator is told to show the login entry point after a 401.
type Navigator interface {
	ToLogin()
}

type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

type noopNavigator struct{}

func (noopNavigator) ToLogin() {}

// APIError is a non-2xx response other than 401. Message is whatever the
// server put in the body's "message" (or "error") field and may be empty.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Message returns the server-supplied message carried by err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL    string
	session    *session.Session
	httpClient *http.Client
	navigator  Navigator
	logger     *log.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    sess,
		httpClient: http.DefaultClient,
		navigator:  noopNavigator{},
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = session.New(nil)
	}
	return c
}

func (c *Client) Session() *session.Session {
	return c.session
}

// Logout drops the session and sends the navigator to the login entry point.
func (c *Client) Logout() error {
	err := c.session.Clear()
	c.navigator.ToLogin()
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	data, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	// auth endpoints never carry the token
	if token := c.session.Token(); token != "" && !strings.Contains(path, "/auth/") {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.expire(method, path)
		return nil, ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: extractMessage(data)}
	}
	return data, nil
}

func (c *Client) expire(method, path string) {
	c.logger.Printf("session expired on %s %s, clearing session", method, path)
	if err := c.session.Clear(); err != nil {
		c.logger.Printf("failed to clear persisted session: %v", err)
	}
	c.navigator.ToLogin()
}

func extractMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
