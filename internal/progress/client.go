package progress

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

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/report"
)

const defaultClientTimeout = 10 * time.Second

// ClientIDHeader carries the per-install client id on every request.
const ClientIDHeader = "X-Client-ID"

// Client talks to the Progress Service over HTTP. It implements
// session.ProgressService.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration // zero keeps the HTTP client's own timeout
	token      string
	clientID   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client. The client is not modified.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithClientID sets the client id sent in the X-Client-ID header.
func WithClientID(id string) ClientOption {
	return func(c *Client) { c.clientID = id }
}

// WithTimeout sets the per-request timeout, whichever HTTP client is used.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Progress Service client for baseURL, e.g.
// "http://localhost:8080/api".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		c.httpClient = &http.Client{Timeout: defaultClientTimeout}
		if c.timeout > 0 {
			c.httpClient.Timeout = c.timeout
		}
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// GetProgress returns the stored unlock index for lessonID. found is false
// when the service has no progress recorded.
func (c *Client) GetProgress(ctx context.Context, lessonID string) (int, bool, error) {
	var view progressView
	if err := c.do(ctx, http.MethodGet, progressPath(lessonID), nil, &view); err != nil {
		return 0, false, err
	}
	if view.CurrentIndex < 0 {
		return -1, false, nil
	}
	return view.CurrentIndex, true, nil
}

// SaveProgress reports that index has been unlocked in lessonID.
func (c *Client) SaveProgress(ctx context.Context, lessonID string, index int) error {
	body := map[string]int{"index": index}
	return c.do(ctx, http.MethodPost, progressPath(lessonID), body, nil)
}

// ReportSummary returns the learner dashboard.
func (c *Client) ReportSummary(ctx context.Context) (report.Dashboard, error) {
	var d report.Dashboard
	if err := c.do(ctx, http.MethodGet, "/report/summary", nil, &d); err != nil {
		return report.Dashboard{}, err
	}
	return d, nil
}

// Lesson fetches a lesson definition from the service catalog.
func (c *Client) Lesson(ctx context.Context, lessonID string) (*lesson.Lesson, error) {
	var l lesson.Lesson
	if err := c.do(ctx, http.MethodGet, "/lessons/"+url.PathEscape(lessonID), nil, &l); err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lesson %s: %w", lessonID, err)
	}
	return &l, nil
}

// Watch streams progress updates for lessonID until ctx is cancelled or the
// connection drops. The first value is the current stored progress.
func (c *Client) Watch(ctx context.Context, lessonID string) (<-chan Record, error) {
	u, err := url.Parse(c.baseURL + progressPath(lessonID) + "/watch")
	if err != nil {
		return nil, fmt.Errorf("parse watch url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: c.headers(),
	})
	if err != nil {
		return nil, fmt.Errorf("dial progress watch: %w", err)
	}

	out := make(chan Record)
	go func() {
		defer close(out)
		defer conn.CloseNow()
		for {
			var view progressView
			if err := wsjson.Read(ctx, conn, &view); err != nil {
				return
			}
			rec := Record{LessonID: view.LessonID, CurrentIndex: view.CurrentIndex}
			if view.UpdatedAt != nil {
				rec.UpdatedAt = *view.UpdatedAt
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = c.headers()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	if c.clientID != "" {
		h.Set(ClientIDHeader, c.clientID)
	}
	return h
}

func progressPath(lessonID string) string {
	return "/progress/" + url.PathEscape(lessonID)
}
