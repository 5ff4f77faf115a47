package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gametrack/internal/enrich"
)

// ErrDaemonUnreachable reports that no daemon answered at the configured bind.
var ErrDaemonUnreachable = errors.New("gametrack daemon is not reachable")

const defaultClientTimeout = 10 * time.Second

// Client calls the daemon's HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	stream  *http.Client
}

// NewClient builds a client for a daemon listening on bind (host:port or URL).
func NewClient(bind, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: defaultClientTimeout},
		stream:  &http.Client{},
	}
}

// Health reports whether the daemon answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, c.http, http.MethodGet, "/healthz", nil, nil)
}

// Status returns daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, c.http, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Session returns the current snapshot.
func (c *Client) Session(ctx context.Context) (enrich.Snapshot, error) {
	var out enrich.Snapshot
	err := c.do(ctx, c.http, http.MethodGet, "/api/session", nil, &out)
	return out, err
}

// Start submits rows and returns the first snapshot of the new session.
func (c *Client) Start(ctx context.Context, req StartRequest) (enrich.Snapshot, error) {
	var out enrich.Snapshot
	err := c.do(ctx, c.http, http.MethodPost, "/api/session", req, &out)
	return out, err
}

// Pause pauses the running session.
func (c *Client) Pause(ctx context.Context) (enrich.Snapshot, error) {
	return c.control(ctx, "pause")
}

// Resume resumes a paused session.
func (c *Client) Resume(ctx context.Context) (enrich.Snapshot, error) {
	return c.control(ctx, "resume")
}

// Cancel drops the session and its persisted state.
func (c *Client) Cancel(ctx context.Context) (enrich.Snapshot, error) {
	return c.control(ctx, "cancel")
}

func (c *Client) control(ctx context.Context, action string) (enrich.Snapshot, error) {
	var out enrich.Snapshot
	err := c.do(ctx, c.http, http.MethodPost, "/api/session/"+action, nil, &out)
	return out, err
}

// Results lists resolved metadata, newest first. A non-positive limit returns
// everything.
func (c *Client) Results(ctx context.Context, limit int) ([]ResultRow, error) {
	path := "/api/results"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out ResultsResponse
	if err := c.do(ctx, c.http, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Logs fetches log events after since. With follow the call blocks until at
// least one event is available.
func (c *Client) Logs(ctx context.Context, since uint64, limit int, follow bool) (LogStreamResponse, error) {
	query := url.Values{}
	if since > 0 {
		query.Set("since", strconv.FormatUint(since, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	client := c.http
	if follow {
		query.Set("follow", "1")
		client = c.stream
	}
	path := "/api/logs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out LogStreamResponse
	err := c.do(ctx, client, http.MethodGet, path, nil, &out)
	return out, err
}

// Events streams snapshots until ctx ends, the server closes the stream, or fn
// returns an error. A nil return after the server closes the stream is normal.
func (c *Client) Events(ctx context.Context, fn func(enrich.Snapshot) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/session/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.send(c.stream, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "" && data.Len() > 0:
			var snap enrich.Snapshot
			if err := json.Unmarshal(data.Bytes(), &snap); err != nil {
				return fmt.Errorf("decode snapshot event: %w", err)
			}
			data.Reset()
			if err := fn(snap); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body, dest any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.send(client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: api bind not configured", ErrDaemonUnreachable)
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) send(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w at %s: %v", ErrDaemonUnreachable, c.baseURL, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		var apiErr ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	return resp, nil
}

// StatusError is a non-2xx daemon answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned http %d", e.Code)
	}
	return fmt.Sprintf("daemon returned http %d: %s", e.Code, e.Message)
}
