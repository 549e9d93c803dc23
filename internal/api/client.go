package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/tooly/internal/dispatch"
	"github.com/mattjoyce/tooly/internal/events"
)

// StatusError is a non-success response from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Message)
}

// Undelivered reports whether err means a request never reached the server,
// because the connection could not be established. Any other failure may
// have happened after the server acted on the request.
func Undelivered(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// Client talks to a resident tooly process.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient accepts either a base URL or a host:port address.
func NewClient(addr, apiKey string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL: base,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Health calls GET /healthz.
func (c *Client) Health(ctx context.Context) (*HealthzResponse, error) {
	var out HealthzResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trigger forwards a trigger URL. A rejected trigger returns its report and no error.
func (c *Client) Trigger(ctx context.Context, rawURL string) (dispatch.Report, error) {
	body, err := json.Marshal(TriggerRequest{URL: rawURL})
	if err != nil {
		return dispatch.Report{}, err
	}

	resp, err := c.send(ctx, http.MethodPost, "/trigger", bytes.NewReader(body))
	if err != nil {
		return dispatch.Report{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dispatch.Report{}, fmt.Errorf("read response: %w", err)
	}

	var rep dispatch.Report
	if err := json.Unmarshal(data, &rep); err == nil && rep.TriggerID != "" {
		if rep.Error != "" {
			rep.Err = errors.New(rep.Error)
		}
		return rep, nil
	}
	return dispatch.Report{}, statusError(resp.StatusCode, data)
}

// History calls GET /history.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	path := "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// HistoryEntry calls GET /history/{id}.
func (c *Client) HistoryEntry(ctx context.Context, id string) (*HistoryEntry, error) {
	var out HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stream reads GET /events until ctx is done, the server closes the stream
// or fn returns an error.
func (c *Client) Stream(ctx context.Context, fn func(events.Event) error) error {
	req, err := c.request(ctx, http.MethodGet, "/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream is long-lived; only the context bounds it.
	streamClient := *c.HTTP
	streamClient.Timeout = 0
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return statusError(resp.StatusCode, data)
	}

	var ev events.Event
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if ev.Data != nil {
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev = events.Event{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id: "):
			ev.ID, _ = strconv.ParseInt(strings.TrimPrefix(line, "id: "), 10, 64)
		case strings.HasPrefix(line, "event: "):
			ev.Type = events.Type(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			ev.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return ctx.Err()
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := c.request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return req, nil
}

func statusError(code int, body []byte) error {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return &StatusError{Code: code, Message: er.Error}
	}
	return &StatusError{Code: code, Message: strings.TrimSpace(string(body))}
}
