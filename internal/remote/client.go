package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/realtime"
	"github.com/nhle/todoshare/internal/registry"
	"github.com/nhle/todoshare/internal/store"
)

// StatusError is a non-2xx response other than 404.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("remote: %d %s", e.Code, e.Message)
}

// Client talks to a todoshare server over HTTP and its websocket feed.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
	buffer  int
	logger  *slog.Logger
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must be http or https", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: u,
		http:    http.DefaultClient,
		dialer:  websocket.DefaultDialer,
		buffer:  realtime.DefaultBuffer,
		logger:  logger.With("component", "remote_client"),
	}, nil
}

var _ registry.Remote = (*Client)(nil)

type errorBody struct {
	Error string `json:"error"`
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s %s: %s: %w", method, path, eb.Error, store.ErrNotFound)
		}
		return &StatusError{Code: resp.StatusCode, Message: eb.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// ListLists returns every list, newest first.
func (c *Client) ListLists(ctx context.Context) ([]model.List, error) {
	var lists []model.List
	if err := c.do(ctx, http.MethodGet, "/api/lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// GetList returns one list.
func (c *Client) GetList(ctx context.Context, id string) (model.List, error) {
	var list model.List
	err := c.do(ctx, http.MethodGet, "/api/lists/"+url.PathEscape(id), nil, &list)
	return list, err
}

// InsertList creates a list.
func (c *Client) InsertList(ctx context.Context, in model.NewList) (model.List, error) {
	var list model.List
	err := c.do(ctx, http.MethodPost, "/api/lists", in, &list)
	return list, err
}

// UpdateList patches a list.
func (c *Client) UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error) {
	var list model.List
	err := c.do(ctx, http.MethodPatch, "/api/lists/"+url.PathEscape(id), patch, &list)
	return list, err
}

// ListTasks returns the tasks of a list, oldest first.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, "/api/lists/"+url.PathEscape(listID)+"/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// InsertTask creates a task in in.ListID.
func (c *Client) InsertTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodPost, "/api/lists/"+url.PathEscape(in.ListID)+"/tasks", in, &task)
	return task, err
}

// UpdateTask patches a task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), patch, &task)
	return task, err
}

// FeedURL returns the websocket URL for filter.
func (c *Client) FeedURL(filter realtime.Filter) string {
	u := c.baseURL.JoinPath("/api/realtime")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	q := url.Values{}
	if filter.Collection != "" {
		q.Set("collection", string(filter.Collection))
	}
	if filter.ListID != "" {
		q.Set("list_id", filter.ListID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Subscribe dials the server's change feed. The subscription ends when
// the connection drops; it is not re-dialled.
func (c *Client) Subscribe(ctx context.Context, filter realtime.Filter) (registry.Subscription, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.FeedURL(filter), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial feed: %w", &StatusError{Code: resp.StatusCode})
		}
		return nil, fmt.Errorf("failed to dial feed: %w", err)
	}

	sub := &feed{
		conn:   conn,
		ch:     make(chan realtime.Event, c.buffer),
		done:   make(chan struct{}),
		logger: c.logger,
	}
	go sub.read()
	return sub, nil
}

func deadline() time.Time {
	return time.Now().Add(time.Second)
}

// feed is a websocket-backed Subscription.
type feed struct {
	conn   *websocket.Conn
	ch     chan realtime.Event
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func (f *feed) read() {
	defer close(f.ch)
	for {
		var e realtime.Event
		if err := f.conn.ReadJSON(&e); err != nil {
			select {
			case <-f.done:
			default:
				var closeErr *websocket.CloseError
				if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseNormalClosure {
					f.logger.Warn("Feed read failed", "error", err)
				}
			}
			return
		}
		select {
		case f.ch <- e:
		case <-f.done:
			return
		}
	}
}

func (f *feed) Events() <-chan realtime.Event {
	return f.ch
}

func (f *feed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		_ = f.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline())
		err = f.conn.Close()
	})
	return err
}
