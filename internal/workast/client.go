package workast

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/teemow/workast-mcp/internal/instrumentation"
)

// Operation names used for spans and the workast_api_operations_total metric.
const (
	opListSpaces    = "list_spaces"
	opGetSpace      = "get_space"
	opCreateSpace   = "create_space"
	opListTasks     = "list_tasks"
	opGetTask       = "get_task"
	opCreateTask    = "create_task"
	opUpdateTask    = "update_task"
	opCompleteTask  = "complete_task"
	opReopenTask    = "reopen_task"
	opDeleteTask    = "delete_task"
	opAssignTask    = "assign_task"
	opUnassignTask  = "unassign_task"
	opAddComment    = "add_comment"
	opCreateSubtask = "create_subtask"
	opListUsers     = "list_users"
	opGetMe         = "get_me"
	opListTags      = "list_tags"
	opAddTags       = "add_tags"
)

// Client wraps the Workast REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetrics records every upstream call on m.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTransport replaces the base HTTP transport. Authentication and tracing
// are still layered on top of it.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = newTransport(c.token, rt)
	}
}

// NewClient creates a Workast API client.
// A missing token is not an error here; every call fails with ErrMissingToken instead.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Transport: newTransport(cfg.Token, http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newTransport layers bearer authentication over an otelhttp client transport.
func newTransport(token string, base http.RoundTripper) http.RoundTripper {
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   otelhttp.NewTransport(base),
	}
}

// CheckCredentials returns ErrMissingToken if no API token is configured.
func (c *Client) CheckCredentials() error {
	if c.token == "" {
		return ErrMissingToken
	}
	return nil
}

// do sends one request and decodes a 2xx JSON response into out.
// A nil body sends no payload; empty query values are omitted.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	if err := c.CheckCredentials(); err != nil {
		return err
	}

	ctx, span := instrumentation.StartWorkastAPISpan(ctx, op)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		}
		c.metrics.RecordWorkastAPIOperation(ctx, op, path, status, time.Since(start))
		span.End()
	}()

	target := c.baseURL + path
	if encoded := encodeQuery(query); encoded != "" {
		target += "?" + encoded
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("workast API %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read workast API response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if raw, ok := out.(*json.RawMessage); ok {
			*raw = json.RawMessage("{}")
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode workast API %s %s response: %w", method, path, err)
	}
	return nil
}

func encodeQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	cleaned := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			if v != "" {
				cleaned.Add(k, v)
			}
		}
	}
	return cleaned.Encode()
}

func escape(id string) string {
	return url.PathEscape(id)
}

func (c *Client) raw(ctx context.Context, op, method, path string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, op, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSpaces lists every space visible to the token, in upstream order.
func (c *Client) ListSpaces(ctx context.Context) ([]Space, error) {
	var spaces []Space
	if err := c.do(ctx, opListSpaces, http.MethodGet, "/list", nil, nil, &spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}

// GetSpace retrieves one space.
func (c *Client) GetSpace(ctx context.Context, spaceID string) (json.RawMessage, error) {
	return c.raw(ctx, opGetSpace, http.MethodGet, "/list/"+escape(spaceID), nil)
}

// CreateSpace creates a space. Description is optional.
func (c *Client) CreateSpace(ctx context.Context, name, description string) (json.RawMessage, error) {
	body := map[string]any{"name": name}
	if description != "" {
		body["description"] = description
	}
	return c.raw(ctx, opCreateSpace, http.MethodPost, "/list", body)
}

// ListTasks lists the tasks of one space matching status.
func (c *Client) ListTasks(ctx context.Context, spaceID string, status Status) ([]Task, error) {
	query := url.Values{"done": {status.doneParam()}}

	var tasks []Task
	if err := c.do(ctx, opListTasks, http.MethodGet, "/list/"+escape(spaceID)+"/task", query, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask retrieves one task with its subtasks.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.do(ctx, opGetTask, http.MethodGet, "/task/"+escape(taskID), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task in a space.
func (c *Client) CreateTask(ctx context.Context, spaceID string, input TaskInput) (json.RawMessage, error) {
	return c.raw(ctx, opCreateTask, http.MethodPost, "/list/"+escape(spaceID)+"/task", input.body())
}

// UpdateTask changes a task's name, description or due date. Only non-empty
// fields are sent; the assignee is ignored.
func (c *Client) UpdateTask(ctx context.Context, taskID string, input TaskInput) (json.RawMessage, error) {
	input.Assignee = ""
	return c.raw(ctx, opUpdateTask, http.MethodPatch, "/task/"+escape(taskID), input.body())
}

// CompleteTask marks a task as done.
func (c *Client) CompleteTask(ctx context.Context, taskID string) (json.RawMessage, error) {
	return c.raw(ctx, opCompleteTask, http.MethodPost, "/task/"+escape(taskID)+"/done", nil)
}

// ReopenTask marks a task as not done.
func (c *Client) ReopenTask(ctx context.Context, taskID string) (json.RawMessage, error) {
	return c.raw(ctx, opReopenTask, http.MethodPost, "/task/"+escape(taskID)+"/undone", nil)
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, opDeleteTask, http.MethodDelete, "/task/"+escape(taskID), nil, nil, nil)
}

// AssignTask adds a user to a task's assignees.
func (c *Client) AssignTask(ctx context.Context, taskID, userID string) (json.RawMessage, error) {
	return c.raw(ctx, opAssignTask, http.MethodPost, "/task/"+escape(taskID)+"/assigned", map[string]string{"userId": userID})
}

// UnassignTask removes a user from a task's assignees. The user ID travels
// in the DELETE request body.
func (c *Client) UnassignTask(ctx context.Context, taskID, userID string) (json.RawMessage, error) {
	return c.raw(ctx, opUnassignTask, http.MethodDelete, "/task/"+escape(taskID)+"/assigned", map[string]string{"userId": userID})
}

// AddComment posts a comment to a task's activity feed.
func (c *Client) AddComment(ctx context.Context, taskID, text string) (json.RawMessage, error) {
	return c.raw(ctx, opAddComment, http.MethodPost, "/task/"+escape(taskID)+"/activity", map[string]string{"text": text})
}

// CreateSubtask creates a subtask under a task.
func (c *Client) CreateSubtask(ctx context.Context, taskID, name string) (json.RawMessage, error) {
	return c.raw(ctx, opCreateSubtask, http.MethodPost, "/task/"+escape(taskID)+"/subtask", map[string]string{"name": name})
}

// ListUsers lists the users of the workspace.
func (c *Client) ListUsers(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, opListUsers, http.MethodGet, "/user", nil)
}

// GetMe returns the user the token belongs to.
func (c *Client) GetMe(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, opGetMe, http.MethodGet, "/user/me", nil)
}

// ListTags lists the tags of the workspace.
func (c *Client) ListTags(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, opListTags, http.MethodGet, "/tag", nil)
}

// AddTagsToTask attaches existing tags to a task.
func (c *Client) AddTagsToTask(ctx context.Context, taskID string, tagIDs []string) (json.RawMessage, error) {
	return c.raw(ctx, opAddTags, http.MethodPost, "/task/"+escape(taskID)+"/tag", map[string][]string{"tagIds": tagIDs})
}
