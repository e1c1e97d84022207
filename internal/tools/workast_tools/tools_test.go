package workast_tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/workast-mcp/internal/server"
	"github.com/teemow/workast-mcp/internal/tools/batch"
	"github.com/teemow/workast-mcp/internal/workast"
)

type upstreamCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeWorkast answers "METHOD /path" routes with canned JSON and 404s the rest.
type fakeWorkast struct {
	mu     sync.Mutex
	routes map[string]string
	calls  []upstreamCall
}

func newFakeWorkast(t *testing.T, routes map[string]string) (*fakeWorkast, *httptest.Server) {
	t.Helper()
	f := &fakeWorkast{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, upstreamCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
		resp, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeWorkast) recorded() []upstreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upstreamCall(nil), f.calls...)
}

func newTestContext(t *testing.T, baseURL, token string) *server.ServerContext {
	t.Helper()
	cfg := workast.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Token = token
	cfg.Concurrency = 1
	sc, err := server.NewServerContext(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func newTestServer(t *testing.T, sc *server.ServerContext, readOnly bool) *mcpserver.MCPServer {
	t.Helper()
	s := mcpserver.NewMCPServer("workast-mcp", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterWorkastTools(s, sc, readOnly))
	return s
}

func rpc(t *testing.T, s *mcpserver.MCPServer, method string, params any) json.RawMessage {
	t.Helper()
	msg, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)

	data, err := json.Marshal(s.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))
	require.Empty(t, resp.Error, "unexpected JSON-RPC error")
	return resp.Result
}

func listToolNames(t *testing.T, s *mcpserver.MCPServer) []string {
	t.Helper()
	var result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rpc(t, s, "tools/list", map[string]any{}), &result))

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

// callTool runs a tool through the MCP server and returns its text and error flag.
func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]any) (string, bool) {
	t.Helper()
	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(rpc(t, s, "tools/call", map[string]any{"name": name, "arguments": args}), &result))
	require.NotEmpty(t, result.Content)
	return result.Content[0].Text, result.IsError
}

func request(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

var readOnlyTools = []string{
	"workast_list_spaces",
	"workast_get_space",
	"workast_create_space",
	"workast_list_tasks",
	"workast_get_tasks",
	"workast_create_task",
	"workast_create_subtask",
	"workast_add_comment",
	"workast_list_users",
	"workast_get_me",
	"workast_list_tags",
}

var writeTools = []string{
	"workast_update_task",
	"workast_complete_tasks",
	"workast_reopen_tasks",
	"workast_delete_tasks",
	"workast_assign_task",
	"workast_unassign_task",
	"workast_add_tags_to_task",
}

func TestRegisterWorkastTools_ReadOnly(t *testing.T) {
	sc := newTestContext(t, "https://workast.test", "secret")
	s := newTestServer(t, sc, true)

	assert.ElementsMatch(t, readOnlyTools, listToolNames(t, s))
}

func TestRegisterWorkastTools_Yolo(t *testing.T) {
	sc := newTestContext(t, "https://workast.test", "secret")
	s := newTestServer(t, sc, false)

	assert.ElementsMatch(t, append(append([]string{}, readOnlyTools...), writeTools...), listToolNames(t, s))
}

func TestRegisterWorkastTools_RequiresServerAndContext(t *testing.T) {
	sc := newTestContext(t, "https://workast.test", "secret")
	assert.Error(t, RegisterWorkastTools(nil, sc, true))
	assert.Error(t, RegisterWorkastTools(mcpserver.NewMCPServer("x", "1"), nil, true))
}

func TestListTasks_EndToEnd(t *testing.T) {
	_, srv := newFakeWorkast(t, map[string]string{
		"GET /list": `[
			{"id":"sp-1","name":"Ops","isParticipant":true,"isArchived":false},
			{"id":"sp-2","name":"Old","isParticipant":true,"isArchived":true},
			{"id":"sp-3","name":"Other team","isParticipant":false,"isArchived":false}
		]`,
		"GET /list/sp-1/task": `[
			{"id":"t1","text":"Rotate certificates","assignedTo":[{"id":"u1"}]},
			{"id":"t2","text":"Write postmortem","assignedTo":[{"id":"u2"}]}
		]`,
		"GET /task/t1": `{"id":"t1","text":"Rotate certificates","subTasks":[{"id":"s1","text":"Rotate ingress cert","assignedTo":[{"id":"u1"}]}]}`,
		"GET /task/t2": `{"id":"t2","text":"Write postmortem"}`,
	})
	s := newTestServer(t, newTestContext(t, srv.URL, "secret"), true)

	text, isError := callTool(t, s, "workast_list_tasks", map[string]any{
		"assignee":         "u1",
		"query":            "ROTATE",
		"include_subtasks": true,
	})
	require.False(t, isError, text)

	var tasks []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &tasks))
	require.Len(t, tasks, 2)

	assert.Equal(t, "t1", tasks[0]["id"])
	assert.Equal(t, "Ops", tasks[0]["spaceName"])
	assert.NotContains(t, tasks[0], "isSubtask")

	assert.Equal(t, "s1", tasks[1]["id"])
	assert.Equal(t, true, tasks[1]["isSubtask"])
	assert.Equal(t, "t1", tasks[1]["parentTaskId"])
	assert.Equal(t, "Rotate certificates", tasks[1]["parentTaskName"])
}

func TestListTasks_DefaultsAndParams(t *testing.T) {
	fake, srv := newFakeWorkast(t, map[string]string{
		"GET /list/sp-9/task": `[{"id":"a"},{"id":"b"},{"id":"c"}]`,
	})
	sc := newTestContext(t, srv.URL, "secret")

	result, err := handleListTasks(sc)(context.Background(), request(map[string]any{
		"space_id": "sp-9",
		"status":   "all",
		"limit":    float64(2),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var tasks []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0]["id"])
	assert.NotContains(t, tasks[0], "spaceName", "explicit space has no name to annotate")

	calls := fake.recorded()
	require.Len(t, calls, 1, "explicit space skips the space listing")
	assert.Equal(t, "done=all", calls[0].Query)
}

func TestListTasks_EmptyResultIsArray(t *testing.T) {
	_, srv := newFakeWorkast(t, map[string]string{"GET /list": `[]`})
	sc := newTestContext(t, srv.URL, "secret")

	result, err := handleListTasks(sc)(context.Background(), request(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestListTasks_Errors(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		args    map[string]any
		wantMsg string
	}{
		{name: "missing token", args: nil, wantMsg: "Failed to list tasks: WORKAST_API_TOKEN is not set"},
		{name: "invalid status", token: "secret", args: map[string]any{"status": "open"}, wantMsg: "open"},
		{name: "invalid limit", token: "secret", args: map[string]any{"limit": "lots"}, wantMsg: "limit must be an integer"},
		{name: "negative limit", token: "secret", args: map[string]any{"limit": float64(-1)}, wantMsg: "limit must be 0 or greater, got -1"},
		{name: "scope failure", token: "secret", args: nil, wantMsg: "failed to resolve search scope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, srv := newFakeWorkast(t, map[string]string{})
			sc := newTestContext(t, srv.URL, tt.token)

			result, err := handleListTasks(sc)(context.Background(), request(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantMsg)
			if tt.token == "" {
				assert.Empty(t, fake.recorded())
			}
		})
	}
}

func TestGetTasks_PartialFailure(t *testing.T) {
	_, srv := newFakeWorkast(t, map[string]string{
		"GET /task/t1": `{"id":"t1","text":"One","color":"red"}`,
	})
	sc := newTestContext(t, srv.URL, "secret")

	result, err := handleGetTasks(sc)(context.Background(), request(map[string]any{"task_id": []any{"t1", "missing"}}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var br batch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &br))
	assert.Equal(t, 2, br.Total)
	assert.Equal(t, 1, br.Successful)
	assert.Equal(t, 1, br.Failed)
	assert.JSONEq(t, `{"id":"t1","text":"One","color":"red"}`, string(br.Results[0].Result))
	assert.Contains(t, br.Results[1].Error, "returned 404")
}

func TestBatchTools_MissingTokenFailsFast(t *testing.T) {
	fake, srv := newFakeWorkast(t, map[string]string{})
	sc := newTestContext(t, srv.URL, "")

	result, err := handleGetTasks(sc)(context.Background(), request(map[string]any{"task_id": "t1,t2"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, workast.ErrMissingToken.Error(), resultText(t, result))
	assert.Empty(t, fake.recorded())
}

func TestWriteTools(t *testing.T) {
	tests := []struct {
		name      string
		tool      string
		args      map[string]any
		wantCalls []upstreamCall
	}{
		{
			name: "complete comma separated ids",
			tool: "workast_complete_tasks",
			args: map[string]any{"task_id": "t1, t2"},
			wantCalls: []upstreamCall{
				{Method: http.MethodPost, Path: "/task/t1/done"},
				{Method: http.MethodPost, Path: "/task/t2/done"},
			},
		},
		{
			name:      "reopen",
			tool:      "workast_reopen_tasks",
			args:      map[string]any{"task_id": []any{"t1"}},
			wantCalls: []upstreamCall{{Method: http.MethodPost, Path: "/task/t1/undone"}},
		},
		{
			name:      "delete",
			tool:      "workast_delete_tasks",
			args:      map[string]any{"task_id": "t1"},
			wantCalls: []upstreamCall{{Method: http.MethodDelete, Path: "/task/t1"}},
		},
		{
			name:      "update sends only given fields",
			tool:      "workast_update_task",
			args:      map[string]any{"task_id": "t1", "due_date": "2025-03-01"},
			wantCalls: []upstreamCall{{Method: http.MethodPatch, Path: "/task/t1", Body: `{"dueDate":"2025-03-01"}`}},
		},
		{
			name:      "assign",
			tool:      "workast_assign_task",
			args:      map[string]any{"task_id": "t1", "user_id": "u1"},
			wantCalls: []upstreamCall{{Method: http.MethodPost, Path: "/task/t1/assigned", Body: `{"userId":"u1"}`}},
		},
		{
			name:      "unassign sends the user in the body",
			tool:      "workast_unassign_task",
			args:      map[string]any{"task_id": "t1", "user_id": "u1"},
			wantCalls: []upstreamCall{{Method: http.MethodDelete, Path: "/task/t1/assigned", Body: `{"userId":"u1"}`}},
		},
		{
			name:      "add tags from comma separated string",
			tool:      "workast_add_tags_to_task",
			args:      map[string]any{"task_id": "t1", "tag_ids": "a, b"},
			wantCalls: []upstreamCall{{Method: http.MethodPost, Path: "/task/t1/tag", Body: `{"tagIds":["a","b"]}`}},
		},
		{
			name: "create task",
			tool: "workast_create_task",
			args: map[string]any{"space_id": "sp-1", "name": "Ship", "assignee": "u1"},
			wantCalls: []upstreamCall{
				{Method: http.MethodPost, Path: "/list/sp-1/task", Body: `{"name":"Ship","assignedTo":["u1"]}`},
			},
		},
		{
			name:      "create subtask",
			tool:      "workast_create_subtask",
			args:      map[string]any{"task_id": "t1", "name": "Step"},
			wantCalls: []upstreamCall{{Method: http.MethodPost, Path: "/task/t1/subtask", Body: `{"name":"Step"}`}},
		},
		{
			name:      "add comment",
			tool:      "workast_add_comment",
			args:      map[string]any{"task_id": "t1", "text": "done?"},
			wantCalls: []upstreamCall{{Method: http.MethodPost, Path: "/task/t1/activity", Body: `{"text":"done?"}`}},
		},
		{
			name:      "create space",
			tool:      "workast_create_space",
			args:      map[string]any{"name": "Roadmap"},
			wantCalls: []upstreamCall{{Method: http.MethodPost, Path: "/list", Body: `{"name":"Roadmap"}`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes := map[string]string{}
			for _, c := range tt.wantCalls {
				routes[c.Method+" "+c.Path] = `{"ok":true}`
			}
			fake, srv := newFakeWorkast(t, routes)
			s := newTestServer(t, newTestContext(t, srv.URL, "secret"), false)

			text, isError := callTool(t, s, tt.tool, tt.args)
			require.False(t, isError, text)

			calls := fake.recorded()
			require.Len(t, calls, len(tt.wantCalls))
			for i, want := range tt.wantCalls {
				assert.Equal(t, want.Method, calls[i].Method)
				assert.Equal(t, want.Path, calls[i].Path)
				if want.Body == "" {
					assert.Empty(t, calls[i].Body)
				} else {
					assert.JSONEq(t, want.Body, calls[i].Body)
				}
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantMsg string
	}{
		{name: "get space without id", tool: "workast_get_space", args: map[string]any{}, wantMsg: "space_id is required"},
		{name: "create task without name", tool: "workast_create_task", args: map[string]any{"space_id": "sp-1"}, wantMsg: "name is required"},
		{name: "update without fields", tool: "workast_update_task", args: map[string]any{"task_id": "t1"}, wantMsg: "at least one of name, description or due_date is required"},
		{name: "assign without user", tool: "workast_assign_task", args: map[string]any{"task_id": "t1"}, wantMsg: "user_id is required"},
		{name: "tags without ids", tool: "workast_add_tags_to_task", args: map[string]any{"task_id": "t1", "tag_ids": " , "}, wantMsg: "tag_ids cannot be empty"},
		{name: "complete without ids", tool: "workast_complete_tasks", args: map[string]any{}, wantMsg: "task_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, srv := newFakeWorkast(t, map[string]string{})
			s := newTestServer(t, newTestContext(t, srv.URL, "secret"), false)

			text, isError := callTool(t, s, tt.tool, tt.args)
			assert.True(t, isError)
			assert.Equal(t, tt.wantMsg, text)
			assert.Empty(t, fake.recorded(), "invalid input must not reach the API")
		})
	}
}

func TestReadTools_UpstreamError(t *testing.T) {
	_, srv := newFakeWorkast(t, map[string]string{})
	s := newTestServer(t, newTestContext(t, srv.URL, "secret"), true)

	text, isError := callTool(t, s, "workast_list_users", nil)
	assert.True(t, isError)
	assert.Equal(t, `Failed to list users: workast API GET /user returned 404: {"message":"not found"}`, text)
}

func TestReadTools_RawPassthrough(t *testing.T) {
	_, srv := newFakeWorkast(t, map[string]string{
		"GET /user/me": `{"id":"u1","name":"Robin","custom":{"a":1}}`,
		"GET /tag":     `[{"id":"tag-1","name":"urgent"}]`,
		"GET /list":    `[{"id":"sp-1","name":"Ops","isParticipant":true,"extra":"kept"}]`,
	})
	s := newTestServer(t, newTestContext(t, srv.URL, "secret"), true)

	text, isError := callTool(t, s, "workast_get_me", nil)
	require.False(t, isError, text)
	assert.JSONEq(t, `{"id":"u1","name":"Robin","custom":{"a":1}}`, text)

	text, isError = callTool(t, s, "workast_list_tags", nil)
	require.False(t, isError, text)
	assert.JSONEq(t, `[{"id":"tag-1","name":"urgent"}]`, text)

	text, isError = callTool(t, s, "workast_list_spaces", nil)
	require.False(t, isError, text)
	assert.Contains(t, text, `"extra": "kept"`)
}
