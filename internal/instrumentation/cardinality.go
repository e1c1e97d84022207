package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// Upstream paths embed space and task IDs, which would give every task its own
// time series. NormalizeAPIPath collapses them into route templates before the
// path is used as a label.

// NormalizeAPIPath replaces the ID segments of a Workast API path with
// placeholders.
//
// Example:
//
//	NormalizeAPIPath("/list/abc123/task")      // "/list/{id}/task"
//	NormalizeAPIPath("/task/t-9/assigned")     // "/task/{id}/assigned"
//	NormalizeAPIPath("/user/me")               // "/user/me"
//	NormalizeAPIPath("")                       // "unknown"
func NormalizeAPIPath(path string) string {
	if path == "" {
		return "unknown"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(segments); i++ {
		switch segments[i-1] {
		case "list", "task":
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

// Label values shared by metrics, spans and audit records.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Workast resource families, the service label on tool metrics
	ServiceSpaces = "spaces"
	ServiceTasks  = "tasks"
	ServiceUsers  = "users"
	ServiceTags   = "tags"

	// Search pipeline stages
	StageScope  = "scope"
	StageFanout = "fanout"
	StageExpand = "expand"
)

// Tool operation types.
const (
	OperationList     = "list"
	OperationGet      = "get"
	OperationCreate   = "create"
	OperationUpdate   = "update"
	OperationDelete   = "delete"
	OperationComplete = "complete"
	OperationReopen   = "reopen"
	OperationAssign   = "assign"
	OperationUnassign = "unassign"
	OperationComment  = "comment"
	OperationTag      = "tag"
	OperationSearch   = "search"
)
