package workast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Status selects which tasks a listing returns.
type Status string

const (
	StatusActive Status = "active"
	StatusDone   Status = "done"
	StatusAll    Status = "all"
)

// ParseStatus converts a caller-supplied status. An empty string means StatusActive.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusActive:
		return StatusActive, nil
	case StatusDone:
		return StatusDone, nil
	case StatusAll:
		return StatusAll, nil
	default:
		return "", fmt.Errorf("invalid status %q: must be one of active, done, all", s)
	}
}

// doneParam returns the value of the upstream "done" query parameter.
// Active tasks are the upstream default, so no parameter is sent.
func (s Status) doneParam() string {
	switch s {
	case StatusDone:
		return "true"
	case StatusAll:
		return "all"
	default:
		return ""
	}
}

// Space is a Workast list, the collection tasks live in.
type Space struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsParticipant bool   `json:"isParticipant"`
	IsArchived    bool   `json:"isArchived"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the upstream document so that fields this package
// does not model are returned unchanged.
func (s *Space) UnmarshalJSON(data []byte) error {
	type plain Space
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Space(p)
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the upstream document when the space was decoded from one.
func (s Space) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	type plain Space
	return json.Marshal(plain(s))
}

// Assignee is a user a task is assigned to. Upstream sends either a user
// object or a bare user ID.
type Assignee struct {
	ID string `json:"id"`
}

func (a *Assignee) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		a.ID = id
		return nil
	}
	type plain Assignee
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Assignee(p)
	return nil
}

// Task is a Workast task. Subtasks share the same shape.
type Task struct {
	ID          string          `json:"id"`
	Text        string          `json:"text,omitempty"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Done        bool            `json:"done"`
	DueDate     json.RawMessage `json:"dueDate,omitempty"`
	AssignedTo  []Assignee      `json:"assignedTo,omitempty"`
	SubTasks    []Task          `json:"subTasks,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the upstream document so that fields this package
// does not model are returned unchanged.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Task(p)
	t.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the upstream document when the task was decoded from one.
func (t Task) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	type plain Task
	return json.Marshal(plain(t))
}

// Title returns the task text, falling back to its name.
func (t Task) Title() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Name
}

// HasAssignee reports whether userID is among the task's assignees.
func (t Task) HasAssignee(userID string) bool {
	for _, a := range t.AssignedTo {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// Annotation holds the fields a search attaches to a task: where it came from
// and, for expanded subtasks, which task it belongs to.
type Annotation struct {
	SpaceName      string
	ParentTaskID   string
	ParentTaskName string
	IsSubtask      bool
}

// Keys the annotation fields are written under.
const (
	keySpaceName      = "spaceName"
	keyParentTaskID   = "parentTaskId"
	keyParentTaskName = "parentTaskName"
	keyIsSubtask      = "isSubtask"
)

type jsonField struct {
	key   string
	value any
}

// fields returns the annotation fields to write, in output order. Subtasks
// always carry spaceName, empty when the space name is unknown.
func (a Annotation) fields() []jsonField {
	var out []jsonField
	if a.SpaceName != "" || a.IsSubtask {
		out = append(out, jsonField{keySpaceName, a.SpaceName})
	}
	if a.ParentTaskID != "" {
		out = append(out, jsonField{keyParentTaskID, a.ParentTaskID})
	}
	if a.ParentTaskName != "" {
		out = append(out, jsonField{keyParentTaskName, a.ParentTaskName})
	}
	if a.IsSubtask {
		out = append(out, jsonField{keyIsSubtask, true})
	}
	return out
}

// AnnotatedTask is a search result: an unmodified Task plus its Annotation.
// It serializes as the task object, keys in upstream order, followed by the
// annotation fields. An upstream key with an annotation's name is replaced.
type AnnotatedTask struct {
	Task       Task
	Annotation Annotation
}

func (at AnnotatedTask) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(at.Task)
	if err != nil {
		return nil, err
	}
	extra := at.Annotation.fields()
	if len(extra) == 0 {
		return data, nil
	}

	replaced := make(map[string]bool, len(extra))
	for _, f := range extra {
		replaced[f.key] = true
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("task %s is not a JSON object", at.Task.ID)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	sep := func() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", at.Task.ID, err)
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("task %s: %w", at.Task.ID, err)
		}
		if replaced[key] {
			continue
		}
		sep()
		if err := writeField(&buf, key, value); err != nil {
			return nil, err
		}
	}
	for _, f := range extra {
		sep()
		if err := writeField(&buf, f.key, f.value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// SpaceRef is one entry of a resolved search scope. Name is empty when the
// space was given explicitly and not looked up.
type SpaceRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// SearchParams are the inputs of one task search.
type SearchParams struct {
	// Status filter; empty means StatusActive
	Status Status

	// SpaceID restricts the search to one space. Empty searches every
	// space the caller participates in that is not archived.
	SpaceID string

	// Assignee keeps only tasks assigned to this user ID
	Assignee string

	// Query keeps only tasks whose title or description contains it, case-insensitively
	Query string

	// Limit caps the number of results; zero or negative means no cap
	Limit int

	// IncludeSubtasks fetches each task's detail and adds its subtasks.
	// This costs one extra upstream call per task.
	IncludeSubtasks bool
}

// TaskInput holds the fields for creating or updating a task.
// Empty fields are left out of the request.
type TaskInput struct {
	Name        string
	Description string
	DueDate     string // ISO 8601, e.g. 2025-03-01
	Assignee    string // user ID, creation only
}

func (in TaskInput) body() map[string]any {
	body := make(map[string]any)
	if in.Name != "" {
		body["name"] = in.Name
	}
	if in.Description != "" {
		body["description"] = in.Description
	}
	if in.DueDate != "" {
		body["dueDate"] = in.DueDate
	}
	if in.Assignee != "" {
		body["assignedTo"] = []string{in.Assignee}
	}
	return body
}
