package workast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"", StatusActive, false},
		{"active", StatusActive, false},
		{"DONE", StatusDone, false},
		{" all ", StatusAll, false},
		{"open", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_DoneParam(t *testing.T) {
	assert.Equal(t, "", StatusActive.doneParam())
	assert.Equal(t, "true", StatusDone.doneParam())
	assert.Equal(t, "all", StatusAll.doneParam())
}

func TestTask_UnmarshalAssignees(t *testing.T) {
	var task Task
	err := json.Unmarshal([]byte(`{
		"id": "t1",
		"text": "Review",
		"assignedTo": [{"id": "u1", "name": "Ada"}, "u2"],
		"dueDate": null
	}`), &task)
	require.NoError(t, err)

	assert.True(t, task.HasAssignee("u1"))
	assert.True(t, task.HasAssignee("u2"))
	assert.False(t, task.HasAssignee("u3"))
}

func TestTask_Title(t *testing.T) {
	assert.Equal(t, "text", Task{Text: "text", Name: "name"}.Title())
	assert.Equal(t, "name", Task{Name: "name"}.Title())
	assert.Equal(t, "", Task{}.Title())
}

func TestTask_MarshalWithoutSource(t *testing.T) {
	data, err := json.Marshal(Task{ID: "t1", Text: "Hand-built"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1","text":"Hand-built","done":false}`, string(data))
}

func TestAnnotatedTask_Marshal(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s1","name":"Sub","custom":{"a":1}}`), &task))

	t.Run("without annotation the task is returned verbatim", func(t *testing.T) {
		data, err := json.Marshal(AnnotatedTask{Task: task})
		require.NoError(t, err)
		assert.Equal(t, `{"id":"s1","name":"Sub","custom":{"a":1}}`, string(data))
	})

	t.Run("annotation fields are added", func(t *testing.T) {
		data, err := json.Marshal(AnnotatedTask{
			Task: task,
			Annotation: Annotation{
				SpaceName:      "Ops",
				ParentTaskID:   "p1",
				ParentTaskName: "Parent",
				IsSubtask:      true,
			},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"id":"s1","name":"Sub","custom":{"a":1},
			"spaceName":"Ops","parentTaskId":"p1","parentTaskName":"Parent","isSubtask":true
		}`, string(data))
	})

	t.Run("upstream key order is kept", func(t *testing.T) {
		var unordered Task
		require.NoError(t, json.Unmarshal([]byte(`{"text":"b","id":"t1","done":false,"assignedTo":["u1"]}`), &unordered))

		data, err := json.Marshal(AnnotatedTask{Task: unordered, Annotation: Annotation{SpaceName: "Ops"}})
		require.NoError(t, err)
		assert.Equal(t, `{"text":"b","id":"t1","done":false,"assignedTo":["u1"],"spaceName":"Ops"}`, string(data))
	})

	t.Run("subtask without space name carries an empty spaceName", func(t *testing.T) {
		data, err := json.Marshal(AnnotatedTask{
			Task:       task,
			Annotation: Annotation{ParentTaskID: "p1", ParentTaskName: "Parent", IsSubtask: true},
		})
		require.NoError(t, err)
		assert.Equal(t,
			`{"id":"s1","name":"Sub","custom":{"a":1},"spaceName":"","parentTaskId":"p1","parentTaskName":"Parent","isSubtask":true}`,
			string(data))
	})

	t.Run("upstream field with an annotation name is replaced", func(t *testing.T) {
		var clash Task
		require.NoError(t, json.Unmarshal([]byte(`{"id":"t2","spaceName":"stale","text":"x"}`), &clash))

		data, err := json.Marshal(AnnotatedTask{Task: clash, Annotation: Annotation{SpaceName: "Ops"}})
		require.NoError(t, err)
		assert.Equal(t, `{"id":"t2","text":"x","spaceName":"Ops"}`, string(data))
	})

	t.Run("underlying task is not mutated", func(t *testing.T) {
		at := AnnotatedTask{Task: task, Annotation: Annotation{SpaceName: "Ops"}}
		_, err := json.Marshal(at)
		require.NoError(t, err)

		data, err := json.Marshal(task)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "spaceName")
	})
}

func TestTaskInput_Body(t *testing.T) {
	assert.Empty(t, TaskInput{}.body())
	assert.Equal(t, map[string]any{
		"name":        "Ship",
		"description": "Soon",
		"dueDate":     "2025-03-01",
		"assignedTo":  []string{"u1"},
	}, TaskInput{Name: "Ship", Description: "Soon", DueDate: "2025-03-01", Assignee: "u1"}.body())
}
