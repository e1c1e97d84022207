package instrumentation

import "testing"

func TestNormalizeAPIPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "unknown"},
		{"/list", "/list"},
		{"/list/abc123", "/list/{id}"},
		{"/list/abc123/task", "/list/{id}/task"},
		{"/list/abc123/task?done=true", "/list/{id}/task"},
		{"/task/t-9", "/task/{id}"},
		{"/task/t-9/assigned", "/task/{id}/assigned"},
		{"/task/t-9/subtask", "/task/{id}/subtask"},
		{"/user", "/user"},
		{"/user/me", "/user/me"},
		{"/tag", "/tag"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NormalizeAPIPath(tt.path); got != tt.want {
				t.Errorf("NormalizeAPIPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
