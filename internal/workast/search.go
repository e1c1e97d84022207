package workast

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/workast-mcp/internal/instrumentation"
	"github.com/teemow/workast-mcp/internal/logging"
)

// TaskAPI is the part of the Workast API a task search reads from.
// *Client implements it.
type TaskAPI interface {
	CheckCredentials() error
	ListSpaces(ctx context.Context) ([]Space, error)
	ListTasks(ctx context.Context, spaceID string, status Status) ([]Task, error)
	GetTask(ctx context.Context, taskID string) (*Task, error)
}

// Searcher aggregates and filters tasks across spaces.
// It holds no per-search state and is safe for concurrent use.
type Searcher struct {
	api         TaskAPI
	concurrency int
	logger      logging.Logger
	metrics     *instrumentation.Metrics
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithConcurrency bounds the number of upstream reads in flight during
// fan-out and expansion. Values below 1 mean sequential.
func WithConcurrency(n int) SearcherOption {
	return func(s *Searcher) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// WithLogger sets the logger used for skipped spaces and tasks.
func WithLogger(logger logging.Logger) SearcherOption {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSearchMetrics records skipped units and result sizes on m.
func WithSearchMetrics(m *instrumentation.Metrics) SearcherOption {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// NewSearcher creates a Searcher reading from api.
func NewSearcher(api TaskAPI, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		api:         api,
		concurrency: DefaultConcurrency,
		logger:      logging.Component(nil, "search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the full pipeline: scope, fan-out, optional subtask expansion
// and filtering. It fails only when no token is configured or when the scope
// cannot be resolved. Spaces and tasks whose reads fail are left out of the
// result. When ctx ends mid-search, the tasks collected so far are filtered
// and returned; units that were never read are treated as skipped.
func (s *Searcher) Search(ctx context.Context, params SearchParams) ([]AnnotatedTask, error) {
	if err := s.api.CheckCredentials(); err != nil {
		return nil, err
	}

	status, err := ParseStatus(string(params.Status))
	if err != nil {
		return nil, err
	}

	scope, err := s.ResolveScope(ctx, params.SpaceID)
	if err != nil {
		return nil, err
	}

	tasks := s.FetchTasks(ctx, scope, status)
	if params.IncludeSubtasks {
		tasks = s.ExpandSubtasks(ctx, tasks)
	}
	if err := ctx.Err(); err != nil {
		s.logger.Warn("task search cut short, returning partial result",
			logging.Err(err), "collected", len(tasks))
		s.metrics.RecordSearchTruncated(ctx)
	}

	result := FilterTasks(tasks, params.Assignee, params.Query, params.Limit)
	s.metrics.RecordSearchResults(ctx, len(result))
	return result, nil
}

// ResolveScope returns the spaces to search. An explicit spaceID is used as
// is, without a name lookup. Otherwise every space the caller participates in
// that is not archived is returned, in upstream order.
func (s *Searcher) ResolveScope(ctx context.Context, spaceID string) ([]SpaceRef, error) {
	if spaceID != "" {
		return []SpaceRef{{ID: spaceID}}, nil
	}

	ctx, span := instrumentation.StartSearchStageSpan(ctx, instrumentation.StageScope)
	defer span.End()

	spaces, err := s.api.ListSpaces(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to resolve search scope: %w", err)
	}

	scope := make([]SpaceRef, 0, len(spaces))
	for _, sp := range spaces {
		if sp.IsParticipant && !sp.IsArchived {
			scope = append(scope, SpaceRef{ID: sp.ID, Name: sp.Name})
		}
	}
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrCount, len(scope)))
	return scope, nil
}

// FetchTasks lists the tasks of every space in scope and tags each with its
// space name. A space whose listing fails contributes nothing. The result is
// ordered by scope, then by upstream order within a space.
func (s *Searcher) FetchTasks(ctx context.Context, scope []SpaceRef, status Status) []AnnotatedTask {
	ctx, span := instrumentation.StartSearchStageSpan(ctx, instrumentation.StageFanout)
	defer span.End()

	tasks := collect(ctx, len(scope), s.concurrency, func(ctx context.Context, i int) []AnnotatedTask {
		ref := scope[i]
		listed, err := s.api.ListTasks(ctx, ref.ID, status)
		if err != nil {
			s.skip(ctx, instrumentation.StageFanout, "skipping space", logging.Space(ref.ID), logging.Err(err))
			return nil
		}

		out := make([]AnnotatedTask, len(listed))
		for j, t := range listed {
			out[j] = AnnotatedTask{Task: t, Annotation: Annotation{SpaceName: ref.Name}}
		}
		return out
	})

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrCount, len(tasks)))
	return tasks
}

// ExpandSubtasks reads the detail of every task in tasks and appends their
// subtasks after all of the input, in parent order then subtask order.
// Appended subtasks are not expanded again. A task whose detail read fails
// contributes no subtasks. The input slice is not modified.
func (s *Searcher) ExpandSubtasks(ctx context.Context, tasks []AnnotatedTask) []AnnotatedTask {
	ctx, span := instrumentation.StartSearchStageSpan(ctx, instrumentation.StageExpand)
	defer span.End()

	parents := tasks[:len(tasks):len(tasks)]

	subtasks := collect(ctx, len(parents), s.concurrency, func(ctx context.Context, i int) []AnnotatedTask {
		parent := parents[i]
		detail, err := s.api.GetTask(ctx, parent.Task.ID)
		if err != nil {
			s.skip(ctx, instrumentation.StageExpand, "skipping subtasks", logging.Task(parent.Task.ID), logging.Err(err))
			return nil
		}
		if len(detail.SubTasks) == 0 {
			return nil
		}

		out := make([]AnnotatedTask, len(detail.SubTasks))
		for j, st := range detail.SubTasks {
			out[j] = AnnotatedTask{
				Task: st,
				Annotation: Annotation{
					SpaceName:      parent.Annotation.SpaceName,
					ParentTaskID:   parent.Task.ID,
					ParentTaskName: parent.Task.Title(),
					IsSubtask:      true,
				},
			}
		}
		return out
	})

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrCount, len(subtasks)))
	return append(parents, subtasks...)
}

// FilterTasks keeps the tasks assigned to assignee whose title or description
// contains query (case-insensitive), then truncates to limit. Empty filters
// and a limit of zero or less are not applied. Relative order is preserved.
func FilterTasks(tasks []AnnotatedTask, assignee, query string, limit int) []AnnotatedTask {
	q := strings.ToLower(query)

	out := make([]AnnotatedTask, 0, len(tasks))
	for _, t := range tasks {
		if assignee != "" && !t.Task.HasAssignee(assignee) {
			continue
		}
		if q != "" && !matchesQuery(t.Task, q) {
			continue
		}
		out = append(out, t)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// matchesQuery expects q already lower-cased.
func matchesQuery(t Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title()), q) {
		return true
	}
	return t.Description != "" && strings.Contains(strings.ToLower(t.Description), q)
}

func (s *Searcher) skip(ctx context.Context, stage, msg string, args ...any) {
	s.logger.Warn(msg, append(args, logging.Stage(stage))...)
	s.metrics.RecordSearchSkip(ctx, stage)
}

// collect calls fn for every index in [0, n) with at most limit calls in
// flight and concatenates the results in index order. Each call writes only
// its own slot, so no locking is needed. Calls are not started once ctx is
// done; their slots stay empty.
func collect[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) []T) []T {
	if limit < 1 {
		limit = 1
	}
	slots := make([][]T, n)

	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	var out []T
	for _, slot := range slots {
		out = append(out, slot...)
	}
	return out
}
