// Package workast provides a client for the Workast task-management REST API
// and the task search pipeline built on top of it.
//
// The Client is a thin JSON-over-HTTP wrapper: every request carries the API
// token as a bearer credential, non-2xx responses become *APIError values, and
// responses are returned verbatim (unknown upstream fields survive a decode and
// re-encode).
//
// # Task search
//
// Searcher implements the "list tasks" operation as four forward-only stages:
//
//   - ResolveScope: one explicit space, or every space the caller participates
//     in that is not archived
//   - FetchTasks: one task listing per space, annotated with the space name
//   - ExpandSubtasks (opt-in): one task detail read per fetched task, with
//     subtasks flattened into the result exactly one level deep
//   - FilterTasks: assignee and free-text filters, then the result cap
//
// Scope resolution errors are fatal. A space or task whose read fails is
// skipped and logged; the remaining results are still returned. Fan-out and
// expansion run on a bounded worker pool but always merge in input order.
//
// # Example Usage
//
//	client, err := workast.NewClient(cfg)
//	if err != nil {
//	    return err
//	}
//	searcher := workast.NewSearcher(client, workast.WithConcurrency(cfg.Concurrency))
//	tasks, err := searcher.Search(ctx, workast.SearchParams{
//	    Status: workast.StatusActive,
//	    Query:  "invoice",
//	    Limit:  25,
//	})
package workast
