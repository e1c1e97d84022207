// Package workast_tools registers the Workast MCP tools.
//
// # Available Tools
//
// Spaces:
//   - workast_list_spaces: List every space visible to the token
//   - workast_get_space: Get one space
//   - workast_create_space: Create a space
//
// Tasks:
//   - workast_list_tasks: Search tasks across spaces, optionally including subtasks
//   - workast_get_tasks: Get one or more tasks
//   - workast_create_task: Create a task in a space
//   - workast_create_subtask: Create a subtask under a task
//   - workast_add_comment: Comment on a task
//   - workast_update_task: Change a task's name, description or due date
//   - workast_complete_tasks: Mark one or more tasks done
//   - workast_reopen_tasks: Mark one or more tasks not done
//   - workast_delete_tasks: Delete one or more tasks
//   - workast_assign_task: Assign a user to a task
//   - workast_unassign_task: Remove a user from a task
//
// Users and tags:
//   - workast_list_users: List workspace users
//   - workast_get_me: Get the user owning the token
//   - workast_list_tags: List workspace tags
//   - workast_add_tags_to_task: Attach tags to a task
//
// # Read-only mode
//
// By default only reads and additive writes (create, comment) are registered.
// Tools that change or remove existing data need the server's --yolo flag.
package workast_tools
