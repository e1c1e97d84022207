// Package resources provides read-only MCP resources that give a client
// context about the Workast account behind the API token:
//   - workast://me: the user the token belongs to
//   - workast://spaces: the spaces task searches cover by default
package resources
