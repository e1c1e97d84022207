// Package batch runs one Workast call per task id and reports the outcome of
// each id, so that tools acting on several tasks survive partial failure.
//
// Ids are accepted as a single string, a comma-separated string or an array.
package batch
