// Package schedule normalizes alarm requests into platform triggers.
//
// Normalize validates a request, moves an elapsed first occurrence into the
// future by whole repeat units and maps the repeat policy onto an absolute,
// interval or calendar-match trigger. Next walks an existing trigger forward.
package schedule
