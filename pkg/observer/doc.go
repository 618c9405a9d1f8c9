// Package observer lets library consumers watch workflow execution: the
// engine emits an Event at every workflow and node lifecycle transition, and
// registered observers receive them in order on the executing goroutine.
//
// Observers must be fast and must not block; long-running work belongs on a
// channel the observer drains elsewhere.
package observer
