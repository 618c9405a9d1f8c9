// Package file implements the file nodes: read-file, write-file, copy-file,
// move-file and delete-file. All of them retry on transient filesystem
// errors and report hard failures through the error action.
//
// These nodes can touch any path the process can reach; do not expose them
// to untrusted input without validation.
package file
