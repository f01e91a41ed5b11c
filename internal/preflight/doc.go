// Package preflight verifies the runtime environment before the daemon
// starts accepting work: storage directories, the transcoder endpoint, and
// the execution database.
package preflight
