// Package services provides shared infrastructure for workflow components:
// the error taxonomy used to classify task and execution failures, and
// context annotations that flow execution identity into structured logs.
package services
