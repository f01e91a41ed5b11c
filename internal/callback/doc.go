// Package callback suspends video tasks on continuation tokens and resolves
// them when the external transcoder reports back. The token travels to the
// external service split across three capped metadata fields and comes back
// the same way; the bridge reassembles it and routes the event to the one
// pending task it addresses.
package callback
