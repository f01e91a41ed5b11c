// Package executions persists the workflow execution ledger in SQLite. The
// schema enforces at most one running execution per asset, which is what
// makes repeated intake triggers for the same asset idempotent.
package executions
