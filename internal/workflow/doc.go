// Package workflow orchestrates one execution per asset: resolve partner
// entitlements, fan out the partner branches, enforce the execution
// deadline, and aggregate the branch results into the final report.
package workflow
