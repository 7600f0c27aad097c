// Package pipeline owns the acquisition state machine: strategy
// order, fallback policy, and failure classification. One Run is one
// logical sequential operation over a single video reference; all
// retry happens inside the strategies, never across states.
package pipeline
