// Package acquire defines the shared vocabulary of the transcript
// acquisition pipeline: the resolved video reference, the transcript
// and audio artifacts strategies produce, the per-attempt journal
// entries, and the error taxonomy every strategy classifies its
// failures into.
//
// Strategies wrap failures with the sentinel markers in this package
// so the orchestrator can steer on errors.Is instead of string
// matching. Classify turns any pipeline error into the user-facing
// reason (code, explanation, remediation) surfaced by the CLI.
package acquire
