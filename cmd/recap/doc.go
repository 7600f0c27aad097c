// Package main hosts the recap CLI entrypoint and command graph.
//
// The Cobra-based command tree wires the acquisition pipeline together
// from configuration: URL resolution, caption fetching, multi-client
// audio download, the conversion-API fallback, local transcription,
// and the external summarizer. It centralizes configuration resolution
// and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main
