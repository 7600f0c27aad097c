// Package preflight provides readiness checks for the external tools
// and filesystem paths the acquisition pipeline depends on.
//
// The CLI "recap status" command renders every check so a user can see
// in one table why a run would fail before spending minutes on
// downloads and transcription.
package preflight
