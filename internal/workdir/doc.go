// Package workdir manages the shared working directory where audio
// artifacts land. Filenames are keyed by video ID so concurrent
// requests never collide on paths, a per-video lock file serializes
// requests for the same video, and a stale sweep reclaims artifacts
// left behind by crashed runs.
package workdir
