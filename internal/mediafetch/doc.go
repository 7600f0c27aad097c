// Package mediafetch acquires a video's audio track by iterating an
// ordered cross product of client profiles and user agents through the
// downloader tool, with a generic library-based fallback once the
// identity list is exhausted.
package mediafetch
