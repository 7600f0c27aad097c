// Package captions implements the subtitle acquisition strategy:
// discover the caption tracks a watch page advertises, pick the best
// track for the configured language preferences, and reduce its
// payload to plain transcript text. It never downloads audio or video.
package captions
