// Package videoref turns user-supplied URLs into resolved video
// references. Resolve extracts the immutable video identifier from the
// known URL forms; MetadataClient decorates references with a
// best-effort title and channel name from the public oEmbed endpoint.
package videoref
