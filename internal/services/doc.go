// Package services holds the context annotation helpers shared by the
// acquisition strategies and their tool clients.
//
// The helpers stamp request IDs, pipeline stage names, strategy names,
// and video identifiers onto contexts so logging can tag every line
// with the run it belongs to without threading those values through
// call signatures.
package services
