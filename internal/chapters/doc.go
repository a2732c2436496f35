// Package chapters turns detected slide starts into video chapter markers.
//
// Build converts slide start times into contiguous chapters titled by slide
// number, WriteMetadata renders them as an FFMETADATA1 document, and Embedder
// muxes that document into a stream-copied output with ffmpeg.
package chapters
