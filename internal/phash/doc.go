// Package phash computes perceptual hashes and answers nearest-page queries.
//
// Visually similar images have hashes a small Hamming distance apart, which
// tolerates re-encoding, projector lighting, and small camera angle changes
// between a rendered PDF page and a filmed slide.
package phash
