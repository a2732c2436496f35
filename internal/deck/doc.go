// Package deck loads a lecture slide PDF into rendered page images, their
// perceptual hashes, and whitespace-delimited text tokens.
//
// Rendering and text extraction use MuPDF through go-fitz. A Deck is built
// once per detection run and never modified afterwards.
package deck
