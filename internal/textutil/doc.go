// Package textutil provides token similarity measures and filename helpers.
//
// Slide text is compared as sets of whitespace-delimited tokens. Both sides
// are lowercased, short tokens and recurring boilerplate words are dropped,
// and the remaining sets are scored either by Jaccard overlap or by a
// token-set Levenshtein ratio.
package textutil
