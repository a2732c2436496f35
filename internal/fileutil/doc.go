// Package fileutil writes output files so readers never observe a partial
// file: content goes to a temp file beside the target and is renamed into
// place once complete.
package fileutil
