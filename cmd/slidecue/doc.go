// Package main hosts the slidecue CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration and logging once, then hands
// off to the internal packages: detect runs the slide detector alone, process
// and batch drive the full pipeline, runs reads the history database, and
// deps and config cover setup. Heavy lifting stays in internal/; commands only
// parse flags and render results.
package main
