// Package debugviz renders detector progress to annotated PNG files for
// tuning thresholds against real recordings.
package debugviz
