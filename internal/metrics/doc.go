// Package metrics exports per-invocation Prometheus metrics as a node
// exporter textfile.
package metrics
