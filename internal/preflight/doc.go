// Package preflight provides readiness checks for the tools and filesystem
// paths slidecue depends on.
//
// The pipeline calls RunAll before processing a job so a missing directory or
// OCR language pack fails fast instead of after a long decode. The CLI
// "slidecue deps" command uses CheckSystemDeps to display tool health.
package preflight
