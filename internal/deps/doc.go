// Package deps resolves the external command-line tools slidecue shells out
// to and reports their availability and version.
package deps
