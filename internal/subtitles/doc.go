// Package subtitles reads and writes SRT files and regroups transcript cues
// into one subtitle block per detected slide.
package subtitles
