// Package pipeline turns a lecture recording and its slide deck into
// slide-aligned subtitles.
//
// A job locks its output stem, resolves its inputs (paths or uploaded
// streams), detects slide transitions, transcribes the audio with WhisperX
// unless an SRT file is supplied, merges the cues into one block per slide,
// and optionally writes a chaptered copy of the video. Every job is recorded
// in the run store and feeds the metrics textfile. RunBatch processes a
// manifest of jobs and keeps going when one of them fails.
package pipeline
