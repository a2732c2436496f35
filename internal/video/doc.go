// Package video decodes lecture recordings into frames.
//
// A Reader probes the container once with ffprobe and then streams raw RGBA
// frames from an ffmpeg child process. Frame sequences are Go iterators: they
// are forward-only, start at an arbitrary frame number, and yield every
// Stride-th frame. The child process lives exactly as long as the iteration.
package video
