package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"iter"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"slidecue/internal/logging"
	"slidecue/internal/media/ffprobe"
)

var (
	// ErrStreamMetadata reports a container without a usable video stream,
	// frame rate, or time base. It is not retryable.
	ErrStreamMetadata = errors.New("video stream metadata unavailable")
	// ErrShortFrame reports a truncated final frame from the decoder.
	ErrShortFrame = errors.New("truncated video frame")
)

const (
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	bytesPerPixel        = 4
	stderrLimit          = 4096
)

// Options configures external tool lookup.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	Logger        *slog.Logger
}

// Info describes the probed video stream.
type Info struct {
	Path       string
	Width      int
	Height     int
	FrameRate  float64
	TimeBase   string
	Duration   time.Duration
	FrameCount int64
	HasAudio   bool
}

// Frame is one decoded image with its position in the stream.
type Frame struct {
	Image     *image.RGBA
	Number    int64
	Timestamp time.Duration
}

// ReadOptions selects the frames a sequence yields.
type ReadOptions struct {
	// Start is the first frame number to decode.
	Start int64
	// Stride yields every Stride-th decoded frame starting at Start.
	Stride int
}

// Reader decodes frames from a probed video file.
type Reader struct {
	info   Info
	ffmpeg string
	logger *slog.Logger
}

// Open probes path and returns a Reader. It fails with ErrStreamMetadata when
// the file has no decodable video stream metadata.
func Open(ctx context.Context, path string, opts Options) (*Reader, error) {
	probeBinary := strings.TrimSpace(opts.FFprobeBinary)
	if probeBinary == "" {
		probeBinary = defaultFFprobeBinary
	}
	result, err := ffprobe.Inspect(ctx, probeBinary, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStreamMetadata, path, err)
	}
	info, err := infoFromProbe(path, result)
	if err != nil {
		return nil, err
	}

	ffmpegBinary := strings.TrimSpace(opts.FFmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = defaultFFmpegBinary
	}
	return &Reader{
		info:   info,
		ffmpeg: ffmpegBinary,
		logger: logging.NewComponentLogger(opts.Logger, "video"),
	}, nil
}

func infoFromProbe(path string, result ffprobe.Result) (Info, error) {
	stream, ok := result.VideoStream()
	if !ok {
		return Info{}, fmt.Errorf("%w: %s: no video stream", ErrStreamMetadata, path)
	}
	fps, ok := stream.FrameRate()
	if !ok {
		return Info{}, fmt.Errorf("%w: %s: missing average frame rate %q", ErrStreamMetadata, path, stream.AvgFrameRate)
	}
	if !stream.HasTimeBase() {
		return Info{}, fmt.Errorf("%w: %s: missing time base", ErrStreamMetadata, path)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return Info{}, fmt.Errorf("%w: %s: invalid dimensions %dx%d", ErrStreamMetadata, path, stream.Width, stream.Height)
	}

	seconds := result.DurationSeconds()
	if seconds <= 0 || math.IsNaN(seconds) {
		seconds, _ = ffprobe.ParseRational(stream.Duration)
	}
	return Info{
		Path:       path,
		Width:      stream.Width,
		Height:     stream.Height,
		FrameRate:  fps,
		TimeBase:   stream.TimeBase,
		Duration:   time.Duration(seconds * float64(time.Second)),
		FrameCount: stream.FrameCount(),
		HasAudio:   result.AudioStreamCount() > 0,
	}, nil
}

// Info returns the probed stream description.
func (r *Reader) Info() Info {
	return r.info
}

// Timestamp converts a frame number to its presentation time.
func (r *Reader) Timestamp(frame int64) time.Duration {
	return FrameTime(frame, r.info.FrameRate)
}

// FrameTime converts a frame number to a duration at the given rate.
func FrameTime(frame int64, fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(frame) / fps * float64(time.Second))
}

// Frames returns a forward-only, single-use sequence of decoded frames. The
// decoder process is started on first iteration and always released when the
// sequence ends, fails, or the consumer stops early.
func (r *Reader) Frames(ctx context.Context, opts ReadOptions) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		if opts.Stride < 1 {
			yield(Frame{}, fmt.Errorf("video frames: stride must be >= 1, got %d", opts.Stride))
			return
		}
		if opts.Start < 0 {
			yield(Frame{}, fmt.Errorf("video frames: start must be >= 0, got %d", opts.Start))
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		args := r.decodeArgs(opts)
		cmd := exec.CommandContext(runCtx, r.ffmpeg, args...)
		cmd.WaitDelay = 2 * time.Second
		stderr := &limitedBuffer{limit: stderrLimit}
		cmd.Stderr = stderr
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(Frame{}, fmt.Errorf("video frames: stdout pipe: %w", err))
			return
		}
		r.logger.Debug("starting decoder",
			logging.String("path", r.info.Path),
			logging.Int64("start", opts.Start),
			logging.Int("stride", opts.Stride),
		)
		if err := cmd.Start(); err != nil {
			yield(Frame{}, fmt.Errorf("video frames: start %s: %w", r.ffmpeg, err))
			return
		}

		stopped := false
		defer func() {
			if stopped {
				cancel()
			}
			waitErr := cmd.Wait()
			if stopped || runCtx.Err() != nil {
				return
			}
			if waitErr != nil {
				yield(Frame{}, fmt.Errorf("video frames: %s: %w: %s", r.ffmpeg, waitErr, strings.TrimSpace(stderr.String())))
			}
		}()

		frameSize := r.info.Width * r.info.Height * bytesPerPixel
		number := opts.Start
		for {
			if err := ctx.Err(); err != nil {
				stopped = true
				yield(Frame{}, err)
				return
			}
			buf := make([]byte, frameSize)
			_, err := io.ReadFull(stdout, buf)
			if errors.Is(err, io.EOF) {
				return
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				stopped = true
				yield(Frame{}, fmt.Errorf("%w: frame %d", ErrShortFrame, number))
				return
			}
			if err != nil {
				stopped = true
				yield(Frame{}, fmt.Errorf("video frames: read: %w", err))
				return
			}
			frame := Frame{
				Image: &image.RGBA{
					Pix:    buf,
					Stride: r.info.Width * bytesPerPixel,
					Rect:   image.Rect(0, 0, r.info.Width, r.info.Height),
				},
				Number:    number,
				Timestamp: r.Timestamp(number),
			}
			if !yield(frame, nil) {
				stopped = true
				return
			}
			number += int64(opts.Stride)
		}
	}
}

// decodeArgs builds the ffmpeg invocation. Input-side -ss seeks to the
// keyframe before the target and decodes forward, dropping earlier frames.
// The seek lands half a frame early so rounding never drops frame Start.
// Frames are emitted in coded orientation to match the probed dimensions.
func (r *Reader) decodeArgs(opts ReadOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if opts.Start > 0 {
		seconds := (float64(opts.Start) - 0.5) / r.info.FrameRate
		args = append(args, "-ss", strconv.FormatFloat(seconds, 'f', 6, 64))
	}
	args = append(args, "-noautorotate", "-i", r.info.Path, "-map", "0:v:0", "-an", "-sn")
	if opts.Stride > 1 {
		args = append(args, "-vf", fmt.Sprintf(`select=not(mod(n\,%d))`, opts.Stride))
	}
	return append(args, "-fps_mode", "passthrough", "-f", "rawvideo", "-pix_fmt", "rgba", "pipe:1")
}

type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
