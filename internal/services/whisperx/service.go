package whisperx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "slidecue/internal/language"
	"slidecue/internal/logging"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Service transcribes lecture audio with WhisperX run through uvx.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	commandRunner commandRunner
	logger        *slog.Logger
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary string, logger *slog.Logger) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
		logger:       logging.NewComponentLogger(logger, "whisperx"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner commandRunner) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Result points at the files WhisperX produced.
type Result struct {
	// AudioPath is the extracted WAV file.
	AudioPath string
	// SRTPath is the generated subtitle file.
	SRTPath string
	// JSONPath is the segment-level JSON output.
	JSONPath string
}

// Transcribe extracts the first audio stream of video into workDir and runs
// WhisperX on it. The SRT and JSON outputs are written next to the audio.
func (s *Service) Transcribe(ctx context.Context, video, workDir string) (Result, error) {
	var result Result
	if video == "" {
		return result, fmt.Errorf("transcribe: video path required")
	}
	if workDir == "" {
		return result, fmt.Errorf("transcribe: work directory required")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure work dir: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	result.AudioPath = filepath.Join(workDir, stem+".wav")
	if err := s.ExtractAudio(ctx, video, result.AudioPath); err != nil {
		return result, err
	}

	s.logger.Info("transcribing lecture audio",
		logging.String("model", s.Model()),
		logging.Bool("cuda", s.cfg.CUDAEnabled),
		logging.String("language", langpkg.DisplayName(s.cfg.Language)),
	)
	if err := s.run(ctx, UVXCommand, s.buildArgs(result.AudioPath, workDir)...); err != nil {
		return result, fmt.Errorf("whisperx: %w", err)
	}

	result.SRTPath = filepath.Join(workDir, stem+".srt")
	result.JSONPath = filepath.Join(workDir, stem+".json")
	if _, err := os.Stat(result.SRTPath); err != nil {
		return result, fmt.Errorf("whisperx: expected output %s: %w", result.SRTPath, err)
	}
	return result, nil
}

// ExtractAudio writes the first audio stream of source to dest as mono 16 kHz WAV.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	if err := validateExtract(source, dest); err != nil {
		return err
	}
	if err := s.run(ctx, s.ffmpegBinary, extractAudioArgs(source, dest)...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang := langpkg.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}
