package whisperx

import "slidecue/internal/config"

// Config captures runtime settings for WhisperX transcription.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3").
	Model string
	// Language is the spoken language; empty lets WhisperX detect it.
	Language string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken string
}

// ConfigFromSettings maps the [transcription] section onto a Config.
func ConfigFromSettings(cfg *config.Config) Config {
	t := cfg.Transcription
	return Config{
		Model:       t.Model,
		Language:    t.Language,
		CUDAEnabled: t.CUDAEnabled,
		VADMethod:   t.VADMethod,
		HFToken:     t.HFToken,
	}
}

// WhisperX invocation constants tuned for single-speaker lecture audio.
const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "8"
	ChunkSize         = "30"
	VADOnset          = "0.5"
	VADOffset         = "0.363"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "all"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "int8"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)
