package whisperx

import "fmt"

// extractAudioArgs builds the ffmpeg arguments that write the first audio
// stream of source as mono 16 kHz PCM WAV, the input format WhisperX expects.
func extractAudioArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

func validateExtract(source, dest string) error {
	if source == "" {
		return fmt.Errorf("extract audio: source path required")
	}
	if dest == "" {
		return fmt.Errorf("extract audio: destination path required")
	}
	return nil
}
