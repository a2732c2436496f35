// Package whisperx transcribes lecture audio with WhisperX.
//
// The first audio stream of a recording is extracted to mono 16 kHz WAV with
// ffmpeg and passed to WhisperX through uvx, which writes SRT and JSON
// transcripts into the working directory. Model, device, and VAD settings
// come from the [transcription] configuration section.
package whisperx
