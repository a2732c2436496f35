package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// DefaultTesseractBinary is the tesseract executable looked up on PATH.
	DefaultTesseractBinary = "tesseract"
	// DefaultPageSegMode treats the frame as sparse text in no particular order.
	DefaultPageSegMode = 11
	// DefaultEngineMode lets tesseract pick the LSTM or legacy engine.
	DefaultEngineMode = 3

	tsvWordLevel = 5
	tsvColumns   = 12
)

type commandRunner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// TesseractConfig configures the tesseract CLI engine.
type TesseractConfig struct {
	Binary      string
	Language    string
	PageSegMode int
	// EngineMode is the --oem value; nil selects DefaultEngineMode so that
	// 0 (legacy engine) stays selectable.
	EngineMode *int
}

// Tesseract recognizes words by piping PNG frames through the tesseract CLI.
type Tesseract struct {
	cfg TesseractConfig
	oem int
	run commandRunner
}

// NewTesseract returns a tesseract engine; zero or nil fields fall back to
// defaults.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultTesseractBinary
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = DefaultPageSegMode
	}
	oem := DefaultEngineMode
	if cfg.EngineMode != nil {
		oem = *cfg.EngineMode
	}
	return &Tesseract{cfg: cfg, oem: oem, run: defaultCommandRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Tesseract) WithCommandRunner(r commandRunner) {
	if r != nil {
		t.run = r
	}
}

// Recognize implements Engine.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Word, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed)); err != nil {
		return nil, fmt.Errorf("tesseract: encode frame: %w", err)
	}
	out, err := t.run(ctx, buf.Bytes(), t.cfg.Binary, t.args()...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	return ParseTSV(out)
}

func (t *Tesseract) args() []string {
	args := []string{"stdin", "stdout"}
	if lang := strings.TrimSpace(t.cfg.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	return append(args,
		"--psm", strconv.Itoa(t.cfg.PageSegMode),
		"--oem", strconv.Itoa(t.oem),
		"tsv",
	)
}

// ParseTSV converts tesseract TSV output into word records. Rows above word
// level and rows with negative confidence are skipped.
func ParseTSV(data []byte) ([]Word, error) {
	var words []Word
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	header := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if header {
			header = false
			if strings.HasPrefix(line, "level") {
				continue
			}
		}
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", tsvColumns)
		if len(fields) < tsvColumns-1 {
			return nil, fmt.Errorf("tesseract tsv: expected %d columns, got %d", tsvColumns, len(fields))
		}
		level, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("tesseract tsv: level %q: %w", fields[0], err)
		}
		if level != tsvWordLevel {
			continue
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(fields[10]), 64)
		if err != nil {
			return nil, fmt.Errorf("tesseract tsv: conf %q: %w", fields[10], err)
		}
		if conf < 0 {
			continue
		}
		text := ""
		if len(fields) == tsvColumns {
			text = strings.TrimSpace(fields[11])
		}
		if text == "" {
			continue
		}
		box := make([]int, 4)
		for i := range box {
			if box[i], err = strconv.Atoi(fields[6+i]); err != nil {
				return nil, fmt.Errorf("tesseract tsv: box %q: %w", fields[6+i], err)
			}
		}
		words = append(words, Word{
			Text:       text,
			Confidence: conf,
			Left:       box[0],
			Top:        box[1],
			Width:      box[2],
			Height:     box[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tesseract tsv: %w", err)
	}
	return words, nil
}

func defaultCommandRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
