package subtitles

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Cue is one subtitle entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Parse reads SRT content. Blocks without a timing line or text are skipped.
// Multi-line text is joined with single spaces. The result is sorted by start.
func Parse(r io.Reader) ([]Cue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var cues []Cue
	var block []string
	flush := func() error {
		defer func() { block = block[:0] }()
		cue, ok, err := parseBlock(block)
		if err != nil {
			return err
		}
		if ok {
			cues = append(cues, cue)
		}
		return nil
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan srt: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(cues, func(a, b Cue) int { return cmp.Compare(a.Start, b.Start) })
	return cues, nil
}

func parseBlock(lines []string) (Cue, bool, error) {
	timing := -1
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			timing = i
			break
		}
	}
	if timing < 0 || timing+1 >= len(lines) {
		return Cue{}, false, nil
	}

	parts := strings.SplitN(lines[timing], "-->", 2)
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return Cue{}, false, err
	}
	endFields := strings.Fields(parts[1])
	if len(endFields) == 0 {
		return Cue{}, false, fmt.Errorf("missing end timestamp in %q", lines[timing])
	}
	end, err := ParseTimestamp(endFields[0])
	if err != nil {
		return Cue{}, false, err
	}

	var cue Cue
	if timing > 0 {
		cue.Index, _ = strconv.Atoi(strings.TrimSpace(lines[timing-1]))
	}
	cue.Start, cue.End = start, end
	texts := make([]string, 0, len(lines)-timing-1)
	for _, line := range lines[timing+1:] {
		if t := strings.TrimSpace(line); t != "" {
			texts = append(texts, t)
		}
	}
	cue.Text = strings.Join(texts, " ")
	if cue.Text == "" {
		return Cue{}, false, nil
	}
	return cue, true, nil
}

// ParseTimestamp parses HH:MM:SS,mmm. A period is accepted in place of the comma.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil || hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// FormatTimestamp renders d as HH:MM:SS,mmm, truncating to milliseconds.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Format writes cues as SRT, numbering them from 1 in order.
func Format(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for i, cue := range cues {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n", i+1, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// Validate reports format issues of a parsed cue list. An empty slice means
// the cues look usable. videoDuration may be zero when unknown.
func Validate(cues []Cue, videoDuration time.Duration) []string {
	if len(cues) == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	var last time.Duration
	for _, cue := range cues {
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("negative_duration: cue %d", cue.Index))
		}
		last = max(last, cue.End)
	}
	if last == 0 {
		issues = append(issues, "no_valid_timestamps")
	}
	if videoDuration > 0 && last > videoDuration+2*time.Second {
		issues = append(issues, fmt.Sprintf("duration_mismatch: delta=%.1fs", (last-videoDuration).Seconds()))
	}
	return issues
}
