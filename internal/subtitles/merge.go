package subtitles

import (
	"slices"
	"strings"
	"time"
)

// MergeBySlides regroups cues into one block per slide. Block i spans from
// starts[i] to starts[i+1], and the last block ends at the latest cue end.
// A block holds the text of every cue starting inside it. Blocks that are
// empty in time or text are dropped and the rest are renumbered from 1.
func MergeBySlides(cues []Cue, starts []time.Duration) []Cue {
	if len(cues) == 0 || len(starts) == 0 {
		return nil
	}
	sorted := slices.Clone(starts)
	slices.Sort(sorted)

	var videoEnd time.Duration
	for _, cue := range cues {
		videoEnd = max(videoEnd, cue.End)
	}

	var merged []Cue
	for i, start := range sorted {
		end := videoEnd
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		if end <= start {
			continue
		}
		var texts []string
		for _, cue := range cues {
			if cue.Start >= start && cue.Start < end {
				if t := strings.TrimSpace(cue.Text); t != "" {
					texts = append(texts, t)
				}
			}
		}
		if len(texts) == 0 {
			continue
		}
		merged = append(merged, Cue{
			Index: len(merged) + 1,
			Start: start,
			End:   end,
			Text:  strings.Join(texts, " "),
		})
	}
	return merged
}
