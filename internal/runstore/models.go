package runstore

import "time"

// Status is the lifecycle state of a detection run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusRejected marks runs whose inputs could not be processed, such as
	// an unreadable video or a recording without the title slide.
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether the run has finished.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// Run is one processed lecture recording.
type Run struct {
	ID            string
	VideoPath     string
	DeckPath      string
	Status        Status
	ErrorMessage  string
	AnchorFrame   int64
	FrameRate     float64
	PageCount     int
	ScannedFrames int64
	OCRCalls      int
	SubtitlePath  string
	MergedPath    string
	ChaptersPath  string
	CreatedAt     time.Time
	FinishedAt    time.Time
	Transitions   []Transition
}

// Transition is a persisted slide start.
type Transition struct {
	Ordinal     int
	SlideNumber int
	FrameNumber int64
	Timestamp   time.Duration
	Distance    int
	Similarity  float64
	Reason      string
}

// Elapsed reports how long a finished run took.
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() || r.CreatedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.CreatedAt)
}
