package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Faultbox/panobake/internal/journal"
	"github.com/Faultbox/panobake/pkg/orient"
)

// Outcome is what happened to one frame the run selected.
type Outcome struct {
	ID    string
	Index int // position in the collection

	// Status is one of the journal statuses: baked, planned or failed.
	Status string
	Reason Reason
	Err    error

	// Angles are the calibrated engine angles, nil when the basis could not
	// be built.
	Angles *orient.Angles
	Gimbal bool

	// Output is the processed image path as stored in the collection.
	Output   string
	Duration time.Duration
}

// Failed reports whether the frame failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Skip is a frame the run did not select.
type Skip struct {
	ID     string
	Index  int
	Reason Reason
}

// Summary is the per-frame result of a run.
type Summary struct {
	RunID  uuid.UUID
	DryRun bool

	// Backup is the path of the pre-run copy, empty when none was needed.
	Backup string
	// Output is the collection path written, empty for dry runs.
	Output string

	// Frames holds the selected frames in collection order.
	Frames []Outcome
	// Skipped lists frames already baked or beyond the limit, in
	// collection order.
	Skipped []Skip

	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded lists the ids of frames baked (or planned, in a dry run).
func (s *Summary) Succeeded() []string {
	var ids []string
	for _, o := range s.Frames {
		if !o.Failed() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Failed returns the failed frames.
func (s *Summary) Failed() []Outcome {
	var out []Outcome
	for _, o := range s.Frames {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// SkippedIDs lists the ids of skipped frames.
func (s *Summary) SkippedIDs() []string {
	var ids []string
	for _, sk := range s.Skipped {
		ids = append(ids, sk.ID)
	}
	return ids
}

// OK reports whether every selected frame succeeded.
func (s *Summary) OK() bool {
	return len(s.Failed()) == 0
}

func (s *Summary) journalRun(input string) journal.Run {
	return journal.Run{
		ID:         s.RunID,
		InputPath:  input,
		OutputPath: s.Output,
		DryRun:     s.DryRun,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Succeeded:  len(s.Succeeded()),
		Failed:     len(s.Failed()),
		Skipped:    len(s.Skipped),
	}
}

// journalFrames returns one row per frame of the collection that the run
// saw, selected or skipped, in collection order.
func (s *Summary) journalFrames() []journal.FrameResult {
	type row struct {
		index int
		journal.FrameResult
	}
	rows := make([]row, 0, len(s.Frames)+len(s.Skipped))
	for _, o := range s.Frames {
		r := row{index: o.Index, FrameResult: journal.FrameResult{
			FrameID:    o.ID,
			Status:     o.Status,
			Reason:     string(o.Reason),
			Angles:     o.Angles,
			OutputPath: o.Output,
			Duration:   o.Duration,
		}}
		if o.Err != nil {
			r.Message = o.Err.Error()
		}
		rows = append(rows, r)
	}
	for _, sk := range s.Skipped {
		rows = append(rows, row{index: sk.Index, FrameResult: journal.FrameResult{
			FrameID: sk.ID,
			Status:  journal.StatusSkipped,
			Reason:  string(sk.Reason),
		}})
	}
	slices.SortFunc(rows, func(a, b row) int { return a.index - b.index })

	out := make([]journal.FrameResult, len(rows))
	for i, r := range rows {
		out[i] = r.FrameResult
	}
	return out
}

// Print writes a human-readable report of s.
func (s *Summary) Print(w io.Writer) {
	verb := "Baked"
	if s.DryRun {
		verb = "Planned"
	}

	fmt.Fprintf(w, "Run:     %s\n", s.RunID)
	if s.Backup != "" {
		fmt.Fprintf(w, "Backup:  %s\n", s.Backup)
	}
	if s.Output != "" {
		fmt.Fprintf(w, "Output:  %s\n", s.Output)
	}
	fmt.Fprintf(w, "%-8s %d\n", verb+":", len(s.Succeeded()))
	fmt.Fprintf(w, "Failed:  %d\n", len(s.Failed()))
	fmt.Fprintf(w, "Skipped: %d\n", len(s.Skipped))

	if len(s.Frames) > 0 {
		fmt.Fprintln(w)
	}
	for _, o := range s.Frames {
		if o.Failed() {
			fmt.Fprintf(w, "  %-12s FAILED  %-18s %v\n", o.ID, o.Reason, o.Err)
			continue
		}
		fmt.Fprintf(w, "  %-12s %-7s %s -> %s\n", o.ID, o.Status, o.Angles, o.Output)
	}
}
