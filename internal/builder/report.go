package builder

import (
	"sort"
	"time"
)

// Status is the outcome of a build.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// FileResult records what one source file produced.
type FileResult struct {
	Source      string
	Destination string
	Program     string
	Duration    time.Duration
}

// Report summarizes a build. It is returned even when the build fails and
// then lists the files finished before the failure.
type Report struct {
	BuildID   string
	Status    Status
	Files     []FileResult
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

func newReport(buildID string) *Report {
	return &Report{BuildID: buildID, StartTime: time.Now()}
}

func (r *Report) add(f FileResult) {
	r.Files = append(r.Files, f)
}

func (r *Report) finish(err error) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Status = StatusSuccess
	if err != nil {
		r.Status = StatusFailed
	}
}

// ProgramCounts returns how many files each program kind handled.
func (r *Report) ProgramCounts() map[string]int {
	counts := make(map[string]int)
	for _, f := range r.Files {
		counts[f.Program]++
	}
	return counts
}

// Destination returns the destination recorded for source.
func (r *Report) Destination(source string) (string, bool) {
	for _, f := range r.Files {
		if f.Source == source {
			return f.Destination, true
		}
	}
	return "", false
}

// Sources returns the processed source files in processing order.
func (r *Report) Sources() []string {
	out := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, f.Source)
	}
	return out
}

// Programs returns the program kinds used, sorted.
func (r *Report) Programs() []string {
	counts := r.ProgramCounts()
	out := make([]string, 0, len(counts))
	for p := range counts {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
