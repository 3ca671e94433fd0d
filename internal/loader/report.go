package loader

import (
	"fmt"
	"sort"
	"time"
)

// Reasons a row is skipped
const (
	SkipShortRow      = "short_row"
	SkipMalformedRow  = "malformed_row"
	SkipInvalidFlow   = "invalid_flow"
	SkipInvalidYear   = "invalid_year"
	SkipInvalidMonth  = "invalid_month"
	SkipInvalidNCM    = "invalid_ncm"
	SkipInvalidNumber = "invalid_number"
	SkipMissingFOB    = "missing_fob"
	SkipNegative      = "negative_value"
	SkipOtherUF       = "other_uf"
)

// FileReport describes what happened while parsing one file
type FileReport struct {
	Path        string         `json:"path"`
	Checksum    string         `json:"checksum,omitempty"`
	RowsRead    int            `json:"rows_read"`
	RowsKept    int            `json:"rows_kept"`
	RowsSkipped int            `json:"rows_skipped"`
	Skipped     map[string]int `json:"skipped,omitempty"`
	Samples     []string       `json:"samples,omitempty"`

	maxSamples int
}

func newFileReport(path string, maxSamples int) FileReport {
	return FileReport{Path: path, Skipped: make(map[string]int), maxSamples: maxSamples}
}

func (r *FileReport) skip(line int, reason, detail string) {
	r.RowsSkipped++
	r.Skipped[reason]++
	if reason == SkipOtherUF || len(r.Samples) >= r.maxSamples {
		return
	}
	r.Samples = append(r.Samples, fmt.Sprintf("line %d: %s: %s", line, reason, detail))
}

// LoadReport aggregates the file reports of one load
type LoadReport struct {
	Source      string         `json:"source"`
	Files       []FileReport   `json:"files,omitempty"`
	RowsRead    int            `json:"rows_read"`
	RowsKept    int            `json:"rows_kept"`
	RowsSkipped int            `json:"rows_skipped"`
	Skipped     map[string]int `json:"skipped,omitempty"`
	LoadedAt    time.Time      `json:"loaded_at"`
	Duration    time.Duration  `json:"duration_ns"`
}

func (r *LoadReport) add(f FileReport) {
	r.Files = append(r.Files, f)
	r.RowsRead += f.RowsRead
	r.RowsKept += f.RowsKept
	r.RowsSkipped += f.RowsSkipped
	if len(f.Skipped) > 0 && r.Skipped == nil {
		r.Skipped = make(map[string]int)
	}
	for reason, n := range f.Skipped {
		r.Skipped[reason] += n
	}
}

// SkipReasons returns the skip reasons sorted by count, most frequent first
func (r LoadReport) SkipReasons() []string {
	reasons := make([]string, 0, len(r.Skipped))
	for reason := range r.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if r.Skipped[reasons[i]] != r.Skipped[reasons[j]] {
			return r.Skipped[reasons[i]] > r.Skipped[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})
	return reasons
}
