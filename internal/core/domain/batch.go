package domain

import (
	"fmt"
	"strings"
)

// BatchReport summarizes one bulk stage run over a source tag or collection.
type BatchReport struct {
	Stage       string `json:"stage"`
	Target      string `json:"target"`
	Total       int    `json:"total"`
	Processed   int    `json:"processed"`
	AlreadyDone int    `json:"already_done"`
	Skipped     int    `json:"skipped"`
	Corrupted   int    `json:"corrupted"`
	Failed      int    `json:"failed"`
}

func (r BatchReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s %s]\n", r.Stage, r.Target)
	fmt.Fprintf(&b, "No of files corrupted: %d\n", r.Corrupted)
	fmt.Fprintf(&b, "No of files skipped: %d\n", r.Skipped)
	fmt.Fprintf(&b, "No of files failed: %d\n", r.Failed)
	fmt.Fprintf(&b, "No of files processed now: %d\n", r.Processed)
	fmt.Fprintf(&b, "No of files already processed: %d\n", r.AlreadyDone)
	fmt.Fprintf(&b, "Total no of files in the corpus: %d\n", r.Total)
	return b.String()
}

// JoinReports renders several reports as one text block.
func JoinReports(reports []BatchReport) string {
	parts := make([]string, 0, len(reports))
	for _, r := range reports {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, "\n")
}
